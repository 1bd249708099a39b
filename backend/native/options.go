package native

import "github.com/gogpu/gputypes"

const (
	defaultTargetWidth  = 256
	defaultTargetHeight = 256
)

// Option configures a Device during creation.
type Option func(*config)

type config struct {
	width, height uint32
	format        gputypes.TextureFormat
	formatSet     bool
}

func defaultConfig() config {
	return config{
		width:  defaultTargetWidth,
		height: defaultTargetHeight,
		format: gputypes.TextureFormatRGBA8Unorm,
	}
}

// WithTargetSize sets the size of the offscreen color target.
func WithTargetSize(width, height uint32) Option {
	return func(c *config) {
		c.width = width
		c.height = height
	}
}

// WithTargetFormat sets the format of the offscreen color target.
// Only RGBA8Unorm and BGRA8Unorm can be read back with ReadPixels.
func WithTargetFormat(f gputypes.TextureFormat) Option {
	return func(c *config) {
		c.format = f
		c.formatSet = true
	}
}
