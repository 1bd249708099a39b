package glkit

import (
	"fmt"
	"image/color"

	"golang.org/x/image/math/f32"
)

// Renderer issues clears and indexed triangle draws on a Context.
// It holds no resources of its own.
type Renderer struct {
	ctx *Context
}

// NewRenderer returns a Renderer drawing on ctx.
func NewRenderer(ctx *Context) (*Renderer, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return &Renderer{ctx: ctx}, nil
}

// SetClearColor sets the color Clear fills the target with.
func (r *Renderer) SetClearColor(c color.Color) {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	r.ctx.dev.ClearColor(f32.Vec4{
		float32(nc.R) / 255,
		float32(nc.G) / 255,
		float32(nc.B) / 255,
		float32(nc.A) / 255,
	})
}

// SetClearColorVec4 sets the clear color from normalized components.
func (r *Renderer) SetClearColorVec4(c f32.Vec4) {
	r.ctx.dev.ClearColor(c)
}

// Clear clears the color target. It returns a fatal diagnostic latched
// on the Context, if any.
func (r *Renderer) Clear() error {
	r.ctx.dev.Clear()
	return r.ctx.Err()
}

// Draw binds sh, then va, then ib, and draws every index of ib as
// triangles. The three stay bound afterwards.
//
// Draw returns an error for nil or destroyed arguments and for an ib
// that is not an index buffer, without touching the device. Otherwise it
// returns the first fatal diagnostic latched on the Context, if any.
func (r *Renderer) Draw(va *VertexArray, ib *Buffer, sh *Shader) error {
	switch {
	case va == nil || va.handle == 0:
		return fmt.Errorf("draw: vertex array: %w", ErrDestroyed)
	case ib == nil || ib.handle == 0:
		return fmt.Errorf("draw: index buffer: %w", ErrDestroyed)
	case sh == nil || sh.handle == 0:
		return fmt.Errorf("draw: shader: %w", ErrDestroyed)
	case ib.kind != IndexBuffer:
		return fmt.Errorf("draw: %w: got %s buffer", ErrBufferKind, ib.kind)
	}

	sh.Bind()
	va.Bind()
	ib.Bind()
	r.ctx.dev.DrawIndexed(Triangles, ib.count, IndexUint32, 0)
	return r.ctx.Err()
}
