package backend

import (
	"errors"

	"github.com/gogpu/glkit"
)

// Backend name constants.
const (
	// BackendGL is the name of the OpenGL 4.3 core backend (go-gl, cgo).
	BackendGL = "gl"
	// BackendNative is the name of the Pure Go GPU backend (gogpu/wgpu HAL).
	BackendNative = "native"
	// BackendSoftware is the name of the recording software device.
	BackendSoftware = "software"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when no registered backend could
	// open a device.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrUnknownBackend is returned when opening a name nobody registered.
	ErrUnknownBackend = errors.New("backend: unknown backend")
)

// Factory opens a new device. It returns an error when the backend cannot
// run in the current process, for example without a GPU adapter or a
// current GL context.
type Factory func() (glkit.Device, error)
