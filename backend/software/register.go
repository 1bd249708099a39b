package software

import (
	"github.com/gogpu/glkit"
	"github.com/gogpu/glkit/backend"
)

// init registers the software backend on package import.
func init() {
	backend.Register(backend.BackendSoftware, func() (glkit.Device, error) {
		return New(), nil
	})
}
