//go:build cgo

package opengl

import (
	"github.com/gogpu/glkit"
	"github.com/gogpu/glkit/backend"
)

// init registers the OpenGL backend on package import.
func init() {
	backend.Register(backend.BackendGL, func() (glkit.Device, error) {
		d, err := New()
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}
