package native

import (
	"github.com/gogpu/glkit"
	"github.com/gogpu/glkit/backend"
)

// init registers the native backend on package import.
func init() {
	backend.Register(backend.BackendNative, func() (glkit.Device, error) {
		d, err := Open()
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}
