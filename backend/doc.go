// Package backend selects a glkit.Device implementation by name.
//
// # Backend Registration
//
// Backends register a Factory from init() functions and are selected at
// runtime. Importing a backend package is enough to make it available:
//
//	import (
//		_ "github.com/gogpu/glkit/backend/native"
//		_ "github.com/gogpu/glkit/backend/software"
//	)
//
// # Backend Selection
//
// Use Default() to open the best available backend, or Open() to request
// a specific backend by name:
//
//	// Open the default (best available) backend
//	dev, name, err := backend.Default()
//
//	// Or request a specific backend
//	dev, err := backend.Open(backend.BackendSoftware)
//
// # Available Backends
//
//   - "gl": OpenGL 4.3 core via go-gl; needs a current GL context
//   - "native": gogpu/wgpu HAL over Vulkan, rendering offscreen
//   - "software": records every call, always available
package backend
