// Package glkit manages shader programs and vertex geometry on a
// stateful, handle-based GPU device.
//
// # Overview
//
// glkit sits between application code and a device in the style of
// OpenGL: objects are opaque integer names and every operation acts on
// whatever is currently bound. The package creates and destroys those
// objects exactly once, keeps the bind state explicit, splits
// dual-stage shader files, caches uniform locations and issues indexed
// triangle draws.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/glkit"
//		"github.com/gogpu/glkit/backend/software"
//	)
//
//	ctx, err := glkit.NewContext(software.New())
//	if err != nil {
//		return err
//	}
//
//	positions := []float32{-0.5, -0.5, 0.5, -0.5, 0.5, 0.5, -0.5, 0.5}
//	vb, _ := glkit.NewVertexBufferOf(ctx, positions)
//	layout := glkit.NewVertexLayout()
//	_ = glkit.PushOf[float32](layout, 2)
//
//	va, _ := glkit.NewVertexArray(ctx)
//	_ = va.AddBuffer(vb, layout)
//	ib, _ := glkit.NewIndexBuffer(ctx, []uint32{0, 1, 2, 2, 3, 0})
//
//	sh, err := glkit.NewShader(ctx, "res/shaders/Basic.shader")
//	if err != nil {
//		return err
//	}
//	sh.Bind()
//	sh.SetUniform4f("u_Color", 0.8, 0.3, 0.8, 1.0)
//
//	r, _ := glkit.NewRenderer(ctx)
//	_ = r.Clear()
//	_ = r.Draw(va, ib, sh)
//
// # Shader Files
//
// A shader file holds both stages. A line containing "#shader vertex"
// starts the vertex section and "#shader fragment" the fragment section;
// everything before the first directive is ignored.
//
//	#shader vertex
//	#version 330 core
//	layout(location = 0) in vec4 position;
//	void main() { gl_Position = position; }
//
//	#shader fragment
//	#version 330 core
//	layout(location = 0) out vec4 color;
//	uniform vec4 u_Color;
//	void main() { color = u_Color; }
//
// # Devices
//
// The Device interface is implemented by:
//   - backend/software: a pure Go device that records everything it is
//     asked to do, for tests and headless tools
//   - backend/native: a device over gogpu/wgpu HAL with WGSL stages
//     compiled by naga, rendering offscreen
//   - backend/opengl: OpenGL 4.3 core through go-gl (requires cgo)
//
// # Diagnostics
//
// Devices that implement DiagnosticSource report deferred problems
// out of band. The Context logs every diagnostic, forwards it to the
// Reporter installed with WithReporter, and latches the first one at or
// above the fatal severity; Renderer.Draw and Context.Err return it.
//
// # Threading
//
// A Context and everything created on it must be used from one
// goroutine, the one owning the device context.
package glkit
