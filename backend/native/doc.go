// Package native implements glkit.Device on top of the wgpu hardware
// abstraction layer.
//
// Shader stages are written in WGSL and compiled to SPIR-V with naga.
// Uniforms are module-scope uniform variables in bind group 0; the
// location glkit reports for a uniform is its binding number:
//
//	@group(0) @binding(0) var<uniform> u_Color: vec4<f32>;
//
// Supported uniform types are vec4<f32>, i32 and mat4x4<f32>. Vertex
// inputs use @location(n) where n is the attribute slot glkit assigned.
//
// Every Clear and DrawIndexed records one render pass into an offscreen
// color target and waits for it to complete; ReadPixels copies the
// target back to the CPU. The device is meant for headless rendering,
// tests and tools, not for frame-rate critical work.
//
// A device is created over:
//   - an existing HAL device and queue (New)
//   - a standalone Vulkan device (Open)
//   - a host application's device (FromProvider)
//
// Importing the package registers the "native" backend, which uses Open.
package native
