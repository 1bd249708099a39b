// Package opengl implements glkit.Device with OpenGL 4.3 core through
// go-gl. It needs cgo and a current GL context on the calling thread:
// create the window and context first (for example with GLFW), lock the
// goroutine to its OS thread, then call New.
//
// Driver debug output (KHR_debug, core since 4.3) is enabled on New and
// delivered to the handler installed with SetDiagnosticHandler, mapped
// onto glkit severities.
//
// Importing the package registers the "gl" backend. Opening it only
// succeeds when a context is current.
package opengl
