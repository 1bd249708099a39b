// Package software provides a pure Go glkit.Device that records
// everything it is asked to do.
//
// The device keeps buffer contents, vertex array attributes, compiled
// stages, linked programs and uniform values in memory. It does not
// rasterize: DrawIndexed records a Draw with the decoded indices and the
// uniform values in effect. Misuse a real driver would flag, such as
// drawing with nothing bound, is reported as a glkit.Diagnostic.
//
// Shader stages are checked by a Compiler. The default GLSLCompiler
// requires a main function and collects uniform declarations; link
// assigns uniform locations in name order.
//
// Importing the package registers it with the backend registry under
// backend.BackendSoftware.
package software
