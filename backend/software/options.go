package software

// Option configures a Device during creation.
type Option func(*Device)

// WithCompiler replaces GLSLCompiler.
func WithCompiler(c Compiler) Option {
	return func(d *Device) {
		if c != nil {
			d.compiler = c
		}
	}
}
