package glkit

import "log/slog"

// Option configures a Context during creation.
//
// Example:
//
//	ctx, err := glkit.NewContext(dev,
//	    glkit.WithLogger(slog.Default()),
//	    glkit.WithFatalSeverity(glkit.SeverityHigh),
//	)
type Option func(*contextOptions)

// contextOptions holds optional configuration for a Context.
type contextOptions struct {
	logger        *slog.Logger
	reporter      Reporter
	fatalSeverity Severity
	lenientLink   bool
	uniformHook   func(*UniformNotFoundError)
}

// defaultOptions returns the default context options.
// Everything above a notification is fatal, as a debug-output
// callback that traps would treat it.
func defaultOptions() contextOptions {
	return contextOptions{
		logger:        nil, // falls back to the package logger
		fatalSeverity: SeverityLow,
	}
}

// WithLogger sets the logger used by the Context and every resource
// created on it, instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *contextOptions) {
		o.logger = l
	}
}

// WithReporter installs a Reporter that receives every device diagnostic,
// fatal or not.
func WithReporter(r Reporter) Option {
	return func(o *contextOptions) {
		o.reporter = r
	}
}

// WithFatalSeverity sets the lowest severity that is latched as a
// *DiagnosticError. Use SeverityNever to only log and report.
func WithFatalSeverity(s Severity) Option {
	return func(o *contextOptions) {
		o.fatalSeverity = s
	}
}

// WithLenientLink makes a failed link non-fatal to shader construction:
// the failure is logged and a Shader with no program is returned
// alongside a nil error. Every later operation on it is a no-op.
func WithLenientLink() Option {
	return func(o *contextOptions) {
		o.lenientLink = true
	}
}

// WithUniformHook installs a function called the first time a program is
// asked for a uniform it does not expose.
func WithUniformHook(fn func(*UniformNotFoundError)) Option {
	return func(o *contextOptions) {
		o.uniformHook = fn
	}
}
