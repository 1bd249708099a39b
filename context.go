package glkit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// BindTarget is one of the device's "currently bound" slots.
type BindTarget uint8

const (
	TargetVertexBuffer BindTarget = iota
	TargetIndexBuffer
	TargetVertexArray
	TargetProgram

	targetCount
)

// String returns the string representation of BindTarget.
func (t BindTarget) String() string {
	switch t {
	case TargetVertexBuffer:
		return "vertex-buffer"
	case TargetIndexBuffer:
		return "index-buffer"
	case TargetVertexArray:
		return "vertex-array"
	case TargetProgram:
		return "program"
	default:
		return fmt.Sprintf("BindTarget(%d)", int(t))
	}
}

func bufferTarget(k BufferKind) BindTarget {
	if k == IndexBuffer {
		return TargetIndexBuffer
	}
	return TargetVertexBuffer
}

// Context owns one Device and makes its hidden bind state explicit.
//
// Every Bind and Unbind of every resource goes through the Context, so
// Bound reports what the device will act on next. Binding is global to
// the device: binding A and then B redirects later operations meant for
// A, so callers bind everything they need immediately before using it.
//
// A Context is not safe for concurrent use. Only diagnostics, which
// drivers may deliver from their own threads, are synchronized.
type Context struct {
	dev   Device
	opts  contextOptions
	bound [targetCount]Handle

	mu    sync.Mutex
	fatal *DiagnosticError
}

// NewContext wraps dev. If dev implements DiagnosticSource the Context
// installs itself as its diagnostic handler.
func NewContext(dev Device, opts ...Option) (*Context, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Context{dev: dev, opts: o}
	if src, ok := dev.(DiagnosticSource); ok {
		src.SetDiagnosticHandler(c.handleDiagnostic)
	}
	return c, nil
}

// Device returns the wrapped device.
func (c *Context) Device() Device {
	return c.dev
}

// Bound returns the handle currently bound at t, 0 if none.
func (c *Context) Bound(t BindTarget) Handle {
	if t >= targetCount {
		return 0
	}
	return c.bound[t]
}

// Err returns the first diagnostic at or above the fatal severity
// delivered since the last ClearErr, or nil.
func (c *Context) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal == nil {
		return nil
	}
	return c.fatal
}

// ClearErr forgets a latched fatal diagnostic.
func (c *Context) ClearErr() {
	c.mu.Lock()
	c.fatal = nil
	c.mu.Unlock()
}

// Close closes the device if it implements io.Closer.
func (c *Context) Close() error {
	if cl, ok := c.dev.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func (c *Context) logger() *slog.Logger {
	if c.opts.logger != nil {
		return c.opts.logger
	}
	return Logger()
}

func (c *Context) bindBuffer(kind BufferKind, h Handle) {
	c.dev.BindBuffer(kind, h)
	c.bound[bufferTarget(kind)] = h
}

func (c *Context) bindVertexArray(h Handle) {
	c.dev.BindVertexArray(h)
	c.bound[TargetVertexArray] = h
}

func (c *Context) useProgram(h Handle) {
	c.dev.UseProgram(h)
	c.bound[TargetProgram] = h
}

// forget clears t if h is bound there. Deleting a bound object unbinds it.
func (c *Context) forget(t BindTarget, h Handle) {
	if c.bound[t] == h {
		c.bound[t] = 0
	}
}

// handleDiagnostic is the device's diagnostic callback.
func (c *Context) handleDiagnostic(d Diagnostic) {
	if r := c.opts.reporter; r != nil {
		r.Report(d)
	}
	if d.Severity < c.opts.fatalSeverity {
		c.logger().Log(context.Background(), d.Severity.level(), "device diagnostic",
			"severity", d.Severity.String(), "source", d.Source, "type", d.Type, "id", d.ID, "message", d.Message)
		return
	}
	c.logger().Error("fatal device diagnostic",
		"severity", d.Severity.String(), "source", d.Source, "type", d.Type, "id", d.ID, "message", d.Message)
	c.mu.Lock()
	if c.fatal == nil {
		c.fatal = &DiagnosticError{Diagnostic: d}
	}
	c.mu.Unlock()
}
