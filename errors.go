package glkit

import (
	"errors"
	"fmt"
	"strings"
)

// Resource errors.
var (
	// ErrNilDevice is returned when a Context is created without a device.
	ErrNilDevice = errors.New("glkit: device is nil")

	// ErrNilContext is returned when a resource is created without a context.
	ErrNilContext = errors.New("glkit: context is nil")

	// ErrDestroyed is returned when operating on a destroyed resource.
	ErrDestroyed = errors.New("glkit: resource has been destroyed")

	// ErrAllocFailed is returned when the device hands out no object name.
	ErrAllocFailed = errors.New("glkit: device object allocation failed")

	// ErrBufferKind is returned when a buffer is used at the wrong binding point.
	ErrBufferKind = errors.New("glkit: wrong buffer kind")

	// ErrEmptyLayout is returned when attaching a layout with no elements.
	ErrEmptyLayout = errors.New("glkit: vertex layout has no elements")

	// ErrLayoutFrozen is returned when pushing onto a layout that is
	// already attached to a vertex array.
	ErrLayoutFrozen = errors.New("glkit: vertex layout is attached and frozen")

	// ErrInvalidComponentCount is returned for component counts outside 1..4.
	ErrInvalidComponentCount = errors.New("glkit: component count must be 1..4")

	// ErrNoVertexFormat is returned when a layout element has no
	// gputypes.VertexFormat equivalent.
	ErrNoVertexFormat = errors.New("glkit: no vertex format for element")
)

// ShaderCompileError reports a shader stage that failed to compile.
// The stage object has already been released.
type ShaderCompileError struct {
	Stage ShaderStage
	Log   string
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("glkit: failed to compile %s shader: %s", e.Stage, strings.TrimSpace(e.Log))
}

// ShaderLinkError reports a program that failed to link or validate.
// Name is the source path or label the program was built from.
type ShaderLinkError struct {
	Name string
	Log  string
}

func (e *ShaderLinkError) Error() string {
	return fmt.Sprintf("glkit: failed to link program %q: %s", e.Name, strings.TrimSpace(e.Log))
}

// UniformNotFoundError reports a uniform name the program does not expose.
// It is never returned from a call; it is logged once per name and handed
// to the hook installed with WithUniformHook.
type UniformNotFoundError struct {
	Program string
	Name    string
}

func (e *UniformNotFoundError) Error() string {
	return fmt.Sprintf("glkit: uniform %q does not exist in program %q", e.Name, e.Program)
}

// DiagnosticError wraps a device diagnostic at or above the fatal severity.
type DiagnosticError struct {
	Diagnostic Diagnostic
}

func (e *DiagnosticError) Error() string {
	return "glkit: device diagnostic: " + e.Diagnostic.String()
}

// UnsupportedAttributeTypeError reports a layout element type outside
// {Float32, Uint32, Uint8}.
type UnsupportedAttributeTypeError struct {
	Type ScalarType
}

func (e *UnsupportedAttributeTypeError) Error() string {
	return fmt.Sprintf("glkit: unsupported attribute type %s", e.Type)
}
