package glkit

import (
	"fmt"

	"golang.org/x/image/math/f32"
)

// Handle is an opaque device object name. Zero never names a live object.
type Handle uint32

// BufferKind selects the binding point a buffer is uploaded to.
type BufferKind uint8

const (
	// VertexBuffer holds interleaved vertex records.
	VertexBuffer BufferKind = iota
	// IndexBuffer holds uint32 element indices.
	IndexBuffer
)

// String returns the string representation of BufferKind.
func (k BufferKind) String() string {
	switch k {
	case VertexBuffer:
		return "vertex"
	case IndexBuffer:
		return "index"
	default:
		return fmt.Sprintf("BufferKind(%d)", int(k))
	}
}

// ShaderStage identifies one compilation unit of a program.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageFragment
)

// String returns the stage name as used in shader source directives.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderStage(%d)", int(s))
	}
}

// Primitive is the primitive assembly mode of a draw call.
// Only triangle lists are drawn.
type Primitive uint8

const Triangles Primitive = 0

// IndexType is the element type of an index buffer.
// Only 32-bit unsigned indices are supported.
type IndexType uint8

const IndexUint32 IndexType = 0

// Attribute describes one enabled vertex attribute slot: where in the
// currently bound vertex buffer the values for Slot are read from.
type Attribute struct {
	Slot       uint32
	Count      int
	Type       ScalarType
	Normalized bool
	// Stride is the byte distance between consecutive records.
	Stride int
	// Offset is the byte offset of the first value within a record.
	Offset uintptr
}

// Element returns the layout element the attribute was built from.
func (a Attribute) Element() LayoutElement {
	return LayoutElement{Type: a.Type, Count: a.Count, Normalized: a.Normalized}
}

// Device is the stateful, handle-based GPU API glkit manages resources on.
//
// A Device owns hidden "currently bound" state per binding point; every
// Bind*/UseProgram call mutates it and later calls act on whatever is bound.
// Implementations are not required to be safe for concurrent use: all
// calls must come from the goroutine that owns the device context.
type Device interface {
	// CreateBuffer returns a new buffer name, or 0 if allocation failed.
	CreateBuffer(kind BufferKind) Handle
	// BindBuffer makes h the active buffer of kind. h == 0 unbinds.
	BindBuffer(kind BufferKind, h Handle)
	// UploadBufferData replaces the contents of the buffer bound for kind
	// with data, marking it static.
	UploadBufferData(kind BufferKind, data []byte)
	DeleteBuffer(h Handle)

	// CreateVertexArray returns a new vertex array name, or 0 on failure.
	CreateVertexArray() Handle
	// BindVertexArray makes h the active input state. h == 0 unbinds.
	BindVertexArray(h Handle)
	DeleteVertexArray(h Handle)
	// EnableVertexAttribute enables a.Slot on the bound vertex array and
	// sources it from the bound vertex buffer.
	EnableVertexAttribute(a Attribute)

	// CompileShaderStage compiles src for stage. On failure it releases the
	// shader object and returns 0 with the compiler's info log.
	CompileShaderStage(stage ShaderStage, src string) (Handle, string)
	DeleteShaderStage(h Handle)
	// LinkProgram creates a program, attaches vs and fs, links and validates
	// it. ok reports link status; log holds the linker's info log.
	LinkProgram(vs, fs Handle) (program Handle, ok bool, log string)
	// UseProgram makes h the active program. h == 0 unbinds.
	UseProgram(h Handle)
	DeleteProgram(h Handle)

	// UniformLocation returns the location of an active uniform of program,
	// or -1 if the name is unknown or was optimized away.
	UniformLocation(program Handle, name string) int32
	// Uniform setters write to the active program. Location -1 is ignored.
	Uniform4f(loc int32, v f32.Vec4)
	Uniform1i(loc int32, v int32)
	// UniformMatrix4f uploads m (row-major, as f32.Mat4 is laid out) in
	// the column-major order shader code expects.
	UniformMatrix4f(loc int32, m f32.Mat4)

	// ClearColor sets the color used by Clear.
	ClearColor(c f32.Vec4)
	// Clear clears the color target.
	Clear()
	// DrawIndexed draws count indices of typ from the bound index buffer,
	// starting at byte offset.
	DrawIndexed(mode Primitive, count int, typ IndexType, offset int)
}

// DiagnosticSource is implemented by devices that report deferred
// diagnostics (driver debug output) out of band.
type DiagnosticSource interface {
	SetDiagnosticHandler(h func(Diagnostic))
}
