package glkit

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// ScalarType tags the component type of a vertex attribute.
// The zero value is not a valid type.
type ScalarType uint8

const (
	Float32 ScalarType = iota + 1
	Uint32
	Uint8
)

// Size returns the byte size of one component, 0 for unsupported types.
func (t ScalarType) Size() int {
	switch t {
	case Float32, Uint32:
		return 4
	case Uint8:
		return 1
	default:
		return 0
	}
}

// String returns the string representation of ScalarType.
func (t ScalarType) String() string {
	switch t {
	case Float32:
		return "float32"
	case Uint32:
		return "uint32"
	case Uint8:
		return "uint8"
	default:
		return fmt.Sprintf("ScalarType(%d)", int(t))
	}
}

// normalizedByDefault reports whether components of t are read as
// fixed-point values mapped into [0,1]. Only byte components are.
func (t ScalarType) normalizedByDefault() bool {
	return t == Uint8
}

// Scalar is the closed set of Go component types a layout accepts.
// PushOf does not compile for any other type.
type Scalar interface {
	float32 | uint32 | uint8
}

// scalarTypeOf returns the tag for T.
func scalarTypeOf[T Scalar]() ScalarType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case uint32:
		return Uint32
	default:
		return Uint8
	}
}

// LayoutElement is one attribute within a vertex record.
type LayoutElement struct {
	Type       ScalarType
	Count      int
	Normalized bool
}

// Size returns the byte size of the element within a record.
func (e LayoutElement) Size() int {
	return e.Count * e.Type.Size()
}

// VertexFormat returns the gputypes format reading the element, or
// ErrNoVertexFormat for shapes WebGPU-style pipelines cannot express
// (one or three bytes).
func (e LayoutElement) VertexFormat() (gputypes.VertexFormat, error) {
	switch e.Type {
	case Float32:
		switch e.Count {
		case 1:
			return gputypes.VertexFormatFloat32, nil
		case 2:
			return gputypes.VertexFormatFloat32x2, nil
		case 3:
			return gputypes.VertexFormatFloat32x3, nil
		case 4:
			return gputypes.VertexFormatFloat32x4, nil
		}
	case Uint32:
		switch e.Count {
		case 1:
			return gputypes.VertexFormatUint32, nil
		case 2:
			return gputypes.VertexFormatUint32x2, nil
		case 3:
			return gputypes.VertexFormatUint32x3, nil
		case 4:
			return gputypes.VertexFormatUint32x4, nil
		}
	case Uint8:
		switch {
		case e.Count == 2 && e.Normalized:
			return gputypes.VertexFormatUnorm8x2, nil
		case e.Count == 4 && e.Normalized:
			return gputypes.VertexFormatUnorm8x4, nil
		case e.Count == 2:
			return gputypes.VertexFormatUint8x2, nil
		case e.Count == 4:
			return gputypes.VertexFormatUint8x4, nil
		}
	}
	var none gputypes.VertexFormat
	return none, fmt.Errorf("%w: %d x %s", ErrNoVertexFormat, e.Count, e.Type)
}

// VertexLayout describes, in declaration order, the attributes packed into
// each record of one vertex buffer. Declaration order fixes both the
// attribute slot and the byte offset of every element.
//
// Layouts are append-only. Once attached to a VertexArray a layout is
// frozen and Push fails. The zero value is an empty layout ready for use.
type VertexLayout struct {
	elements []LayoutElement
	stride   int
	frozen   bool
}

// NewVertexLayout returns an empty layout.
func NewVertexLayout() *VertexLayout {
	return &VertexLayout{}
}

// Push appends count components of type t. The normalization flag is
// inferred from t: byte components are normalized, float and uint32
// components are not.
func (l *VertexLayout) Push(t ScalarType, count int) error {
	if t.Size() == 0 {
		return &UnsupportedAttributeTypeError{Type: t}
	}
	if count < 1 || count > 4 {
		return fmt.Errorf("%w: got %d", ErrInvalidComponentCount, count)
	}
	if l.frozen {
		return ErrLayoutFrozen
	}
	e := LayoutElement{Type: t, Count: count, Normalized: t.normalizedByDefault()}
	l.elements = append(l.elements, e)
	l.stride += e.Size()
	return nil
}

// PushOf appends count components of Go type T.
//
//	layout := glkit.NewVertexLayout()
//	glkit.PushOf[float32](layout, 2) // position
//	glkit.PushOf[uint8](layout, 4)   // normalized color
func PushOf[T Scalar](l *VertexLayout, count int) error {
	return l.Push(scalarTypeOf[T](), count)
}

// Elements returns a copy of the elements in declaration order.
func (l *VertexLayout) Elements() []LayoutElement {
	out := make([]LayoutElement, len(l.elements))
	copy(out, l.elements)
	return out
}

// Len returns the number of elements.
func (l *VertexLayout) Len() int {
	return len(l.elements)
}

// Stride returns the byte size of one record.
func (l *VertexLayout) Stride() int {
	return l.stride
}

// Offset returns the byte offset of element i within a record: the sum
// of the sizes of the elements declared before it.
func (l *VertexLayout) Offset(i int) int {
	off := 0
	for _, e := range l.elements[:i] {
		off += e.Size()
	}
	return off
}

// Frozen reports whether the layout has been attached to a vertex array.
func (l *VertexLayout) Frozen() bool {
	return l.frozen
}

// BufferLayout translates the layout into a gputypes vertex buffer layout
// whose attributes occupy consecutive shader locations from firstSlot.
func (l *VertexLayout) BufferLayout(firstSlot uint32) (gputypes.VertexBufferLayout, error) {
	attrs := make([]gputypes.VertexAttribute, 0, len(l.elements))
	offset := 0
	for i, e := range l.elements {
		format, err := e.VertexFormat()
		if err != nil {
			return gputypes.VertexBufferLayout{}, fmt.Errorf("element %d: %w", i, err)
		}
		attrs = append(attrs, gputypes.VertexAttribute{
			Format:         format,
			Offset:         uint64(offset),
			ShaderLocation: firstSlot + uint32(i),
		})
		offset += e.Size()
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(l.stride),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}, nil
}
