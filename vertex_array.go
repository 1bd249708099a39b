package glkit

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// VertexArray binds one or more (Buffer, VertexLayout) pairs to attribute
// slots, producing a single bindable geometry input state.
//
// Slots are assigned in attach order: the first element of the first
// layout gets slot 0 and every later element the next free slot. Byte
// offsets restart at 0 for each attached layout.
type VertexArray struct {
	ctx     *Context
	handle  Handle
	attrs   []Attribute
	layouts []*VertexLayout
}

// NewVertexArray allocates an empty vertex array.
func NewVertexArray(ctx *Context) (*VertexArray, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	h := ctx.dev.CreateVertexArray()
	if h == 0 {
		return nil, fmt.Errorf("%w: vertex array", ErrAllocFailed)
	}
	ctx.logger().Debug("vertex array created", "handle", h)
	return &VertexArray{ctx: ctx, handle: h}, nil
}

// AddBuffer attaches b, read through layout l, to the next free slots.
// The layout is frozen afterwards. The vertex array and b are left bound.
//
// Offset and stride recorded here must match how the caller interleaved
// the bytes in b, or the device reads garbage.
func (va *VertexArray) AddBuffer(b *Buffer, l *VertexLayout) error {
	if va.handle == 0 {
		return fmt.Errorf("add buffer: %w", ErrDestroyed)
	}
	if b == nil || b.handle == 0 {
		return fmt.Errorf("add buffer: vertex buffer: %w", ErrDestroyed)
	}
	if b.kind != VertexBuffer {
		return fmt.Errorf("add buffer: %w: got %s buffer", ErrBufferKind, b.kind)
	}
	if l == nil || l.Len() == 0 {
		return ErrEmptyLayout
	}

	va.Bind()
	b.Bind()
	slot := va.NextSlot()
	var offset uintptr
	for _, e := range l.elements {
		a := Attribute{
			Slot:       slot,
			Count:      e.Count,
			Type:       e.Type,
			Normalized: e.Normalized,
			Stride:     l.stride,
			Offset:     offset,
		}
		va.ctx.dev.EnableVertexAttribute(a)
		va.attrs = append(va.attrs, a)
		offset += uintptr(e.Size())
		slot++
	}
	l.frozen = true
	va.layouts = append(va.layouts, l)
	va.ctx.logger().Debug("buffer attached",
		"vertexArray", va.handle, "buffer", b.handle, "attributes", l.Len(), "stride", l.stride)
	return nil
}

// NextSlot returns the slot the next attached element will occupy.
func (va *VertexArray) NextSlot() uint32 {
	return uint32(len(va.attrs))
}

// Attributes returns a copy of the enabled attributes in slot order.
func (va *VertexArray) Attributes() []Attribute {
	out := make([]Attribute, len(va.attrs))
	copy(out, va.attrs)
	return out
}

// BufferLayouts returns one gputypes vertex buffer layout per attached
// buffer, in attach order, with shader locations equal to the slots.
func (va *VertexArray) BufferLayouts() ([]gputypes.VertexBufferLayout, error) {
	out := make([]gputypes.VertexBufferLayout, 0, len(va.layouts))
	var slot uint32
	for i, l := range va.layouts {
		bl, err := l.BufferLayout(slot)
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i, err)
		}
		out = append(out, bl)
		slot += uint32(l.Len())
	}
	return out, nil
}

// Handle returns the device name, 0 after Destroy.
func (va *VertexArray) Handle() Handle {
	return va.handle
}

// Bind makes va the active input state for subsequent draws.
func (va *VertexArray) Bind() {
	if va.handle == 0 {
		va.ctx.logger().Warn("bind of destroyed vertex array")
		return
	}
	va.ctx.bindVertexArray(va.handle)
}

// Unbind clears the active vertex array.
func (va *VertexArray) Unbind() {
	va.ctx.bindVertexArray(0)
}

// Destroy releases the device vertex array. Attached buffers are not
// owned by va and stay alive. Later calls are no-ops.
func (va *VertexArray) Destroy() {
	if va.handle == 0 {
		return
	}
	va.ctx.dev.DeleteVertexArray(va.handle)
	va.ctx.forget(TargetVertexArray, va.handle)
	va.ctx.logger().Debug("vertex array destroyed", "handle", va.handle)
	va.handle = 0
}
