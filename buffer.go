package glkit

import (
	"encoding/binary"
	"fmt"
)

// Buffer owns one device buffer holding vertex or index data.
//
// Contents are supplied once at construction and uploaded with static
// usage; there is no API to modify them afterwards. The device buffer is
// released exactly once, by Destroy.
type Buffer struct {
	ctx    *Context
	handle Handle
	kind   BufferKind
	size   int
	count  int
}

// NewVertexBuffer allocates a vertex buffer and uploads data.
func NewVertexBuffer(ctx *Context, data []byte) (*Buffer, error) {
	return newBuffer(ctx, VertexBuffer, data, 0)
}

// NewVertexBufferOf packs values little-endian and uploads them as a
// vertex buffer.
func NewVertexBufferOf[T Scalar](ctx *Context, values []T) (*Buffer, error) {
	data, err := binary.Append(nil, binary.LittleEndian, values)
	if err != nil {
		return nil, fmt.Errorf("glkit: pack vertex data: %w", err)
	}
	return newBuffer(ctx, VertexBuffer, data, 0)
}

// NewIndexBuffer allocates an index buffer holding indices as uint32.
// The index count is retained for Renderer.Draw.
func NewIndexBuffer(ctx *Context, indices []uint32) (*Buffer, error) {
	data, err := binary.Append(nil, binary.LittleEndian, indices)
	if err != nil {
		return nil, fmt.Errorf("glkit: pack index data: %w", err)
	}
	return newBuffer(ctx, IndexBuffer, data, len(indices))
}

func newBuffer(ctx *Context, kind BufferKind, data []byte, count int) (*Buffer, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	h := ctx.dev.CreateBuffer(kind)
	if h == 0 {
		return nil, fmt.Errorf("%w: %s buffer of %d bytes", ErrAllocFailed, kind, len(data))
	}
	b := &Buffer{ctx: ctx, handle: h, kind: kind, size: len(data), count: count}
	b.Bind()
	ctx.dev.UploadBufferData(kind, data)
	ctx.logger().Debug("buffer created", "kind", kind.String(), "handle", h, "bytes", len(data))
	return b, nil
}

// Handle returns the device buffer name, 0 after Destroy.
func (b *Buffer) Handle() Handle {
	return b.handle
}

// Kind returns the binding point of the buffer.
func (b *Buffer) Kind() BufferKind {
	return b.kind
}

// Size returns the byte length uploaded at construction.
func (b *Buffer) Size() int {
	return b.size
}

// Count returns the number of indices of an index buffer, 0 for vertex
// buffers.
func (b *Buffer) Count() int {
	return b.count
}

// Destroyed reports whether Destroy has been called.
func (b *Buffer) Destroyed() bool {
	return b.handle == 0
}

// Bind makes b the active buffer of its kind.
func (b *Buffer) Bind() {
	if b.handle == 0 {
		b.ctx.logger().Warn("bind of destroyed buffer", "kind", b.kind.String())
		return
	}
	b.ctx.bindBuffer(b.kind, b.handle)
}

// Unbind clears the active buffer of b's kind, whichever buffer that is.
func (b *Buffer) Unbind() {
	b.ctx.bindBuffer(b.kind, 0)
}

// Destroy releases the device buffer. Later calls are no-ops.
func (b *Buffer) Destroy() {
	if b.handle == 0 {
		return
	}
	b.ctx.dev.DeleteBuffer(b.handle)
	b.ctx.forget(bufferTarget(b.kind), b.handle)
	b.ctx.logger().Debug("buffer destroyed", "kind", b.kind.String(), "handle", b.handle)
	b.handle = 0
}
