package glkit

import (
	"fmt"
	"testing"

	"golang.org/x/image/math/f32"
)

// fakeDevice is a call-recording Device for package tests.
type fakeDevice struct {
	next Handle

	calls []string
	count map[string]int

	// uniforms maps a uniform name to the location every program reports.
	uniforms map[string]int32

	failCompile map[ShaderStage]string
	failLink    string
	failAlloc   bool

	buffers  map[Handle][]byte
	bound    map[BufferKind]Handle
	attrs    []Attribute
	draws    []fakeDraw
	deleted  map[Handle]int
	set4f    map[int32]f32.Vec4
	set1i    map[int32]int32
	setMat   map[int32]f32.Mat4
	clearCol f32.Vec4

	handler func(Diagnostic)
}

type fakeDraw struct {
	mode   Primitive
	count  int
	typ    IndexType
	offset int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		count:       make(map[string]int),
		uniforms:    make(map[string]int32),
		failCompile: make(map[ShaderStage]string),
		buffers:     make(map[Handle][]byte),
		bound:       make(map[BufferKind]Handle),
		deleted:     make(map[Handle]int),
		set4f:       make(map[int32]f32.Vec4),
		set1i:       make(map[int32]int32),
		setMat:      make(map[int32]f32.Mat4),
	}
}

func (d *fakeDevice) record(format string, args ...any) {
	call := fmt.Sprintf(format, args...)
	d.calls = append(d.calls, call)
	name := call
	for i, r := range call {
		if r == '(' {
			name = call[:i]
			break
		}
	}
	d.count[name]++
}

func (d *fakeDevice) alloc() Handle {
	if d.failAlloc {
		return 0
	}
	d.next++
	return d.next
}

func (d *fakeDevice) SetDiagnosticHandler(h func(Diagnostic)) { d.handler = h }

func (d *fakeDevice) emit(diag Diagnostic) {
	if d.handler != nil {
		d.handler(diag)
	}
}

func (d *fakeDevice) CreateBuffer(kind BufferKind) Handle {
	d.record("CreateBuffer(%s)", kind)
	return d.alloc()
}

func (d *fakeDevice) BindBuffer(kind BufferKind, h Handle) {
	d.record("BindBuffer(%s,%d)", kind, h)
	d.bound[kind] = h
}

func (d *fakeDevice) UploadBufferData(kind BufferKind, data []byte) {
	d.record("UploadBufferData(%s,%d)", kind, len(data))
	d.buffers[d.bound[kind]] = append([]byte(nil), data...)
}

func (d *fakeDevice) DeleteBuffer(h Handle) {
	d.record("DeleteBuffer(%d)", h)
	d.deleted[h]++
}

func (d *fakeDevice) CreateVertexArray() Handle {
	d.record("CreateVertexArray()")
	return d.alloc()
}

func (d *fakeDevice) BindVertexArray(h Handle) {
	d.record("BindVertexArray(%d)", h)
}

func (d *fakeDevice) DeleteVertexArray(h Handle) {
	d.record("DeleteVertexArray(%d)", h)
	d.deleted[h]++
}

func (d *fakeDevice) EnableVertexAttribute(a Attribute) {
	d.record("EnableVertexAttribute(%d)", a.Slot)
	d.attrs = append(d.attrs, a)
}

func (d *fakeDevice) CompileShaderStage(stage ShaderStage, src string) (Handle, string) {
	d.record("CompileShaderStage(%s)", stage)
	if log, ok := d.failCompile[stage]; ok {
		return 0, log
	}
	return d.alloc(), ""
}

func (d *fakeDevice) DeleteShaderStage(h Handle) {
	d.record("DeleteShaderStage(%d)", h)
	d.deleted[h]++
}

func (d *fakeDevice) LinkProgram(vs, fs Handle) (Handle, bool, string) {
	d.record("LinkProgram(%d,%d)", vs, fs)
	h := d.alloc()
	if d.failLink != "" {
		return h, false, d.failLink
	}
	return h, true, ""
}

func (d *fakeDevice) UseProgram(h Handle) {
	d.record("UseProgram(%d)", h)
}

func (d *fakeDevice) DeleteProgram(h Handle) {
	d.record("DeleteProgram(%d)", h)
	d.deleted[h]++
}

func (d *fakeDevice) UniformLocation(program Handle, name string) int32 {
	d.record("UniformLocation(%d,%s)", program, name)
	if loc, ok := d.uniforms[name]; ok {
		return loc
	}
	return -1
}

func (d *fakeDevice) Uniform4f(loc int32, v f32.Vec4) {
	d.record("Uniform4f(%d)", loc)
	d.set4f[loc] = v
}

func (d *fakeDevice) Uniform1i(loc int32, v int32) {
	d.record("Uniform1i(%d)", loc)
	d.set1i[loc] = v
}

func (d *fakeDevice) UniformMatrix4f(loc int32, m f32.Mat4) {
	d.record("UniformMatrix4f(%d)", loc)
	d.setMat[loc] = m
}

func (d *fakeDevice) ClearColor(c f32.Vec4) {
	d.record("ClearColor()")
	d.clearCol = c
}

func (d *fakeDevice) Clear() {
	d.record("Clear()")
}

func (d *fakeDevice) DrawIndexed(mode Primitive, count int, typ IndexType, offset int) {
	d.record("DrawIndexed(%d)", count)
	d.draws = append(d.draws, fakeDraw{mode: mode, count: count, typ: typ, offset: offset})
}

// newTestContext returns a Context over a fresh fakeDevice.
func newTestContext(t testing.TB, opts ...Option) (*Context, *fakeDevice) {
	t.Helper()
	dev := newFakeDevice()
	ctx, err := NewContext(dev, opts...)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	return ctx, dev
}
