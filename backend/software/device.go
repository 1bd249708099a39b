package software

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/glkit"
)

// Diagnostic IDs, numbered after the OpenGL error codes they stand for.
const (
	ErrInvalidEnum      uint32 = 0x0500
	ErrInvalidValue     uint32 = 0x0501
	ErrInvalidOperation uint32 = 0x0502
	// PerfRespecified is reported when a static buffer is uploaded twice.
	PerfRespecified uint32 = 0x8000
	// UndefinedFetch is reported when an index reads past a vertex buffer.
	UndefinedFetch uint32 = 0x8001
)

// Value is the last value written to a uniform. Matrices are stored
// column-major, as uploaded.
type Value struct {
	Type   string
	Floats []float32
	Int    int32
}

// Draw is one recorded DrawIndexed call together with the state it
// consumed.
type Draw struct {
	Mode        glkit.Primitive
	Count       int
	IndexType   glkit.IndexType
	Offset      int
	Program     glkit.Handle
	VertexArray glkit.Handle
	IndexBuffer glkit.Handle
	Indices     []uint32
	Uniforms    map[string]Value
}

// Objects counts live device objects.
type Objects struct {
	Buffers      int
	VertexArrays int
	Stages       int
	Programs     int
}

type buffer struct {
	kind     glkit.BufferKind
	data     []byte
	uploaded bool
}

type sourcedAttribute struct {
	glkit.Attribute
	buffer glkit.Handle
}

type vertexArray struct {
	attrs map[uint32]sourcedAttribute
}

type stage struct {
	stage    glkit.ShaderStage
	uniforms []Uniform
}

type program struct {
	uniforms []Uniform // sorted by name; index is the location
	values   map[int32]Value
}

// Device is a glkit.Device that keeps every object in memory and records
// what it is asked to do. Misuse a real driver would flag is delivered as
// a glkit.Diagnostic through the installed handler.
//
// Object names share one counter, so every handle is unique across kinds.
type Device struct {
	compiler Compiler
	handler  func(glkit.Diagnostic)

	next     glkit.Handle
	buffers  map[glkit.Handle]*buffer
	arrays   map[glkit.Handle]*vertexArray
	stages   map[glkit.Handle]*stage
	programs map[glkit.Handle]*program

	boundBuffers [2]glkit.Handle
	boundArray   glkit.Handle
	boundProgram glkit.Handle

	clearColor f32.Vec4
	clears     int
	draws      []Draw
	calls      map[string]int
	closed     bool
}

// New returns an empty device.
func New(opts ...Option) *Device {
	d := &Device{
		compiler: GLSLCompiler,
		buffers:  make(map[glkit.Handle]*buffer),
		arrays:   make(map[glkit.Handle]*vertexArray),
		stages:   make(map[glkit.Handle]*stage),
		programs: make(map[glkit.Handle]*program),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetDiagnosticHandler implements glkit.DiagnosticSource.
func (d *Device) SetDiagnosticHandler(h func(glkit.Diagnostic)) {
	d.handler = h
}

func (d *Device) report(sev glkit.Severity, typ string, id uint32, format string, args ...any) {
	if d.handler == nil {
		return
	}
	d.handler(glkit.Diagnostic{
		Severity: sev,
		Source:   "api",
		Type:     typ,
		ID:       id,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (d *Device) invalidOperation(format string, args ...any) {
	d.report(glkit.SeverityHigh, "error", ErrInvalidOperation, format, args...)
}

func (d *Device) invalidValue(format string, args ...any) {
	d.report(glkit.SeverityHigh, "error", ErrInvalidValue, format, args...)
}

func (d *Device) alloc() glkit.Handle {
	d.next++
	return d.next
}

func (d *Device) count(name string) {
	d.calls[name]++
}

// Calls returns how many times the named Device method was called.
func (d *Device) Calls(name string) int {
	return d.calls[name]
}

// CreateBuffer implements glkit.Device.
func (d *Device) CreateBuffer(kind glkit.BufferKind) glkit.Handle {
	d.count("CreateBuffer")
	if kind != glkit.VertexBuffer && kind != glkit.IndexBuffer {
		d.report(glkit.SeverityHigh, "error", ErrInvalidEnum, "invalid buffer kind %s", kind)
		return 0
	}
	h := d.alloc()
	d.buffers[h] = &buffer{kind: kind}
	return h
}

// BindBuffer implements glkit.Device.
func (d *Device) BindBuffer(kind glkit.BufferKind, h glkit.Handle) {
	d.count("BindBuffer")
	if int(kind) >= len(d.boundBuffers) {
		d.report(glkit.SeverityHigh, "error", ErrInvalidEnum, "invalid buffer kind %s", kind)
		return
	}
	if h != 0 {
		b, ok := d.buffers[h]
		if !ok {
			d.invalidOperation("bind of unknown buffer %d", h)
			return
		}
		if b.kind != kind {
			d.invalidOperation("buffer %d is a %s buffer, bound as %s", h, b.kind, kind)
			return
		}
	}
	d.boundBuffers[kind] = h
}

// UploadBufferData implements glkit.Device.
func (d *Device) UploadBufferData(kind glkit.BufferKind, data []byte) {
	d.count("UploadBufferData")
	if int(kind) >= len(d.boundBuffers) || d.boundBuffers[kind] == 0 {
		d.invalidOperation("no %s buffer bound for upload", kind)
		return
	}
	b := d.buffers[d.boundBuffers[kind]]
	if b.uploaded {
		d.report(glkit.SeverityNotification, "performance", PerfRespecified,
			"static buffer %d re-specified", d.boundBuffers[kind])
	}
	b.data = slices.Clone(data)
	b.uploaded = true
}

// DeleteBuffer implements glkit.Device. Unknown names are ignored.
func (d *Device) DeleteBuffer(h glkit.Handle) {
	d.count("DeleteBuffer")
	b, ok := d.buffers[h]
	if !ok {
		return
	}
	if d.boundBuffers[b.kind] == h {
		d.boundBuffers[b.kind] = 0
	}
	delete(d.buffers, h)
}

// BufferData returns a copy of the contents of buffer h.
func (d *Device) BufferData(h glkit.Handle) ([]byte, bool) {
	b, ok := d.buffers[h]
	if !ok {
		return nil, false
	}
	return slices.Clone(b.data), true
}

// BoundBuffer returns the buffer bound for kind.
func (d *Device) BoundBuffer(kind glkit.BufferKind) glkit.Handle {
	if int(kind) >= len(d.boundBuffers) {
		return 0
	}
	return d.boundBuffers[kind]
}

// CreateVertexArray implements glkit.Device.
func (d *Device) CreateVertexArray() glkit.Handle {
	d.count("CreateVertexArray")
	h := d.alloc()
	d.arrays[h] = &vertexArray{attrs: make(map[uint32]sourcedAttribute)}
	return h
}

// BindVertexArray implements glkit.Device.
func (d *Device) BindVertexArray(h glkit.Handle) {
	d.count("BindVertexArray")
	if h != 0 {
		if _, ok := d.arrays[h]; !ok {
			d.invalidOperation("bind of unknown vertex array %d", h)
			return
		}
	}
	d.boundArray = h
}

// DeleteVertexArray implements glkit.Device. Unknown names are ignored.
func (d *Device) DeleteVertexArray(h glkit.Handle) {
	d.count("DeleteVertexArray")
	if _, ok := d.arrays[h]; !ok {
		return
	}
	if d.boundArray == h {
		d.boundArray = 0
	}
	delete(d.arrays, h)
}

// BoundVertexArray returns the bound vertex array.
func (d *Device) BoundVertexArray() glkit.Handle {
	return d.boundArray
}

// EnableVertexAttribute implements glkit.Device.
func (d *Device) EnableVertexAttribute(a glkit.Attribute) {
	d.count("EnableVertexAttribute")
	if d.boundArray == 0 {
		d.invalidOperation("no vertex array bound")
		return
	}
	src := d.boundBuffers[glkit.VertexBuffer]
	if src == 0 {
		d.invalidOperation("no vertex buffer bound for attribute %d", a.Slot)
		return
	}
	if a.Count < 1 || a.Count > 4 || a.Stride < 0 || a.Type.Size() == 0 {
		d.invalidValue("invalid attribute %d: %d x %s stride %d", a.Slot, a.Count, a.Type, a.Stride)
		return
	}
	d.arrays[d.boundArray].attrs[a.Slot] = sourcedAttribute{Attribute: a, buffer: src}
}

// Attributes returns the enabled attributes of vertex array h in slot
// order.
func (d *Device) Attributes(h glkit.Handle) []glkit.Attribute {
	va, ok := d.arrays[h]
	if !ok {
		return nil
	}
	out := make([]glkit.Attribute, 0, len(va.attrs))
	for _, a := range va.attrs {
		out = append(out, a.Attribute)
	}
	slices.SortFunc(out, func(a, b glkit.Attribute) int { return int(a.Slot) - int(b.Slot) })
	return out
}

// Fetch decodes the value attribute slot of vertex array h holds for
// vertex index v, the way a vertex shader would receive it: normalized
// components are mapped into [0,1].
func (d *Device) Fetch(h glkit.Handle, slot uint32, v uint32) ([]float32, error) {
	va, ok := d.arrays[h]
	if !ok {
		return nil, fmt.Errorf("software: unknown vertex array %d", h)
	}
	a, ok := va.attrs[slot]
	if !ok {
		return nil, fmt.Errorf("software: attribute %d not enabled", slot)
	}
	b, ok := d.buffers[a.buffer]
	if !ok {
		return nil, fmt.Errorf("software: source buffer %d deleted", a.buffer)
	}
	size := a.Element().Size()
	start := int(a.Offset) + int(v)*a.Stride
	if start < 0 || start+size > len(b.data) {
		return nil, fmt.Errorf("software: vertex %d of attribute %d outside buffer %d", v, slot, a.buffer)
	}
	raw := b.data[start : start+size]
	out := make([]float32, a.Count)
	for i := range out {
		switch a.Type {
		case glkit.Float32:
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		case glkit.Uint32:
			out[i] = float32(binary.LittleEndian.Uint32(raw[i*4:]))
		case glkit.Uint8:
			out[i] = float32(raw[i])
			if a.Normalized {
				out[i] /= 255
			}
		}
	}
	return out, nil
}

// CompileShaderStage implements glkit.Device.
func (d *Device) CompileShaderStage(st glkit.ShaderStage, src string) (glkit.Handle, string) {
	d.count("CompileShaderStage")
	if st != glkit.StageVertex && st != glkit.StageFragment {
		d.report(glkit.SeverityHigh, "error", ErrInvalidEnum, "invalid shader stage %s", st)
		return 0, "invalid shader stage"
	}
	uniforms, err := d.compiler(st, src)
	if err != nil {
		return 0, err.Error()
	}
	h := d.alloc()
	d.stages[h] = &stage{stage: st, uniforms: uniforms}
	return h, ""
}

// DeleteShaderStage implements glkit.Device. Unknown names are ignored.
func (d *Device) DeleteShaderStage(h glkit.Handle) {
	d.count("DeleteShaderStage")
	delete(d.stages, h)
}

// LinkProgram implements glkit.Device. The program object is created even
// when linking fails, as with a real driver.
func (d *Device) LinkProgram(vs, fs glkit.Handle) (glkit.Handle, bool, string) {
	d.count("LinkProgram")
	h := d.alloc()
	p := &program{values: make(map[int32]Value)}
	d.programs[h] = p

	v, vok := d.stages[vs]
	f, fok := d.stages[fs]
	var problems []string
	switch {
	case !vok:
		problems = append(problems, fmt.Sprintf("error: vertex shader %d is not a compiled shader", vs))
	case v.stage != glkit.StageVertex:
		problems = append(problems, fmt.Sprintf("error: shader %d is a %s shader, want vertex", vs, v.stage))
	}
	switch {
	case !fok:
		problems = append(problems, fmt.Sprintf("error: fragment shader %d is not a compiled shader", fs))
	case f.stage != glkit.StageFragment:
		problems = append(problems, fmt.Sprintf("error: shader %d is a %s shader, want fragment", fs, f.stage))
	}
	if len(problems) > 0 {
		return h, false, strings.Join(problems, "\n")
	}

	merged := make(map[string]string)
	for _, u := range slices.Concat(v.uniforms, f.uniforms) {
		if prev, ok := merged[u.Name]; ok && prev != u.Type {
			problems = append(problems,
				fmt.Sprintf("error: uniform `%s' declared as type `%s' and type `%s'", u.Name, prev, u.Type))
			continue
		}
		merged[u.Name] = u.Type
	}
	if len(problems) > 0 {
		return h, false, strings.Join(problems, "\n")
	}
	for name, typ := range merged {
		p.uniforms = append(p.uniforms, Uniform{Name: name, Type: typ})
	}
	slices.SortFunc(p.uniforms, func(a, b Uniform) int { return strings.Compare(a.Name, b.Name) })
	return h, true, ""
}

// UseProgram implements glkit.Device.
func (d *Device) UseProgram(h glkit.Handle) {
	d.count("UseProgram")
	if h != 0 {
		if _, ok := d.programs[h]; !ok {
			d.invalidOperation("use of unknown program %d", h)
			return
		}
	}
	d.boundProgram = h
}

// DeleteProgram implements glkit.Device. Unknown names are ignored.
func (d *Device) DeleteProgram(h glkit.Handle) {
	d.count("DeleteProgram")
	if _, ok := d.programs[h]; !ok {
		return
	}
	if d.boundProgram == h {
		d.boundProgram = 0
	}
	delete(d.programs, h)
}

// BoundProgram returns the program in use.
func (d *Device) BoundProgram() glkit.Handle {
	return d.boundProgram
}

// UniformLocation implements glkit.Device.
func (d *Device) UniformLocation(h glkit.Handle, name string) int32 {
	d.count("UniformLocation")
	p, ok := d.programs[h]
	if !ok {
		d.invalidValue("uniform lookup on unknown program %d", h)
		return -1
	}
	i, found := slices.BinarySearchFunc(p.uniforms, name, func(u Uniform, n string) int {
		return strings.Compare(u.Name, n)
	})
	if !found {
		return -1
	}
	return int32(i)
}

// ActiveUniforms returns the active uniforms of program h in location
// order.
func (d *Device) ActiveUniforms(h glkit.Handle) []Uniform {
	p, ok := d.programs[h]
	if !ok {
		return nil
	}
	return slices.Clone(p.uniforms)
}

// setUniform stores v at loc of the bound program if the declared type
// is one of types. Location -1 is silently ignored.
func (d *Device) setUniform(loc int32, v Value, types ...string) {
	if loc == -1 {
		return
	}
	p, ok := d.programs[d.boundProgram]
	if !ok {
		d.invalidOperation("uniform write with no program in use")
		return
	}
	if loc < 0 || int(loc) >= len(p.uniforms) {
		d.invalidOperation("uniform location %d out of range for program %d", loc, d.boundProgram)
		return
	}
	u := p.uniforms[loc]
	if !slices.Contains(types, u.Type) {
		d.invalidOperation("uniform `%s' has type %s, written as %s", u.Name, u.Type, types[0])
		return
	}
	v.Type = u.Type
	p.values[loc] = v
}

// Uniform4f implements glkit.Device.
func (d *Device) Uniform4f(loc int32, v f32.Vec4) {
	d.count("Uniform4f")
	d.setUniform(loc, Value{Floats: v[:]}, "vec4")
}

// Uniform1i implements glkit.Device. Samplers take their texture unit.
func (d *Device) Uniform1i(loc int32, v int32) {
	d.count("Uniform1i")
	d.setUniform(loc, Value{Int: v}, "int", "bool", "sampler2D", "samplerCube")
}

// UniformMatrix4f implements glkit.Device.
func (d *Device) UniformMatrix4f(loc int32, m f32.Mat4) {
	d.count("UniformMatrix4f")
	col := make([]float32, 16)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			col[c*4+r] = m[r*4+c]
		}
	}
	d.setUniform(loc, Value{Floats: col}, "mat4")
}

// UniformValue returns the last value written to the named uniform of
// program h.
func (d *Device) UniformValue(h glkit.Handle, name string) (Value, bool) {
	p, ok := d.programs[h]
	if !ok {
		return Value{}, false
	}
	for i, u := range p.uniforms {
		if u.Name == name {
			v, ok := p.values[int32(i)]
			return v, ok
		}
	}
	return Value{}, false
}

// ClearColor implements glkit.Device.
func (d *Device) ClearColor(c f32.Vec4) {
	d.count("ClearColor")
	d.clearColor = c
}

// Clear implements glkit.Device.
func (d *Device) Clear() {
	d.count("Clear")
	d.clears++
}

// ClearState returns the clear color and how many clears were issued.
func (d *Device) ClearState() (f32.Vec4, int) {
	return d.clearColor, d.clears
}

// DrawIndexed implements glkit.Device.
func (d *Device) DrawIndexed(mode glkit.Primitive, count int, typ glkit.IndexType, offset int) {
	d.count("DrawIndexed")
	if mode != glkit.Triangles || typ != glkit.IndexUint32 {
		d.report(glkit.SeverityHigh, "error", ErrInvalidEnum, "unsupported draw mode %d or index type %d", mode, typ)
		return
	}
	if count < 0 || offset < 0 || offset%4 != 0 {
		d.invalidValue("invalid draw range: count %d offset %d", count, offset)
		return
	}
	p, ok := d.programs[d.boundProgram]
	if !ok {
		d.invalidOperation("draw with no program in use")
		return
	}
	va, ok := d.arrays[d.boundArray]
	if !ok {
		d.invalidOperation("draw with no vertex array bound")
		return
	}
	ibh := d.boundBuffers[glkit.IndexBuffer]
	ib, ok := d.buffers[ibh]
	if !ok || !ib.uploaded {
		d.invalidOperation("draw with no index data bound")
		return
	}
	if offset+count*4 > len(ib.data) {
		d.invalidOperation("draw of %d indices at offset %d exceeds index buffer %d of %d bytes",
			count, offset, ibh, len(ib.data))
		return
	}

	indices := make([]uint32, count)
	for i := range indices {
		indices[i] = binary.LittleEndian.Uint32(ib.data[offset+i*4:])
	}
	d.checkFetch(va, indices)

	uniforms := make(map[string]Value, len(p.values))
	for loc, v := range p.values {
		uniforms[p.uniforms[loc].Name] = v
	}
	d.draws = append(d.draws, Draw{
		Mode:        mode,
		Count:       count,
		IndexType:   typ,
		Offset:      offset,
		Program:     d.boundProgram,
		VertexArray: d.boundArray,
		IndexBuffer: ibh,
		Indices:     indices,
		Uniforms:    uniforms,
	})
}

// checkFetch reports the first index that reads past the end of an
// attribute's source buffer.
func (d *Device) checkFetch(va *vertexArray, indices []uint32) {
	if len(indices) == 0 {
		return
	}
	maxIndex := slices.Max(indices)
	for _, a := range va.attrs {
		b, ok := d.buffers[a.buffer]
		if !ok {
			d.invalidOperation("attribute %d sources deleted buffer %d", a.Slot, a.buffer)
			return
		}
		end := int(a.Offset) + int(maxIndex)*a.Stride + a.Element().Size()
		if end > len(b.data) {
			d.report(glkit.SeverityMedium, "undefined behavior", UndefinedFetch,
				"index %d reads attribute %d past the end of buffer %d", maxIndex, a.Slot, a.buffer)
			return
		}
	}
}

// Draws returns the recorded draw calls in order.
func (d *Device) Draws() []Draw {
	return slices.Clone(d.draws)
}

// Live returns the number of objects created and not yet deleted.
func (d *Device) Live() Objects {
	return Objects{
		Buffers:      len(d.buffers),
		VertexArrays: len(d.arrays),
		Stages:       len(d.stages),
		Programs:     len(d.programs),
	}
}

// Close releases every object. It implements io.Closer.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	clear(d.buffers)
	clear(d.arrays)
	clear(d.stages)
	clear(d.programs)
	d.boundBuffers = [2]glkit.Handle{}
	d.boundArray, d.boundProgram = 0, 0
	return nil
}

var (
	_ glkit.Device           = (*Device)(nil)
	_ glkit.DiagnosticSource = (*Device)(nil)
)
