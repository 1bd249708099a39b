//go:build cgo

package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/glkit"
)

// Device is a glkit.Device issuing OpenGL calls on the current context.
type Device struct {
	handler func(glkit.Diagnostic)
}

// New loads the GL function pointers of the current context and enables
// synchronous debug output.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("opengl: init: %w", err)
	}
	gl.Enable(gl.DEBUG_OUTPUT)
	gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
	return &Device{}, nil
}

// Version returns the GL_VERSION string of the current context.
func (d *Device) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

func target(kind glkit.BufferKind) uint32 {
	if kind == glkit.IndexBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

// CreateBuffer implements glkit.Device.
func (d *Device) CreateBuffer(glkit.BufferKind) glkit.Handle {
	var h uint32
	gl.GenBuffers(1, &h)
	return glkit.Handle(h)
}

// BindBuffer implements glkit.Device.
func (d *Device) BindBuffer(kind glkit.BufferKind, h glkit.Handle) {
	gl.BindBuffer(target(kind), uint32(h))
}

// UploadBufferData implements glkit.Device.
func (d *Device) UploadBufferData(kind glkit.BufferKind, data []byte) {
	if len(data) == 0 {
		gl.BufferData(target(kind), 0, nil, gl.STATIC_DRAW)
		return
	}
	gl.BufferData(target(kind), len(data), gl.Ptr(data), gl.STATIC_DRAW)
}

// DeleteBuffer implements glkit.Device.
func (d *Device) DeleteBuffer(h glkit.Handle) {
	name := uint32(h)
	gl.DeleteBuffers(1, &name)
}

// CreateVertexArray implements glkit.Device.
func (d *Device) CreateVertexArray() glkit.Handle {
	var h uint32
	gl.GenVertexArrays(1, &h)
	return glkit.Handle(h)
}

// BindVertexArray implements glkit.Device.
func (d *Device) BindVertexArray(h glkit.Handle) {
	gl.BindVertexArray(uint32(h))
}

// DeleteVertexArray implements glkit.Device.
func (d *Device) DeleteVertexArray(h glkit.Handle) {
	name := uint32(h)
	gl.DeleteVertexArrays(1, &name)
}

func scalarType(t glkit.ScalarType) uint32 {
	switch t {
	case glkit.Float32:
		return gl.FLOAT
	case glkit.Uint32:
		return gl.UNSIGNED_INT
	case glkit.Uint8:
		return gl.UNSIGNED_BYTE
	}
	return 0
}

// EnableVertexAttribute implements glkit.Device.
func (d *Device) EnableVertexAttribute(a glkit.Attribute) {
	gl.EnableVertexAttribArray(a.Slot)
	gl.VertexAttribPointerWithOffset(a.Slot, int32(a.Count), scalarType(a.Type), a.Normalized, int32(a.Stride), a.Offset)
}

func stageType(s glkit.ShaderStage) uint32 {
	if s == glkit.StageFragment {
		return gl.FRAGMENT_SHADER
	}
	return gl.VERTEX_SHADER
}

// infoLog reads an info log through the given getters.
func infoLog(h uint32, getiv func(uint32, uint32, *int32), getLog func(uint32, int32, *int32, *uint8)) string {
	var n int32
	getiv(h, gl.INFO_LOG_LENGTH, &n)
	if n <= 0 {
		return ""
	}
	buf := strings.Repeat("\x00", int(n+1))
	getLog(h, n, nil, gl.Str(buf))
	return strings.TrimRight(buf, "\x00")
}

// CompileShaderStage implements glkit.Device.
func (d *Device) CompileShaderStage(stage glkit.ShaderStage, src string) (glkit.Handle, string) {
	h := gl.CreateShader(stageType(stage))
	csources, free := gl.Strs(src + "\x00")
	gl.ShaderSource(h, 1, csources, nil)
	free()
	gl.CompileShader(h)

	var status int32
	gl.GetShaderiv(h, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		log := infoLog(h, gl.GetShaderiv, gl.GetShaderInfoLog)
		gl.DeleteShader(h)
		return 0, log
	}
	return glkit.Handle(h), ""
}

// DeleteShaderStage implements glkit.Device.
func (d *Device) DeleteShaderStage(h glkit.Handle) {
	gl.DeleteShader(uint32(h))
}

// LinkProgram implements glkit.Device. The stages are detached after
// linking so that deleting them frees them immediately.
func (d *Device) LinkProgram(vs, fs glkit.Handle) (glkit.Handle, bool, string) {
	p := gl.CreateProgram()
	gl.AttachShader(p, uint32(vs))
	gl.AttachShader(p, uint32(fs))
	gl.LinkProgram(p)
	gl.ValidateProgram(p)
	gl.DetachShader(p, uint32(vs))
	gl.DetachShader(p, uint32(fs))

	var status int32
	gl.GetProgramiv(p, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		return glkit.Handle(p), false, infoLog(p, gl.GetProgramiv, gl.GetProgramInfoLog)
	}
	return glkit.Handle(p), true, ""
}

// UseProgram implements glkit.Device.
func (d *Device) UseProgram(h glkit.Handle) {
	gl.UseProgram(uint32(h))
}

// DeleteProgram implements glkit.Device.
func (d *Device) DeleteProgram(h glkit.Handle) {
	gl.DeleteProgram(uint32(h))
}

// UniformLocation implements glkit.Device.
func (d *Device) UniformLocation(program glkit.Handle, name string) int32 {
	return gl.GetUniformLocation(uint32(program), gl.Str(name+"\x00"))
}

// Uniform4f implements glkit.Device.
func (d *Device) Uniform4f(loc int32, v f32.Vec4) {
	gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
}

// Uniform1i implements glkit.Device.
func (d *Device) Uniform1i(loc int32, v int32) {
	gl.Uniform1i(loc, v)
}

// UniformMatrix4f implements glkit.Device. f32.Mat4 is row-major, so GL
// transposes it on upload.
func (d *Device) UniformMatrix4f(loc int32, m f32.Mat4) {
	gl.UniformMatrix4fv(loc, 1, true, &m[0])
}

// ClearColor implements glkit.Device.
func (d *Device) ClearColor(c f32.Vec4) {
	gl.ClearColor(c[0], c[1], c[2], c[3])
}

// Clear implements glkit.Device.
func (d *Device) Clear() {
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// DrawIndexed implements glkit.Device.
func (d *Device) DrawIndexed(_ glkit.Primitive, count int, _ glkit.IndexType, offset int) {
	gl.DrawElements(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, gl.PtrOffset(offset))
}
