package glkit

import (
	"errors"
	"fmt"

	"golang.org/x/image/math/f32"
)

// notFound is the location of a uniform the program does not expose.
const notFound int32 = -1

// Shader owns one linked device program built from a dual-stage source.
//
// Uniform locations are looked up on the device at most once per name:
// the first lookup is cached, including a -1 for names the program does
// not expose, and every later lookup is served from the cache.
//
// Uniform writes go to whatever program is bound; call Bind first.
type Shader struct {
	ctx      *Context
	handle   Handle
	name     string
	uniforms map[string]int32
}

// NewShader parses the shader file at path, compiles both stages and
// links them.
//
// A stage that fails to compile yields a *ShaderCompileError and a link
// failure a *ShaderLinkError; in both cases every device object created
// along the way has been released. With WithLenientLink a link failure
// is only logged and the returned Shader has no program.
func NewShader(ctx *Context, path string) (*Shader, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	src, err := ParseSourceFile(path)
	if err != nil {
		return nil, err
	}
	return NewShaderFromSource(ctx, path, src)
}

// NewShaderFromSource builds a program from already split source.
// name labels the program in errors and logs.
func NewShaderFromSource(ctx *Context, name string, src ProgramSource) (*Shader, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	s := &Shader{ctx: ctx, name: name, uniforms: make(map[string]int32)}

	vs, vsErr := s.compileStage(StageVertex, src.Vertex)
	fs, fsErr := s.compileStage(StageFragment, src.Fragment)
	if vsErr != nil || fsErr != nil {
		if vs != 0 {
			ctx.dev.DeleteShaderStage(vs)
		}
		if fs != 0 {
			ctx.dev.DeleteShaderStage(fs)
		}
		return nil, errors.Join(vsErr, fsErr)
	}

	program, err := s.link(vs, fs)
	if err != nil {
		if !ctx.opts.lenientLink {
			return nil, err
		}
		ctx.logger().Warn("continuing without program", "shader", name)
	}
	s.handle = program
	return s, nil
}

// compileStage compiles one stage. On failure it reports the compiler log
// and returns 0; the device has already released the failed object.
func (s *Shader) compileStage(stage ShaderStage, text string) (Handle, error) {
	h, log := s.ctx.dev.CompileShaderStage(stage, text)
	if h == 0 {
		err := &ShaderCompileError{Stage: stage, Log: log}
		s.ctx.logger().Error("shader compile failed", "shader", s.name, "stage", stage.String(), "log", log)
		return 0, err
	}
	return h, nil
}

// link links vs and fs into a program. The stage objects are deleted
// whether or not linking succeeds; a linked program keeps its own copy
// of the compiled code. A program that failed to link is deleted too.
func (s *Shader) link(vs, fs Handle) (Handle, error) {
	program, ok, log := s.ctx.dev.LinkProgram(vs, fs)
	s.ctx.dev.DeleteShaderStage(vs)
	s.ctx.dev.DeleteShaderStage(fs)
	if !ok {
		if program != 0 {
			s.ctx.dev.DeleteProgram(program)
		}
		s.ctx.logger().Error("program link failed", "shader", s.name, "log", log)
		return 0, &ShaderLinkError{Name: s.name, Log: log}
	}
	if program == 0 {
		return 0, fmt.Errorf("%w: program for %q", ErrAllocFailed, s.name)
	}
	s.ctx.logger().Info("program linked", "shader", s.name, "handle", program)
	return program, nil
}

// Handle returns the device program name. It is 0 after Destroy or when
// a lenient link failed.
func (s *Shader) Handle() Handle {
	return s.handle
}

// Path returns the source path or label the program was built from.
func (s *Shader) Path() string {
	return s.name
}

// Bind makes s the active program for draws and uniform writes.
func (s *Shader) Bind() {
	if s.handle == 0 {
		s.ctx.logger().Warn("bind of shader without program", "shader", s.name)
		return
	}
	s.ctx.useProgram(s.handle)
}

// Unbind clears the active program.
func (s *Shader) Unbind() {
	s.ctx.useProgram(0)
}

// Destroy releases the device program. Later calls are no-ops.
func (s *Shader) Destroy() {
	if s.handle == 0 {
		return
	}
	s.ctx.dev.DeleteProgram(s.handle)
	s.ctx.forget(TargetProgram, s.handle)
	s.ctx.logger().Debug("program destroyed", "shader", s.name, "handle", s.handle)
	s.handle = 0
}

// UniformLocation returns the location of the named uniform, or -1 if
// the program does not expose it (misspelled, or unused by the code and
// stripped by the compiler). A miss is logged once, on the first lookup.
func (s *Shader) UniformLocation(name string) int32 {
	if loc, ok := s.uniforms[name]; ok {
		return loc
	}
	if s.handle == 0 {
		return notFound
	}
	loc := s.ctx.dev.UniformLocation(s.handle, name)
	if loc == notFound {
		nf := &UniformNotFoundError{Program: s.name, Name: name}
		s.ctx.logger().Warn("uniform does not exist", "shader", s.name, "uniform", name)
		if hook := s.ctx.opts.uniformHook; hook != nil {
			hook(nf)
		}
	}
	s.uniforms[name] = loc
	return loc
}

// SetUniform4f writes a vec4 uniform.
func (s *Shader) SetUniform4f(name string, v0, v1, v2, v3 float32) {
	s.SetUniformVec4(name, f32.Vec4{v0, v1, v2, v3})
}

// SetUniformVec4 writes a vec4 uniform.
func (s *Shader) SetUniformVec4(name string, v f32.Vec4) {
	if s.handle == 0 {
		return
	}
	s.ctx.dev.Uniform4f(s.UniformLocation(name), v)
}

// SetUniform1i writes an int uniform, such as a texture unit index.
func (s *Shader) SetUniform1i(name string, v int32) {
	if s.handle == 0 {
		return
	}
	s.ctx.dev.Uniform1i(s.UniformLocation(name), v)
}

// SetUniformMat4f writes a mat4 uniform. m is row-major as f32.Mat4
// stores it; the device uploads it column-major.
func (s *Shader) SetUniformMat4f(name string, m f32.Mat4) {
	if s.handle == 0 {
		return
	}
	s.ctx.dev.UniformMatrix4f(s.UniformLocation(name), m)
}
