package native

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/glkit"
)

var (
	vertexEntry   = regexp.MustCompile(`@vertex\s+fn\s+(\w+)`)
	fragmentEntry = regexp.MustCompile(`@fragment\s+fn\s+(\w+)`)
	uniformDecl   = regexp.MustCompile(
		`@group\(\s*0\s*\)\s*@binding\(\s*(\d+)\s*\)\s*var<uniform>\s+(\w+)\s*:\s*([\w<>]+)\s*;`)
)

// Uniform types accepted in bind group 0.
const (
	typeVec4 = "vec4"
	typeInt  = "int"
	typeMat4 = "mat4"
)

// uniform is one uniform variable declared by a stage.
type uniform struct {
	name    string
	binding uint32
	typ     string
	size    uint64
}

// uniformType maps a WGSL type to the glkit uniform type and its byte size.
func uniformType(wgsl string) (string, uint64, bool) {
	switch wgsl {
	case "vec4<f32>", "vec4f":
		return typeVec4, 16, true
	case "i32":
		return typeInt, 4, true
	case "mat4x4<f32>", "mat4x4f":
		return typeMat4, 64, true
	}
	return "", 0, false
}

// stage is a compiled shader module. A linked program holds a reference,
// so the module outlives DeleteShaderStage until the program is deleted.
type stage struct {
	kind     glkit.ShaderStage
	module   hal.ShaderModule
	entry    string
	uniforms []uniform
	refs     int
	deleted  bool
}

// scanStage finds the entry point and uniform declarations of src.
func scanStage(kind glkit.ShaderStage, src string) (string, []uniform, error) {
	re := vertexEntry
	if kind == glkit.StageFragment {
		re = fragmentEntry
	}
	m := re.FindStringSubmatch(src)
	if m == nil {
		return "", nil, fmt.Errorf("no @%s entry point", kind)
	}
	entry := m[1]

	var uniforms []uniform
	for _, d := range uniformDecl.FindAllStringSubmatch(src, -1) {
		binding, err := strconv.ParseUint(d[1], 10, 32)
		if err != nil {
			return "", nil, fmt.Errorf("uniform %s: binding %q: %w", d[2], d[1], err)
		}
		typ, size, ok := uniformType(d[3])
		if !ok {
			return "", nil, fmt.Errorf("uniform %s: unsupported type %s", d[2], d[3])
		}
		uniforms = append(uniforms, uniform{name: d[2], binding: uint32(binding), typ: typ, size: size})
	}
	return entry, uniforms, nil
}

// compileWGSL compiles src with naga and returns SPIR-V words.
func compileWGSL(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, err
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// mergeUniforms combines the uniforms of both stages into one table sorted
// by binding. A name or binding declared differently by the two stages is
// a link error.
func mergeUniforms(vs, fs []uniform) ([]uniform, error) {
	byName := make(map[string]uniform)
	byBinding := make(map[uint32]string)
	var out []uniform
	for _, u := range slices.Concat(vs, fs) {
		if prev, ok := byName[u.name]; ok {
			if prev != u {
				return nil, fmt.Errorf("uniform %s declared differently in vertex and fragment stage", u.name)
			}
			continue
		}
		if other, ok := byBinding[u.binding]; ok {
			return nil, fmt.Errorf("binding %d used by both %s and %s", u.binding, other, u.name)
		}
		byName[u.name] = u
		byBinding[u.binding] = u.name
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b uniform) int { return int(a.binding) - int(b.binding) })
	return out, nil
}

// CompileShaderStage implements glkit.Device.
func (d *Device) CompileShaderStage(kind glkit.ShaderStage, src string) (glkit.Handle, string) {
	entry, uniforms, err := scanStage(kind, src)
	if err != nil {
		return 0, err.Error()
	}
	words, err := compileWGSL(src)
	if err != nil {
		return 0, err.Error()
	}
	h := d.alloc()
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: fmt.Sprintf("glkit_%s_%d", kind, h),
		Source: hal.ShaderSource{
			SPIRV: words,
		},
	})
	if err != nil {
		return 0, fmt.Sprintf("create shader module: %v", err)
	}
	d.stages[h] = &stage{kind: kind, module: module, entry: entry, uniforms: uniforms}
	return h, ""
}

// DeleteShaderStage implements glkit.Device.
func (d *Device) DeleteShaderStage(h glkit.Handle) {
	s, ok := d.stages[h]
	if !ok {
		d.invalidValue("DeleteShaderStage: no shader %d", h)
		return
	}
	delete(d.stages, h)
	s.deleted = true
	d.release(s)
}

// release destroys the module of s once nothing refers to it.
func (d *Device) release(s *stage) {
	if s.deleted && s.refs == 0 && s.module != nil {
		d.device.DestroyShaderModule(s.module)
		s.module = nil
	}
}
