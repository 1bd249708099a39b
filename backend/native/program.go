package native

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/glkit"
)

// uniformSlot is a uniform together with the buffer backing it.
type uniformSlot struct {
	uniform
	buf hal.Buffer
}

type program struct {
	vs, fs     *stage
	uniforms   []uniformSlot // sorted by binding
	groupLay   hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	group      hal.BindGroup
}

func (p *program) slot(loc int32) *uniformSlot {
	for i := range p.uniforms {
		if int32(p.uniforms[i].binding) == loc {
			return &p.uniforms[i]
		}
	}
	return nil
}

// LinkProgram implements glkit.Device. The program takes a reference on
// both stages. A failed link allocates nothing and returns handle 0.
func (d *Device) LinkProgram(vsh, fsh glkit.Handle) (glkit.Handle, bool, string) {
	vs, ok := d.stages[vsh]
	if !ok || vs.kind != glkit.StageVertex {
		return 0, false, fmt.Sprintf("link: %d is not a vertex shader", vsh)
	}
	fs, ok := d.stages[fsh]
	if !ok || fs.kind != glkit.StageFragment {
		return 0, false, fmt.Sprintf("link: %d is not a fragment shader", fsh)
	}
	merged, err := mergeUniforms(vs.uniforms, fs.uniforms)
	if err != nil {
		return 0, false, "link: " + err.Error()
	}

	h := d.alloc()
	p := &program{vs: vs, fs: fs}
	if err := d.createBindings(h, p, merged); err != nil {
		d.destroyBindings(p)
		return 0, false, "link: " + err.Error()
	}
	vs.refs++
	fs.refs++
	d.programs[h] = p
	return h, true, ""
}

// createBindings allocates one uniform buffer per uniform plus the bind
// group exposing them, and the pipeline layout every pipeline of the
// program is created with.
func (d *Device) createBindings(h glkit.Handle, p *program, uniforms []uniform) error {
	var layouts []hal.BindGroupLayout
	if len(uniforms) > 0 {
		entries := make([]gputypes.BindGroupLayoutEntry, 0, len(uniforms))
		for _, u := range uniforms {
			buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
				Label: fmt.Sprintf("glkit_uniform_%d_%s", h, u.name),
				Size:  max(u.size, 16),
				Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
			})
			if err != nil {
				return fmt.Errorf("create uniform buffer %s: %w", u.name, err)
			}
			p.uniforms = append(p.uniforms, uniformSlot{uniform: u, buf: buf})
			entries = append(entries, gputypes.BindGroupLayoutEntry{
				Binding:    u.binding,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			})
		}

		lay, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("glkit_uniform_layout_%d", h),
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("create bind group layout: %w", err)
		}
		p.groupLay = lay
		layouts = append(layouts, lay)

		bindings := make([]gputypes.BindGroupEntry, 0, len(p.uniforms))
		for _, s := range p.uniforms {
			bindings = append(bindings, gputypes.BindGroupEntry{
				Binding: s.binding,
				Resource: gputypes.BufferBinding{
					Buffer: s.buf.NativeHandle(), Offset: 0, Size: s.size,
				},
			})
		}
		group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("glkit_uniform_group_%d", h),
			Layout:  lay,
			Entries: bindings,
		})
		if err != nil {
			return fmt.Errorf("create bind group: %w", err)
		}
		p.group = group
	}

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            fmt.Sprintf("glkit_pipe_layout_%d", h),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout
	return nil
}

func (d *Device) destroyBindings(p *program) {
	if p.group != nil {
		d.device.DestroyBindGroup(p.group)
		p.group = nil
	}
	if p.pipeLayout != nil {
		d.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.groupLay != nil {
		d.device.DestroyBindGroupLayout(p.groupLay)
		p.groupLay = nil
	}
	for _, s := range p.uniforms {
		d.device.DestroyBuffer(s.buf)
	}
	p.uniforms = nil
}

// UseProgram implements glkit.Device.
func (d *Device) UseProgram(h glkit.Handle) {
	if _, ok := d.programs[h]; h != 0 && !ok {
		d.invalidValue("UseProgram: no program %d", h)
		return
	}
	d.boundProgram = h
}

// DeleteProgram implements glkit.Device. Pipelines built for the program
// are destroyed and the stage references are dropped.
func (d *Device) DeleteProgram(h glkit.Handle) {
	p, ok := d.programs[h]
	if !ok {
		d.invalidValue("DeleteProgram: no program %d", h)
		return
	}
	for _, va := range d.arrays {
		if pipe, ok := va.pipelines[h]; ok {
			d.device.DestroyRenderPipeline(pipe)
			delete(va.pipelines, h)
		}
	}
	d.destroyBindings(p)
	p.vs.refs--
	p.fs.refs--
	d.release(p.vs)
	d.release(p.fs)
	delete(d.programs, h)
	if d.boundProgram == h {
		d.boundProgram = 0
	}
}

// UniformLocation implements glkit.Device. The location is the binding
// number of the uniform in group 0.
func (d *Device) UniformLocation(h glkit.Handle, name string) int32 {
	p, ok := d.programs[h]
	if !ok {
		d.invalidOperation("UniformLocation: no program %d", h)
		return -1
	}
	for _, s := range p.uniforms {
		if s.name == name {
			return int32(s.binding)
		}
	}
	return -1
}

// writeUniform stores data in the uniform at loc of the bound program.
func (d *Device) writeUniform(loc int32, typ string, data []byte) {
	if loc == -1 {
		return
	}
	p, ok := d.programs[d.boundProgram]
	if !ok {
		d.invalidOperation("uniform write with no program in use")
		return
	}
	s := p.slot(loc)
	if s == nil {
		d.invalidOperation("uniform location %d is not valid for program %d", loc, d.boundProgram)
		return
	}
	if s.typ != typ {
		d.invalidOperation("uniform %s is %s, not %s", s.name, s.typ, typ)
		return
	}
	d.queue.WriteBuffer(s.buf, 0, data)
}

func appendFloats(b []byte, fs ...float32) []byte {
	for _, f := range fs {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}

// Uniform4f implements glkit.Device.
func (d *Device) Uniform4f(loc int32, v f32.Vec4) {
	d.writeUniform(loc, typeVec4, appendFloats(nil, v[:]...))
}

// Uniform1i implements glkit.Device.
func (d *Device) Uniform1i(loc int32, v int32) {
	d.writeUniform(loc, typeInt, binary.LittleEndian.AppendUint32(nil, uint32(v)))
}

// UniformMatrix4f implements glkit.Device. WGSL matrices are column-major,
// so m is transposed on upload.
func (d *Device) UniformMatrix4f(loc int32, m f32.Mat4) {
	d.writeUniform(loc, typeMat4, appendFloats(nil, columnMajor(m)...))
}

func columnMajor(m f32.Mat4) []float32 {
	out := make([]float32, 0, 16)
	for col := range 4 {
		for row := range 4 {
			out = append(out, m[row*4+col])
		}
	}
	return out
}
