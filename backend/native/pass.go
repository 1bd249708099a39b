package native

import (
	"fmt"
	"image"
	"slices"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/glkit"
)

const (
	// copyPitchAlignment is the required BytesPerRow alignment of
	// texture to buffer copies.
	copyPitchAlignment = 256
	submitTimeout      = 5 * time.Second
)

// target is the offscreen color attachment every pass renders into.
type target struct {
	tex  hal.Texture
	view hal.TextureView
}

func (d *Device) ensureTarget() (*target, error) {
	if d.target != nil {
		return d.target, nil
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "glkit_target",
		Size:          hal.Extent3D{Width: d.cfg.width, Height: d.cfg.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        d.cfg.format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create target texture: %w", err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "glkit_target_view"})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create target view: %w", err)
	}
	d.target = &target{tex: tex, view: view}
	return d.target, nil
}

func (d *Device) destroyTarget() {
	if d.target == nil {
		return
	}
	d.device.DestroyTextureView(d.target.view)
	d.device.DestroyTexture(d.target.tex)
	d.target = nil
}

// Size returns the size of the offscreen target.
func (d *Device) Size() (width, height uint32) {
	return d.cfg.width, d.cfg.height
}

// Format returns the format of the offscreen target.
func (d *Device) Format() gputypes.TextureFormat {
	return d.cfg.format
}

// Clear implements glkit.Device.
func (d *Device) Clear() {
	if err := d.pass(gputypes.LoadOpClear, nil); err != nil {
		d.backendError("clear", err)
	}
}

// DrawIndexed implements glkit.Device.
func (d *Device) DrawIndexed(mode glkit.Primitive, count int, typ glkit.IndexType, offset int) {
	if mode != glkit.Triangles {
		d.report(glkit.SeverityHigh, "error", ErrInvalidEnum, "DrawIndexed: bad mode %d", mode)
		return
	}
	if typ != glkit.IndexUint32 {
		d.report(glkit.SeverityHigh, "error", ErrInvalidEnum, "DrawIndexed: bad index type %d", typ)
		return
	}
	if count < 0 || offset < 0 || offset%4 != 0 {
		d.invalidValue("DrawIndexed: count %d, offset %d", count, offset)
		return
	}
	p, ok := d.programs[d.boundProgram]
	if !ok {
		d.invalidOperation("DrawIndexed: no program in use")
		return
	}
	va, ok := d.arrays[d.boundArray]
	if !ok {
		d.invalidOperation("DrawIndexed: no vertex array bound")
		return
	}
	ib, ok := d.buffers[d.boundIndex]
	if !ok || ib.buf == nil {
		d.invalidOperation("DrawIndexed: no index data bound")
		return
	}
	if offset+count*4 > ib.size {
		d.invalidOperation("DrawIndexed: %d indices at offset %d exceed %d byte index buffer", count, offset, ib.size)
		return
	}
	if count == 0 {
		return
	}

	pipe, vbufs, err := d.pipeline(d.boundProgram, p, va)
	if err != nil {
		d.backendError("create pipeline", err)
		return
	}
	err = d.pass(gputypes.LoadOpLoad, func(rp hal.RenderPassEncoder) {
		rp.SetPipeline(pipe)
		if p.group != nil {
			rp.SetBindGroup(0, p.group, nil)
		}
		for slot, buf := range vbufs {
			rp.SetVertexBuffer(uint32(slot), buf, 0)
		}
		rp.SetIndexBuffer(ib.buf, gputypes.IndexFormatUint32, 0)
		rp.DrawIndexed(uint32(count), 1, uint32(offset/4), 0, 0)
	})
	if err != nil {
		d.backendError("draw", err)
	}
}

// vertexGroup is the attributes sourced from one vertex buffer.
type vertexGroup struct {
	buffer glkit.Handle
	stride int
	attrs  []gputypes.VertexAttribute
}

// vertexGroups groups the attributes of va by source buffer, in order of
// their lowest slot.
func vertexGroups(va *vertexArray) ([]vertexGroup, error) {
	slots := make([]uint32, 0, len(va.attrs))
	for s := range va.attrs {
		slots = append(slots, s)
	}
	slices.Sort(slots)

	var groups []vertexGroup
	index := make(map[glkit.Handle]int)
	for _, s := range slots {
		a := va.attrs[s]
		format, err := a.Element().VertexFormat()
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", s, err)
		}
		i, ok := index[a.buffer]
		if !ok {
			i = len(groups)
			index[a.buffer] = i
			groups = append(groups, vertexGroup{buffer: a.buffer, stride: a.Stride})
		}
		if groups[i].stride != a.Stride {
			return nil, fmt.Errorf("slot %d: stride %d differs from %d of buffer %d", s, a.Stride, groups[i].stride, a.buffer)
		}
		groups[i].attrs = append(groups[i].attrs, gputypes.VertexAttribute{
			Format:         format,
			Offset:         uint64(a.Offset),
			ShaderLocation: a.Slot,
		})
	}
	return groups, nil
}

// pipeline returns the render pipeline for program p drawing from va,
// creating and caching it on first use, and the vertex buffers to bind
// in slot order.
func (d *Device) pipeline(ph glkit.Handle, p *program, va *vertexArray) (hal.RenderPipeline, []hal.Buffer, error) {
	groups, err := vertexGroups(va)
	if err != nil {
		return nil, nil, err
	}
	vbufs := make([]hal.Buffer, 0, len(groups))
	layouts := make([]gputypes.VertexBufferLayout, 0, len(groups))
	for _, g := range groups {
		b, ok := d.buffers[g.buffer]
		if !ok || b.buf == nil {
			return nil, nil, fmt.Errorf("vertex buffer %d has no data", g.buffer)
		}
		vbufs = append(vbufs, b.buf)
		layouts = append(layouts, gputypes.VertexBufferLayout{
			ArrayStride: uint64(g.stride),
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes:  g.attrs,
		})
	}
	if pipe, ok := va.pipelines[ph]; ok {
		return pipe, vbufs, nil
	}

	pipe, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("glkit_pipeline_%d", ph),
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.vs.module,
			EntryPoint: p.vs.entry,
			Buffers:    layouts,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &hal.FragmentState{
			Module:     p.fs.module,
			EntryPoint: p.fs.entry,
			Targets: []gputypes.ColorTargetState{{
				Format:    d.cfg.format,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return nil, nil, err
	}
	va.pipelines[ph] = pipe
	glkit.Logger().Debug("native: pipeline created", "program", ph, "buffers", len(layouts))
	return pipe, vbufs, nil
}

// pass records one render pass into the target, submits it and waits for
// completion. record may be nil for a clear-only pass.
func (d *Device) pass(load gputypes.LoadOp, record func(hal.RenderPassEncoder)) error {
	if d.closed {
		return ErrClosed
	}
	t, err := d.ensureTarget()
	if err != nil {
		return err
	}
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "glkit_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("glkit_pass"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "glkit_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       t.view,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: d.clearColor,
		}},
	})
	if record != nil {
		record(rp)
	}
	rp.End()

	if err := d.submit(encoder); err != nil {
		return err
	}
	d.passes++
	return nil
}

func (d *Device) submit(encoder hal.CommandEncoder) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, submitTimeout)
	if err != nil || !ok {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", ok, err)
	}
	return nil
}

// ReadPixels copies the offscreen target back to the CPU.
func (d *Device) ReadPixels() (*image.RGBA, error) {
	if d.closed {
		return nil, ErrClosed
	}
	swizzle := false
	switch d.cfg.format {
	case gputypes.TextureFormatRGBA8Unorm:
	case gputypes.TextureFormatBGRA8Unorm:
		swizzle = true
	default:
		return nil, fmt.Errorf("native: cannot read back target format %v", d.cfg.format)
	}
	t, err := d.ensureTarget()
	if err != nil {
		return nil, err
	}

	w, h := d.cfg.width, d.cfg.height
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "glkit_readback"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("glkit_readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "glkit_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	if err := d.submit(encoder); err != nil {
		return nil, err
	}

	readback := make([]byte, stagingSize)
	if err := d.queue.ReadBuffer(staging, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := range int(h) {
		src := readback[row*int(alignedBytesPerRow):][:bytesPerRow]
		dst := img.Pix[row*img.Stride:][:bytesPerRow]
		copy(dst, src)
		if swizzle {
			for i := 0; i < len(dst); i += 4 {
				dst[i], dst[i+2] = dst[i+2], dst[i]
			}
		}
	}
	return img, nil
}
