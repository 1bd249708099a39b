package native

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/glkit"

	// Register the Vulkan HAL backend for Open.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Device is a glkit.Device backed by a wgpu HAL device.
//
// Device is not safe for concurrent use.
type Device struct {
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance // non-nil only when Open created the device

	cfg     config
	target  *target
	handler func(glkit.Diagnostic)

	next     glkit.Handle
	buffers  map[glkit.Handle]*buffer
	arrays   map[glkit.Handle]*vertexArray
	stages   map[glkit.Handle]*stage
	programs map[glkit.Handle]*program

	boundVertex  glkit.Handle
	boundIndex   glkit.Handle
	boundArray   glkit.Handle
	boundProgram glkit.Handle

	clearColor gputypes.Color
	passes     int
	closed     bool
}

type buffer struct {
	kind glkit.BufferKind
	buf  hal.Buffer
	size int
}

// vertexArray records attribute state and the pipelines built from it,
// keyed by program.
type vertexArray struct {
	attrs     map[uint32]sourcedAttribute
	pipelines map[glkit.Handle]hal.RenderPipeline
}

type sourcedAttribute struct {
	glkit.Attribute
	buffer glkit.Handle
}

// New returns a Device drawing with device and queue. The caller keeps
// ownership of both.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.width == 0 || cfg.height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cfg.width, cfg.height)
	}
	return &Device{
		device:   device,
		queue:    queue,
		cfg:      cfg,
		buffers:  make(map[glkit.Handle]*buffer),
		arrays:   make(map[glkit.Handle]*vertexArray),
		stages:   make(map[glkit.Handle]*stage),
		programs: make(map[glkit.Handle]*program),
	}, nil
}

// Open creates a standalone Vulkan device, preferring a discrete or
// integrated GPU. The device and instance are released by Close.
func Open(opts ...Option) (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoGPU)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoGPU
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	d, err := New(openDev.Device, openDev.Queue, opts...)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	glkit.Logger().Info("native: device opened", "adapter", selected.Info.Name)
	return d, nil
}

// FromProvider returns a Device drawing with the device of a host
// application. The provider must expose HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue. Unless WithTargetFormat is given the
// target uses the provider's surface format.
func FromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProviderNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProviderNotHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProviderNotHAL)
	}
	if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		opts = append([]Option{func(c *config) { c.format = f }}, opts...)
	}
	return New(device, queue, opts...)
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
		Source:   "wgpu",
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

func (d *Device) backendError(op string, err error) {
	d.report(glkit.SeverityHigh, "error", ErrBackend, "%s: %v", op, err)
}

func (d *Device) alloc() glkit.Handle {
	d.next++
	return d.next
}

// CreateBuffer implements glkit.Device. The HAL buffer is created by the
// first upload, when its size is known.
func (d *Device) CreateBuffer(kind glkit.BufferKind) glkit.Handle {
	if d.closed {
		return 0
	}
	h := d.alloc()
	d.buffers[h] = &buffer{kind: kind}
	return h
}

// BindBuffer implements glkit.Device.
func (d *Device) BindBuffer(kind glkit.BufferKind, h glkit.Handle) {
	if h != 0 {
		b, ok := d.buffers[h]
		if !ok {
			d.invalidValue("BindBuffer: no buffer %d", h)
			return
		}
		if b.kind != kind {
			d.invalidOperation("BindBuffer: buffer %d is a %s buffer", h, b.kind)
			return
		}
	}
	switch kind {
	case glkit.VertexBuffer:
		d.boundVertex = h
	case glkit.IndexBuffer:
		d.boundIndex = h
	default:
		d.report(glkit.SeverityHigh, "error", ErrInvalidEnum, "BindBuffer: bad kind %d", kind)
	}
}

func (d *Device) bound(kind glkit.BufferKind) glkit.Handle {
	if kind == glkit.IndexBuffer {
		return d.boundIndex
	}
	return d.boundVertex
}

// UploadBufferData implements glkit.Device. A second upload replaces the
// HAL buffer.
func (d *Device) UploadBufferData(kind glkit.BufferKind, data []byte) {
	h := d.bound(kind)
	b, ok := d.buffers[h]
	if !ok {
		d.invalidOperation("UploadBufferData: no %s buffer bound", kind)
		return
	}
	usage := gputypes.BufferUsageVertex
	if kind == glkit.IndexBuffer {
		usage = gputypes.BufferUsageIndex
	}
	// Buffer sizes and copies must be 4-byte aligned.
	padded := make([]byte, (len(data)+3)&^3)
	copy(padded, data)

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("glkit_%s_%d", kind, h),
		Size:  uint64(max(len(padded), 4)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		d.backendError("create buffer", err)
		return
	}
	if b.buf != nil {
		d.device.DestroyBuffer(b.buf)
	}
	if len(padded) > 0 {
		d.queue.WriteBuffer(buf, 0, padded)
	}
	b.buf = buf
	b.size = len(data)
}

// DeleteBuffer implements glkit.Device.
func (d *Device) DeleteBuffer(h glkit.Handle) {
	b, ok := d.buffers[h]
	if !ok {
		d.invalidValue("DeleteBuffer: no buffer %d", h)
		return
	}
	if b.buf != nil {
		d.device.DestroyBuffer(b.buf)
	}
	delete(d.buffers, h)
	if d.boundVertex == h {
		d.boundVertex = 0
	}
	if d.boundIndex == h {
		d.boundIndex = 0
	}
}

// BufferSize returns the byte length last uploaded to h.
func (d *Device) BufferSize(h glkit.Handle) (int, bool) {
	b, ok := d.buffers[h]
	if !ok || b.buf == nil {
		return 0, false
	}
	return b.size, true
}

// CreateVertexArray implements glkit.Device.
func (d *Device) CreateVertexArray() glkit.Handle {
	if d.closed {
		return 0
	}
	h := d.alloc()
	d.arrays[h] = &vertexArray{
		attrs:     make(map[uint32]sourcedAttribute),
		pipelines: make(map[glkit.Handle]hal.RenderPipeline),
	}
	return h
}

// BindVertexArray implements glkit.Device.
func (d *Device) BindVertexArray(h glkit.Handle) {
	if _, ok := d.arrays[h]; h != 0 && !ok {
		d.invalidValue("BindVertexArray: no vertex array %d", h)
		return
	}
	d.boundArray = h
}

// DeleteVertexArray implements glkit.Device.
func (d *Device) DeleteVertexArray(h glkit.Handle) {
	va, ok := d.arrays[h]
	if !ok {
		d.invalidValue("DeleteVertexArray: no vertex array %d", h)
		return
	}
	d.dropPipelines(va)
	delete(d.arrays, h)
	if d.boundArray == h {
		d.boundArray = 0
	}
}

// EnableVertexAttribute implements glkit.Device. Pipelines built for the
// bound vertex array are invalidated.
func (d *Device) EnableVertexAttribute(a glkit.Attribute) {
	va, ok := d.arrays[d.boundArray]
	if !ok {
		d.invalidOperation("EnableVertexAttribute: no vertex array bound")
		return
	}
	if d.boundVertex == 0 {
		d.invalidOperation("EnableVertexAttribute: no vertex buffer bound")
		return
	}
	if _, err := a.Element().VertexFormat(); err != nil {
		d.invalidValue("EnableVertexAttribute: slot %d: %v", a.Slot, err)
		return
	}
	va.attrs[a.Slot] = sourcedAttribute{Attribute: a, buffer: d.boundVertex}
	d.dropPipelines(va)
}

func (d *Device) dropPipelines(va *vertexArray) {
	for p, pipe := range va.pipelines {
		d.device.DestroyRenderPipeline(pipe)
		delete(va.pipelines, p)
	}
}

// Pipelines returns how many render pipelines are cached for the vertex
// array h.
func (d *Device) Pipelines(h glkit.Handle) int {
	va, ok := d.arrays[h]
	if !ok {
		return 0
	}
	return len(va.pipelines)
}

// ClearColor implements glkit.Device.
func (d *Device) ClearColor(c f32.Vec4) {
	d.clearColor = gputypes.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
}

// Passes returns how many render passes were submitted.
func (d *Device) Passes() int {
	return d.passes
}

// Close releases every object still alive and the offscreen target. If
// the device was created by Open, the HAL device and instance are
// destroyed too. Close is idempotent.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	for h := range d.programs {
		d.DeleteProgram(h)
	}
	for h := range d.arrays {
		d.DeleteVertexArray(h)
	}
	for h := range d.stages {
		d.DeleteShaderStage(h)
	}
	for h := range d.buffers {
		d.DeleteBuffer(h)
	}
	d.destroyTarget()
	if d.instance != nil {
		d.device.Destroy()
		d.instance.Destroy()
		d.instance = nil
	}
	return nil
}
