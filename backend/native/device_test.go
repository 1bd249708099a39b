package native

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/glkit"
	"github.com/gogpu/glkit/backend"
)

const vertexWGSL = `
@group(0) @binding(0) var<uniform> u_Color: vec4<f32>;

@vertex
fn vs_main(@location(0) position: vec2<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 0.0, 1.0);
}
`

const fragmentWGSL = `
@group(0) @binding(0) var<uniform> u_Color: vec4<f32>;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return u_Color;
}
`

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

// newTestDevice returns a Device over the noop backend and the diagnostics
// it reports.
func newTestDevice(t *testing.T, opts ...Option) (*Device, *[]glkit.Diagnostic) {
	t.Helper()
	device, queue := createNoopDevice(t)
	d, err := New(device, queue, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	var diags []glkit.Diagnostic
	d.SetDiagnosticHandler(func(dg glkit.Diagnostic) { diags = append(diags, dg) })
	return d, &diags
}

func TestNewRejectsNil(t *testing.T) {
	if _, err := New(nil, nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("New(nil, nil) error = %v, want ErrNilDevice", err)
	}
}

func TestNewInvalidDimensions(t *testing.T) {
	device, queue := createNoopDevice(t)
	_, err := New(device, queue, WithTargetSize(0, 64))
	if !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("error = %v, want ErrInvalidDimensions", err)
	}
}

func TestOptions(t *testing.T) {
	d, _ := newTestDevice(t, WithTargetSize(64, 32), WithTargetFormat(gputypes.TextureFormatBGRA8Unorm))
	if w, h := d.Size(); w != 64 || h != 32 {
		t.Errorf("Size() = %dx%d, want 64x32", w, h)
	}
	if d.Format() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format() = %v, want BGRA8Unorm", d.Format())
	}
}

func TestScanStage(t *testing.T) {
	tests := []struct {
		name     string
		kind     glkit.ShaderStage
		src      string
		entry    string
		uniforms []uniform
		wantErr  string
	}{
		{
			name:     "vertex",
			kind:     glkit.StageVertex,
			src:      vertexWGSL,
			entry:    "vs_main",
			uniforms: []uniform{{name: "u_Color", binding: 0, typ: typeVec4, size: 16}},
		},
		{
			name:  "fragment",
			kind:  glkit.StageFragment,
			src:   fragmentWGSL,
			entry: "fs_main",
			uniforms: []uniform{
				{name: "u_Color", binding: 0, typ: typeVec4, size: 16},
			},
		},
		{
			name:    "wrong stage",
			kind:    glkit.StageFragment,
			src:     vertexWGSL,
			wantErr: "no @fragment entry point",
		},
		{
			name: "matrix and int",
			kind: glkit.StageVertex,
			src: `@group(0) @binding(2) var<uniform> u_MVP: mat4x4f;
@group(0) @binding(1) var<uniform> u_Texture: i32;
@vertex fn main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }`,
			entry: "main",
			uniforms: []uniform{
				{name: "u_MVP", binding: 2, typ: typeMat4, size: 64},
				{name: "u_Texture", binding: 1, typ: typeInt, size: 4},
			},
		},
		{
			name: "unsupported type",
			kind: glkit.StageVertex,
			src: `@group(0) @binding(0) var<uniform> u_Scale: vec2<f32>;
@vertex fn main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }`,
			wantErr: "unsupported type vec2<f32>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, uniforms, err := scanStage(tt.kind, tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if entry != tt.entry {
				t.Errorf("entry = %q, want %q", entry, tt.entry)
			}
			if len(uniforms) != len(tt.uniforms) {
				t.Fatalf("uniforms = %+v, want %+v", uniforms, tt.uniforms)
			}
			for i := range uniforms {
				if uniforms[i] != tt.uniforms[i] {
					t.Errorf("uniforms[%d] = %+v, want %+v", i, uniforms[i], tt.uniforms[i])
				}
			}
		})
	}
}

func TestMergeUniforms(t *testing.T) {
	color := uniform{name: "u_Color", binding: 1, typ: typeVec4, size: 16}
	mvp := uniform{name: "u_MVP", binding: 0, typ: typeMat4, size: 64}

	got, err := mergeUniforms([]uniform{color, mvp}, []uniform{color})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if len(got) != 2 || got[0] != mvp || got[1] != color {
		t.Errorf("merged = %+v, want [u_MVP u_Color]", got)
	}

	clash := uniform{name: "u_Color", binding: 1, typ: typeInt, size: 4}
	if _, err := mergeUniforms([]uniform{color}, []uniform{clash}); err == nil {
		t.Error("conflicting declarations merged")
	}
	shared := uniform{name: "u_Other", binding: 1, typ: typeVec4, size: 16}
	if _, err := mergeUniforms([]uniform{color}, []uniform{shared}); err == nil {
		t.Error("shared binding merged")
	}
}

func TestColumnMajor(t *testing.T) {
	m := f32.Mat4{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}
	want := []float32{1, 5, 9, 13, 2, 6, 10, 14, 3, 7, 11, 15, 4, 8, 12, 16}
	got := columnMajor(m)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("columnMajor = %v, want %v", got, want)
		}
	}
}

func TestVertexGroups(t *testing.T) {
	va := &vertexArray{attrs: map[uint32]sourcedAttribute{
		2: {Attribute: glkit.Attribute{Slot: 2, Count: 2, Type: glkit.Float32, Stride: 8}, buffer: 9},
		0: {Attribute: glkit.Attribute{Slot: 0, Count: 2, Type: glkit.Float32, Stride: 12}, buffer: 4},
		1: {Attribute: glkit.Attribute{Slot: 1, Count: 4, Type: glkit.Uint8, Normalized: true, Stride: 12, Offset: 8}, buffer: 4},
	}}
	groups, err := vertexGroups(va)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0].buffer != 4 || groups[0].stride != 12 || len(groups[0].attrs) != 2 {
		t.Errorf("group 0 = %+v", groups[0])
	}
	if a := groups[0].attrs[1]; a.Format != gputypes.VertexFormatUnorm8x4 || a.Offset != 8 || a.ShaderLocation != 1 {
		t.Errorf("group 0 attr 1 = %+v", a)
	}
	if groups[1].buffer != 9 || groups[1].attrs[0].ShaderLocation != 2 {
		t.Errorf("group 1 = %+v", groups[1])
	}
}

func TestBufferUpload(t *testing.T) {
	d, diags := newTestDevice(t)
	h := d.CreateBuffer(glkit.VertexBuffer)
	d.BindBuffer(glkit.VertexBuffer, h)
	d.UploadBufferData(glkit.VertexBuffer, []byte{1, 2, 3, 4, 5, 6})
	if n, ok := d.BufferSize(h); !ok || n != 6 {
		t.Errorf("BufferSize() = %d, %v, want 6, true", n, ok)
	}
	d.BindBuffer(glkit.IndexBuffer, h)
	if len(*diags) != 1 || (*diags)[0].ID != ErrInvalidOperation {
		t.Errorf("diagnostics = %v, want one invalid operation", *diags)
	}
	d.DeleteBuffer(h)
	if _, ok := d.BufferSize(h); ok {
		t.Error("deleted buffer still has a size")
	}
}

func TestCompileAndLink(t *testing.T) {
	d, diags := newTestDevice(t)
	vs, log := d.CompileShaderStage(glkit.StageVertex, vertexWGSL)
	if vs == 0 {
		t.Fatalf("vertex compile failed: %s", log)
	}
	fs, log := d.CompileShaderStage(glkit.StageFragment, fragmentWGSL)
	if fs == 0 {
		t.Fatalf("fragment compile failed: %s", log)
	}
	p, ok, log := d.LinkProgram(vs, fs)
	if !ok || p == 0 {
		t.Fatalf("link failed: %s", log)
	}
	vsStage := d.stages[vs]
	d.DeleteShaderStage(vs)
	d.DeleteShaderStage(fs)
	if vsStage.module == nil {
		t.Error("stage module released while the program uses it")
	}

	if loc := d.UniformLocation(p, "u_Color"); loc != 0 {
		t.Errorf("UniformLocation(u_Color) = %d, want 0", loc)
	}
	if loc := d.UniformLocation(p, "u_Missing"); loc != -1 {
		t.Errorf("UniformLocation(u_Missing) = %d, want -1", loc)
	}

	d.UseProgram(p)
	d.Uniform4f(0, f32.Vec4{1, 0, 0, 1})
	d.Uniform4f(-1, f32.Vec4{})
	if len(*diags) != 0 {
		t.Errorf("diagnostics = %v, want none", *diags)
	}
	d.Uniform1i(0, 3)
	if len(*diags) != 1 || (*diags)[0].ID != ErrInvalidOperation {
		t.Errorf("diagnostics = %v, want type mismatch", *diags)
	}

	d.DeleteProgram(p)
	if vsStage.module != nil {
		t.Error("stage module kept after its program was deleted")
	}
}

func TestCompileErrors(t *testing.T) {
	d, _ := newTestDevice(t)
	tests := []struct {
		name string
		kind glkit.ShaderStage
		src  string
	}{
		{"no entry point", glkit.StageVertex, fragmentWGSL},
		{"undefined identifier", glkit.StageFragment, `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return not_declared;
}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, log := d.CompileShaderStage(tt.kind, tt.src)
			if h != 0 {
				t.Errorf("handle = %d, want 0", h)
			}
			if log == "" {
				t.Error("empty info log")
			}
		})
	}
}

func TestLinkWrongStages(t *testing.T) {
	d, _ := newTestDevice(t)
	vs, _ := d.CompileShaderStage(glkit.StageVertex, vertexWGSL)
	fs, _ := d.CompileShaderStage(glkit.StageFragment, fragmentWGSL)
	p, ok, log := d.LinkProgram(fs, vs)
	if ok || p != 0 {
		t.Fatalf("LinkProgram(fs, vs) = %d, %v", p, ok)
	}
	if !strings.Contains(log, "not a vertex shader") {
		t.Errorf("log = %q", log)
	}
}

func TestDrawThroughContext(t *testing.T) {
	d, _ := newTestDevice(t)
	rep := &glkit.CaptureReporter{}
	ctx, err := glkit.NewContext(d, glkit.WithReporter(rep))
	if err != nil {
		t.Fatal(err)
	}

	vb, err := glkit.NewVertexBufferOf(ctx, []float32{-0.5, -0.5, 0.5, -0.5, 0.5, 0.5, -0.5, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	layout := glkit.NewVertexLayout()
	if err := glkit.PushOf[float32](layout, 2); err != nil {
		t.Fatal(err)
	}
	va, err := glkit.NewVertexArray(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := va.AddBuffer(vb, layout); err != nil {
		t.Fatal(err)
	}
	ib, err := glkit.NewIndexBuffer(ctx, []uint32{0, 1, 2, 2, 3, 0})
	if err != nil {
		t.Fatal(err)
	}
	sh, err := glkit.NewShaderFromSource(ctx, "quad", glkit.ProgramSource{Vertex: vertexWGSL, Fragment: fragmentWGSL})
	if err != nil {
		t.Fatal(err)
	}
	r, err := glkit.NewRenderer(ctx)
	if err != nil {
		t.Fatal(err)
	}

	sh.Bind()
	sh.SetUniform4f("u_Color", 0.2, 0.3, 0.8, 1.0)
	if err := r.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	for range 2 {
		if err := r.Draw(va, ib, sh); err != nil {
			t.Fatalf("Draw() error = %v", err)
		}
	}
	if n := d.Pipelines(va.Handle()); n != 1 {
		t.Errorf("Pipelines() = %d, want 1", n)
	}
	if d.Passes() != 3 {
		t.Errorf("Passes() = %d, want 3", d.Passes())
	}
	if got := rep.Diagnostics(); len(got) != 0 {
		t.Errorf("diagnostics = %v, want none", got)
	}

	sh.Destroy()
	if n := d.Pipelines(va.Handle()); n != 0 {
		t.Errorf("Pipelines() after program delete = %d, want 0", n)
	}
	ib.Destroy()
	va.Destroy()
	vb.Destroy()
	if err := ctx.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDrawValidation(t *testing.T) {
	tests := []struct {
		name   string
		mode   glkit.Primitive
		count  int
		offset int
		want   uint32
	}{
		{"bad mode", glkit.Primitive(7), 3, 0, ErrInvalidEnum},
		{"negative count", glkit.Triangles, -1, 0, ErrInvalidValue},
		{"unaligned offset", glkit.Triangles, 3, 2, ErrInvalidValue},
		{"no program", glkit.Triangles, 3, 0, ErrInvalidOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, diags := newTestDevice(t)
			d.DrawIndexed(tt.mode, tt.count, glkit.IndexUint32, tt.offset)
			if len(*diags) != 1 || (*diags)[0].ID != tt.want {
				t.Errorf("diagnostics = %v, want id %#x", *diags, tt.want)
			}
			if d.Passes() != 0 {
				t.Errorf("Passes() = %d, want 0", d.Passes())
			}
		})
	}
}

func TestReadPixelsUnsupportedFormat(t *testing.T) {
	d, _ := newTestDevice(t, WithTargetFormat(gputypes.TextureFormatR8Unorm))
	if _, err := d.ReadPixels(); err == nil {
		t.Error("ReadPixels() succeeded for an R8 target")
	}
}

func TestClose(t *testing.T) {
	d, _ := newTestDevice(t)
	h := d.CreateBuffer(glkit.IndexBuffer)
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, ok := d.buffers[h]; ok {
		t.Error("buffer survived Close")
	}
	if h := d.CreateBuffer(glkit.VertexBuffer); h != 0 {
		t.Errorf("CreateBuffer after Close = %d, want 0", h)
	}
	if _, err := d.ReadPixels(); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadPixels after Close error = %v, want ErrClosed", err)
	}
}

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.BackendNative) {
		t.Error("native backend not registered")
	}
}
