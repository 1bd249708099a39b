package glkit_test

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/glkit"
	"github.com/gogpu/glkit/backend/software"
)

func newSoftwareContext(t *testing.T, opts ...glkit.Option) (*glkit.Context, *software.Device) {
	t.Helper()
	dev := software.New()
	ctx, err := glkit.NewContext(dev, opts...)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx, dev
}

func TestQuadEndToEnd(t *testing.T) {
	rep := &glkit.CaptureReporter{}
	ctx, dev := newSoftwareContext(t, glkit.WithReporter(rep))

	// position (float32 x2) followed by colour (uint8 x4) in one record.
	type vertex struct {
		x, y       float32
		r, g, b, a uint8
	}
	verts := []vertex{
		{-0.5, -0.5, 255, 0, 0, 255},
		{0.5, -0.5, 0, 255, 0, 255},
		{0.5, 0.5, 0, 0, 255, 255},
		{-0.5, 0.5, 255, 255, 255, 0},
	}
	var raw []byte
	for _, v := range verts {
		raw = append(raw, packFloats(v.x, v.y)...)
		raw = append(raw, v.r, v.g, v.b, v.a)
	}

	vb, err := glkit.NewVertexBuffer(ctx, raw)
	if err != nil {
		t.Fatal(err)
	}
	layout := glkit.NewVertexLayout()
	if err := glkit.PushOf[float32](layout, 2); err != nil {
		t.Fatal(err)
	}
	if err := glkit.PushOf[uint8](layout, 4); err != nil {
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
	sh, err := glkit.NewShader(ctx, "testdata/basic.shader")
	if err != nil {
		t.Fatalf("NewShader() error = %v", err)
	}
	sh.Bind()
	sh.SetUniform4f("u_Color", 0.8, 0.3, 0.8, 1)

	r, _ := glkit.NewRenderer(ctx)
	r.SetClearColorVec4(f32.Vec4{0, 0, 0, 1})
	if err := r.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := r.Draw(va, ib, sh); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	if d := rep.Diagnostics(); len(d) != 0 {
		t.Errorf("diagnostics = %v", d)
	}
	draws := dev.Draws()
	if len(draws) != 1 {
		t.Fatalf("len(Draws()) = %d, want 1", len(draws))
	}
	if got := draws[0]; got.Count != 6 || got.IndexType != glkit.IndexUint32 || got.Offset != 0 {
		t.Errorf("draw = %+v, want 6 uint32 indices at 0", got)
	}
	if got := draws[0].Uniforms["u_Color"].Floats; len(got) != 4 || got[1] != 0.3 {
		t.Errorf("u_Color at draw = %v", got)
	}

	// The layout offsets agree with how the records were interleaved.
	col, err := dev.Fetch(va.Handle(), 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if col[0] != 1 || col[3] != 0 {
		t.Errorf("colour of vertex 3 = %v, want [1 1 1 0]", col)
	}
	pos, _ := dev.Fetch(va.Handle(), 0, 2)
	if pos[0] != 0.5 || pos[1] != 0.5 {
		t.Errorf("position of vertex 2 = %v", pos)
	}

	sh.Destroy()
	va.Destroy()
	vb.Destroy()
	ib.Destroy()
	if live := dev.Live(); live != (software.Objects{}) {
		t.Errorf("leaked objects: %+v", live)
	}
}

func TestBufferContentsMatchConstruction(t *testing.T) {
	ctx, dev := newSoftwareContext(t)
	data := []byte{9, 8, 7, 6, 5}
	b, err := glkit.NewVertexBuffer(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := dev.BufferData(b.Handle())
	if !ok || string(got) != string(data) {
		t.Errorf("BufferData() = %v, want %v", got, data)
	}
}

func TestUniformQueriedOnce(t *testing.T) {
	ctx, dev := newSoftwareContext(t)
	sh, err := glkit.NewShader(ctx, "testdata/basic.shader")
	if err != nil {
		t.Fatal(err)
	}
	sh.Bind()
	for i := 0; i < 10; i++ {
		sh.SetUniform4f("u_Color", float32(i)/10, 0, 0, 1)
		sh.SetUniform4f("u_Missing", 0, 0, 0, 0)
	}
	if n := dev.Calls("UniformLocation"); n != 2 {
		t.Errorf("device lookups = %d, want 2", n)
	}
	if got := sh.UniformLocation("u_Missing"); got != -1 {
		t.Errorf("UniformLocation(u_Missing) = %d, want -1", got)
	}
}

func TestCompileErrorThroughDevice(t *testing.T) {
	ctx, dev := newSoftwareContext(t)
	_, err := glkit.NewShaderFromSource(ctx, "broken", glkit.ProgramSource{
		Vertex:   "void main() {}\n",
		Fragment: "void mian() {}\n",
	})
	var ce *glkit.ShaderCompileError
	if !errors.As(err, &ce) || ce.Stage != glkit.StageFragment {
		t.Fatalf("error = %v, want fragment *ShaderCompileError", err)
	}
	if !strings.Contains(ce.Log, "main") {
		t.Errorf("log = %q", ce.Log)
	}
	if live := dev.Live(); live.Stages != 0 || live.Programs != 0 {
		t.Errorf("leaked objects: %+v", live)
	}
}

func TestLinkErrorThroughDevice(t *testing.T) {
	clash := glkit.ProgramSource{
		Vertex:   "uniform mat4 u_X;\nvoid main() { gl_Position = u_X[0]; }\n",
		Fragment: "uniform vec4 u_X;\nout vec4 c;\nvoid main() { c = u_X; }\n",
	}

	ctx, dev := newSoftwareContext(t)
	_, err := glkit.NewShaderFromSource(ctx, "clash", clash)
	var le *glkit.ShaderLinkError
	if !errors.As(err, &le) {
		t.Fatalf("error = %v, want *ShaderLinkError", err)
	}
	if live := dev.Live(); live.Stages != 0 || live.Programs != 0 {
		t.Errorf("leaked objects after link failure: %+v", live)
	}

	lctx, ldev := newSoftwareContext(t, glkit.WithLenientLink())
	sh, err := glkit.NewShaderFromSource(lctx, "clash", clash)
	if err != nil || sh.Handle() != 0 {
		t.Fatalf("lenient link = %v, %v; want a program-less shader", sh, err)
	}
	if live := ldev.Live(); live.Programs != 0 {
		t.Errorf("lenient link leaked the program: %+v", live)
	}
}

func TestDrawMisuseSurfacesDiagnostic(t *testing.T) {
	rep := &glkit.CaptureReporter{}
	ctx, dev := newSoftwareContext(t, glkit.WithReporter(rep))

	vb, _ := glkit.NewVertexBufferOf(ctx, []float32{0, 0, 1, 0, 0, 1})
	layout := glkit.NewVertexLayout()
	_ = layout.Push(glkit.Float32, 2)
	va, _ := glkit.NewVertexArray(ctx)
	_ = va.AddBuffer(vb, layout)
	ib, _ := glkit.NewIndexBuffer(ctx, []uint32{0, 1, 7})
	sh, err := glkit.NewShader(ctx, "testdata/basic.shader")
	if err != nil {
		t.Fatal(err)
	}

	r, _ := glkit.NewRenderer(ctx)
	err = r.Draw(va, ib, sh)
	var de *glkit.DiagnosticError
	if !errors.As(err, &de) {
		t.Fatalf("Draw() error = %v, want *DiagnosticError", err)
	}
	if de.Diagnostic.ID != software.UndefinedFetch {
		t.Errorf("diagnostic = %v, want UndefinedFetch", de.Diagnostic)
	}
	if len(rep.Diagnostics()) != 1 {
		t.Errorf("reported = %v", rep.Diagnostics())
	}
	if len(dev.Draws()) != 1 {
		t.Error("draw not recorded")
	}
}

func TestUnbindWithoutBindLeavesNothingBound(t *testing.T) {
	ctx, dev := newSoftwareContext(t)
	vb, _ := glkit.NewVertexBuffer(ctx, []byte{1})
	va, _ := glkit.NewVertexArray(ctx)
	vb.Unbind()
	vb.Unbind()
	va.Unbind()

	if ctx.Bound(glkit.TargetVertexBuffer) != 0 || dev.BoundBuffer(glkit.VertexBuffer) != 0 {
		t.Error("vertex buffer still bound")
	}
	if ctx.Bound(glkit.TargetVertexArray) != 0 || dev.BoundVertexArray() != 0 {
		t.Error("vertex array still bound")
	}
}

func packFloats(v ...float32) []byte {
	out, _ := binary.Append(nil, binary.LittleEndian, v)
	return out
}
