//go:build cgo

// Command glquad opens a window and draws a quad whose color cycles
// between blue and red, using glkit over the OpenGL backend.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gogpu/glkit"
	"github.com/gogpu/glkit/backend"
	"github.com/gogpu/glkit/backend/opengl"
)

func init() {
	// GL calls must come from the thread that owns the context.
	runtime.LockOSThread()
}

func main() {
	var (
		width  = flag.Int("width", 640, "window width")
		height = flag.Int("height", 480, "window height")
		shader = flag.String("shader", "res/shaders/Basic.shader", "dual-stage shader file")
		vsync  = flag.Bool("vsync", true, "wait for vertical sync")
		debug  = flag.Bool("debug", false, "log handle and bind traffic")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	glkit.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(*width, *height, *shader, *vsync); err != nil {
		log.Fatal(err)
	}
}

func run(width, height int, shaderPath string, vsync bool) error {
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)

	window, err := glfw.CreateWindow(width, height, "glkit quad", nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()
	window.MakeContextCurrent()
	if vsync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	dev, err := backend.Open(backend.BackendGL)
	if err != nil {
		return err
	}
	if gd, ok := dev.(*opengl.Device); ok {
		slog.Info("OpenGL context ready", "version", gd.Version())
	}

	ctx, err := glkit.NewContext(dev)
	if err != nil {
		return err
	}
	defer ctx.Close()

	q, err := newQuad(ctx, shaderPath)
	if err != nil {
		return err
	}
	defer q.Destroy()

	renderer, err := glkit.NewRenderer(ctx)
	if err != nil {
		return err
	}
	colors := newColorCycle()

	for !window.ShouldClose() {
		if window.GetKey(glfw.KeyEscape) == glfw.Press {
			window.SetShouldClose(true)
		}
		if err := renderer.Clear(); err != nil {
			return err
		}
		r, g, b, a := colors.Next()
		q.shader.Bind()
		q.shader.SetUniform4f("u_Color", r, g, b, a)
		if err := renderer.Draw(q.va, q.ib, q.shader); err != nil {
			return err
		}
		window.SwapBuffers()
		glfw.PollEvents()
	}
	return nil
}

// quad is the geometry and program drawn every frame.
type quad struct {
	vb, ib *glkit.Buffer
	va     *glkit.VertexArray
	shader *glkit.Shader
}

func newQuad(ctx *glkit.Context, shaderPath string) (_ *quad, err error) {
	q := &quad{}
	defer func() {
		if err != nil {
			q.Destroy()
		}
	}()

	positions := []float32{
		-0.5, -0.5,
		0.5, -0.5,
		0.5, 0.5,
		-0.5, 0.5,
	}
	if q.vb, err = glkit.NewVertexBufferOf(ctx, positions); err != nil {
		return nil, err
	}
	layout := glkit.NewVertexLayout()
	if err = glkit.PushOf[float32](layout, 2); err != nil {
		return nil, err
	}
	if q.va, err = glkit.NewVertexArray(ctx); err != nil {
		return nil, err
	}
	if err = q.va.AddBuffer(q.vb, layout); err != nil {
		return nil, err
	}
	if q.ib, err = glkit.NewIndexBuffer(ctx, []uint32{0, 1, 2, 2, 3, 0}); err != nil {
		return nil, err
	}
	if q.shader, err = glkit.NewShader(ctx, shaderPath); err != nil {
		return nil, err
	}

	// Unbind everything so the loop has to bind explicitly before drawing.
	q.va.Unbind()
	q.shader.Unbind()
	q.vb.Unbind()
	q.ib.Unbind()
	return q, nil
}

// Destroy releases whatever parts of q were created.
func (q *quad) Destroy() {
	if q.shader != nil {
		q.shader.Destroy()
	}
	if q.ib != nil {
		q.ib.Destroy()
	}
	if q.va != nil {
		q.va.Destroy()
	}
	if q.vb != nil {
		q.vb.Destroy()
	}
}
