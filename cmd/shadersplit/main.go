// Command shadersplit splits a dual-stage shader file into its vertex and
// fragment sections.
//
// Usage:
//
//	shadersplit [flags] file.shader
//
// Without -out the sections are printed to stdout. -validate compiles each
// section as WGSL with naga; -backend builds the program on a registered
// headless backend and reports compile and link errors.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"

	"github.com/gogpu/glkit"
	"github.com/gogpu/glkit/backend"
	_ "github.com/gogpu/glkit/backend/native"
	_ "github.com/gogpu/glkit/backend/software"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	out      string
	validate bool
	backend  string
	verbose  bool
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("shadersplit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.out, "out", "", "write <name>.vert and <name>.frag into this directory")
	fs.BoolVar(&opts.validate, "validate", false, "compile each stage as WGSL with naga")
	fs.StringVar(&opts.backend, "backend", "", "build the program on this backend ("+strings.Join(backend.Available(), ", ")+")")
	fs.BoolVar(&opts.verbose, "v", false, "log device traffic")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: shadersplit [flags] file.shader")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	if opts.verbose {
		glkit.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if err := split(fs.Arg(0), opts, stdout); err != nil {
		fmt.Fprintln(stderr, "shadersplit:", err)
		return 1
	}
	return 0
}

func split(path string, opts options, stdout io.Writer) error {
	src, err := glkit.ParseSourceFile(path)
	if err != nil {
		return err
	}

	if opts.out != "" {
		if err := writeStages(path, opts.out, src); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(stdout, "// vertex\n%s// fragment\n%s", src.Vertex, src.Fragment)
	}

	if opts.validate {
		if err := validate(src); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "// valid WGSL")
	}
	if opts.backend != "" {
		if err := build(opts.backend, path, src, stdout); err != nil {
			return err
		}
	}
	return nil
}

func writeStages(path, dir string, src glkit.ProgramSource) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for ext, text := range map[string]string{".vert": src.Vertex, ".frag": src.Fragment} {
		if err := os.WriteFile(filepath.Join(dir, base+ext), []byte(text), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// validate compiles every non-empty stage with naga.
func validate(src glkit.ProgramSource) error {
	var errs []error
	for _, s := range []struct {
		stage glkit.ShaderStage
		text  string
	}{
		{glkit.StageVertex, src.Vertex},
		{glkit.StageFragment, src.Fragment},
	} {
		if strings.TrimSpace(s.text) == "" {
			errs = append(errs, fmt.Errorf("%s stage: empty", s.stage))
			continue
		}
		if _, err := naga.Compile(s.text); err != nil {
			errs = append(errs, fmt.Errorf("%s stage: %w", s.stage, err))
		}
	}
	return errors.Join(errs...)
}

// build compiles and links src on the named backend.
func build(name, label string, src glkit.ProgramSource, stdout io.Writer) error {
	dev, err := backend.Open(name)
	if err != nil {
		return err
	}
	ctx, err := glkit.NewContext(dev, glkit.WithFatalSeverity(glkit.SeverityHigh))
	if err != nil {
		return err
	}
	defer ctx.Close()

	sh, err := glkit.NewShaderFromSource(ctx, label, src)
	if err != nil {
		return err
	}
	defer sh.Destroy()
	if err := ctx.Err(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "// linked on %s\n", name)
	return nil
}
