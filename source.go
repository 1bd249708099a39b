package glkit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// shaderDirective marks a line that switches the destination section.
const shaderDirective = "#shader"

// ProgramSource is the per-stage text of a dual-stage shader file.
// Either field is empty if its section never appeared.
type ProgramSource struct {
	Vertex   string
	Fragment string
}

// section is the destination of non-directive lines while parsing.
type section int

const (
	sectionNone section = iota
	sectionVertex
	sectionFragment
)

// ParseSource splits a dual-stage shader into its vertex and fragment text.
//
// A line containing "#shader" switches the destination: to the vertex
// section if the line also contains "vertex", to the fragment section if
// it contains "fragment", and leaves it unchanged otherwise. Directive
// lines are never copied. Every other line is appended verbatim plus a
// newline to the current section; lines before the first directive are
// dropped.
func ParseSource(r io.Reader) (ProgramSource, error) {
	var (
		vertex, fragment strings.Builder
		current          = sectionNone
	)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return ProgramSource{}, fmt.Errorf("glkit: read shader source: %w", err)
		}
		if line == "" && err != nil {
			break
		}
		line = strings.TrimSuffix(line, "\n")

		if strings.Contains(line, shaderDirective) {
			switch {
			case strings.Contains(line, "vertex"):
				current = sectionVertex
			case strings.Contains(line, "fragment"):
				current = sectionFragment
			}
		} else {
			switch current {
			case sectionVertex:
				vertex.WriteString(line)
				vertex.WriteByte('\n')
			case sectionFragment:
				fragment.WriteString(line)
				fragment.WriteByte('\n')
			}
		}
		if err != nil {
			break
		}
	}
	return ProgramSource{Vertex: vertex.String(), Fragment: fragment.String()}, nil
}

// ParseSourceFile parses the shader file at path.
func ParseSourceFile(path string) (ProgramSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return ProgramSource{}, fmt.Errorf("glkit: open shader source: %w", err)
	}
	defer f.Close()
	return ParseSource(f)
}
