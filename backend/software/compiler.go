package software

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gogpu/glkit"
)

// Uniform is an active uniform of a compiled stage or linked program.
type Uniform struct {
	Name string
	Type string
}

// Compiler checks the source of one stage and returns its active
// uniforms. A returned error becomes the stage's info log.
type Compiler func(stage glkit.ShaderStage, src string) ([]Uniform, error)

var (
	mainRe    = regexp.MustCompile(`\bvoid\s+main\s*\(\s*(?:void\s*)?\)`)
	uniformRe = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?uniform\s+(?:(?:highp|mediump|lowp)\s+)?(\w+)\s+(\w+)\s*;`)
)

// glslTypes are the uniform types GLSLCompiler accepts.
var glslTypes = map[string]bool{
	"float": true, "vec2": true, "vec3": true, "vec4": true,
	"int": true, "ivec2": true, "ivec3": true, "ivec4": true,
	"uint": true, "bool": true,
	"mat2": true, "mat3": true, "mat4": true,
	"sampler2D": true, "samplerCube": true,
}

// GLSLCompiler is the default Compiler. It is not a GLSL front end: it
// requires a main function and collects uniform declarations. A uniform
// whose name appears nowhere but in its own declaration is inactive,
// as a real compiler would strip it.
func GLSLCompiler(stage glkit.ShaderStage, src string) ([]Uniform, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("0:0(0): error: %s shader source is empty", stage)
	}
	if !mainRe.MatchString(src) {
		return nil, errors.New("0:0(0): error: no definition of main()")
	}

	var active []Uniform
	for _, m := range uniformRe.FindAllStringSubmatchIndex(src, -1) {
		typ := src[m[2]:m[3]]
		name := src[m[4]:m[5]]
		if !glslTypes[typ] {
			line := strings.Count(src[:m[0]], "\n") + 1
			return nil, fmt.Errorf("0:%d(1): error: unknown type `%s' for uniform `%s'", line, typ, name)
		}
		uses := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`).FindAllStringIndex(src, -1)
		if len(uses) > 1 {
			active = append(active, Uniform{Name: name, Type: typ})
		}
	}
	return active, nil
}
