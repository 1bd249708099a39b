//go:build cgo

package opengl

import (
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/gogpu/glkit"
)

// SetDiagnosticHandler implements glkit.DiagnosticSource by installing a
// GL debug message callback. With synchronous output the callback runs on
// the thread of the offending call.
func (d *Device) SetDiagnosticHandler(h func(glkit.Diagnostic)) {
	d.handler = h
	gl.DebugMessageCallback(d.debugMessage, nil)
}

func (d *Device) debugMessage(source, typ, id, severity uint32, _ int32, message string, _ unsafe.Pointer) {
	if d.handler == nil {
		return
	}
	d.handler(glkit.Diagnostic{
		Severity: severityOf(severity),
		Source:   sourceName(source),
		Type:     typeName(typ),
		ID:       id,
		Message:  message,
	})
}

func severityOf(s uint32) glkit.Severity {
	switch s {
	case gl.DEBUG_SEVERITY_HIGH:
		return glkit.SeverityHigh
	case gl.DEBUG_SEVERITY_MEDIUM:
		return glkit.SeverityMedium
	case gl.DEBUG_SEVERITY_LOW:
		return glkit.SeverityLow
	default:
		return glkit.SeverityNotification
	}
}

func sourceName(s uint32) string {
	switch s {
	case gl.DEBUG_SOURCE_API:
		return "api"
	case gl.DEBUG_SOURCE_WINDOW_SYSTEM:
		return "window system"
	case gl.DEBUG_SOURCE_SHADER_COMPILER:
		return "shader compiler"
	case gl.DEBUG_SOURCE_THIRD_PARTY:
		return "third party"
	case gl.DEBUG_SOURCE_APPLICATION:
		return "application"
	default:
		return "other"
	}
}

func typeName(t uint32) string {
	switch t {
	case gl.DEBUG_TYPE_ERROR:
		return "error"
	case gl.DEBUG_TYPE_DEPRECATED_BEHAVIOR:
		return "deprecated behavior"
	case gl.DEBUG_TYPE_UNDEFINED_BEHAVIOR:
		return "undefined behavior"
	case gl.DEBUG_TYPE_PORTABILITY:
		return "portability"
	case gl.DEBUG_TYPE_PERFORMANCE:
		return "performance"
	case gl.DEBUG_TYPE_MARKER:
		return "marker"
	default:
		return "other"
	}
}
