package glkit

import (
	"fmt"
	"log/slog"
	"sync"
)

// Severity ranks device diagnostics, lowest first.
type Severity uint8

const (
	SeverityNotification Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh

	// SeverityNever is a threshold no diagnostic reaches. Passing it to
	// WithFatalSeverity makes every diagnostic non-fatal.
	SeverityNever
)

// String returns the string representation of Severity.
func (s Severity) String() string {
	switch s {
	case SeverityNotification:
		return "notification"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityNever:
		return "never"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// level maps a severity to the slog level it is logged at below the
// fatal threshold.
func (s Severity) level() slog.Level {
	switch s {
	case SeverityNotification:
		return slog.LevelDebug
	case SeverityLow:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// Diagnostic is a message a device reports about its own state, usually
// after the call that caused it has returned.
type Diagnostic struct {
	Severity Severity
	Source   string
	Type     string
	ID       uint32
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s/%s #%d: %s", d.Severity, d.Source, d.Type, d.ID, d.Message)
}

// Reporter receives every diagnostic delivered to a Context.
type Reporter interface {
	Report(d Diagnostic)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(d Diagnostic)

// Report calls f(d).
func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// CaptureReporter records diagnostics in arrival order.
// It is safe for concurrent use because drivers may call back from
// their own threads.
type CaptureReporter struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// Report implements Reporter.
func (r *CaptureReporter) Report(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = append(r.diags, d)
}

// Diagnostics returns a copy of everything reported so far.
func (r *CaptureReporter) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

// Reset discards recorded diagnostics.
func (r *CaptureReporter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = nil
}
