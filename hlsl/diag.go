package hlsl

import (
	"fmt"
	"strings"
)

// Diagnostic is a compiler message in the form emitted by fxc.
type Diagnostic struct {
	Pos     Pos
	Code    int
	Message string
	Warning bool
}

// Format renders the diagnostic as "name(line,col): error X3000: message".
func (d Diagnostic) Format(name string) string {
	severity := "error"
	if d.Warning {
		severity = "warning"
	}

	if d.Pos.Line == 0 {
		return fmt.Sprintf("%s: %s X%04d: %s", name, severity, d.Code, d.Message)
	}

	return fmt.Sprintf("%s(%d,%d): %s X%04d: %s", name, d.Pos.Line, d.Pos.Col, severity, d.Code, d.Message)
}

// Error is returned by Compile when the source contains errors.
type Error struct {
	Name        string
	Diagnostics []Diagnostic
}

func (e *Error) Error() string {
	lines := make([]string, 0, len(e.Diagnostics))
	for _, diag := range e.Diagnostics {
		lines = append(lines, diag.Format(e.Name))
	}

	return strings.Join(lines, "\n")
}

// errorList collects diagnostics, deduplicating identical messages at the
// same position.
type errorList struct {
	diags []Diagnostic
}

func (l *errorList) add(pos Pos, code int, format string, args ...any) {
	diag := Diagnostic{Pos: pos, Code: code, Message: fmt.Sprintf(format, args...)}

	for _, existing := range l.diags {
		if existing == diag {
			return
		}
	}

	l.diags = append(l.diags, diag)
}

func (l *errorList) warn(pos Pos, code int, format string, args ...any) {
	l.diags = append(l.diags, Diagnostic{
		Pos:     pos,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Warning: true,
	})
}

func (l *errorList) failed() bool {
	for _, diag := range l.diags {
		if !diag.Warning {
			return true
		}
	}

	return false
}

func (l *errorList) errors() []Diagnostic {
	var result []Diagnostic
	for _, diag := range l.diags {
		if !diag.Warning {
			result = append(result, diag)
		}
	}

	return result
}
