// Package diagnostics carries the coded, user-facing failures of the
// verifier core and the fatal path for internal-consistency bugs. The two
// are deliberately separate: diagnostics are returned and reported,
// internal bugs abort loudly and are never downgraded to an outcome.
package diagnostics

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/verith-lang/verith/internal/term"
)

// Code identifies a diagnostic class.
type Code string

const (
	// ErrV001: a required implementation could not be found.
	ErrV001 Code = "V001"
	// ErrV002: auxiliary typing side-conditions for a substitution failed
	// to discharge.
	ErrV002 Code = "V002"
	// ErrV003: configuration is invalid.
	ErrV003 Code = "V003"
)

// Diagnostic is a coded, located failure surfaced to the operator.
type Diagnostic struct {
	Code    Code
	Span    term.Span
	Message string
}

// New creates a diagnostic.
func New(code Code, span term.Span, message string) *Diagnostic {
	return &Diagnostic{Code: code, Span: span, Message: message}
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("[%s] %s: %s", d.Code, d.Span, d.Message)
}

const (
	ansiRed   = "\x1b[31m"
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

func stderrColor() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ICE reports an internal-consistency violation and aborts. These paths
// are programming-bug signals: tests assert they never fire, and no caller
// recovers from them into a resolution outcome.
func ICE(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if stderrColor() {
		fmt.Fprintf(os.Stderr, "%s%sinternal error:%s %s\n", ansiBold, ansiRed, ansiReset, msg)
	} else {
		fmt.Fprintf(os.Stderr, "internal error: %s\n", msg)
	}
	panic("internal error: " + msg)
}
