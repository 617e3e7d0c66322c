package diagnostics

import (
	"strings"
	"testing"

	"github.com/verith-lang/verith/internal/term"
)

func TestDiagnosticError(t *testing.T) {
	d := New(ErrV002, term.Span{File: "calc.vt", Line: 12}, "side conditions do not hold")
	want := "[V002] calc.vt:12: side conditions do not hold"
	if got := d.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	d = New(ErrV001, term.Span{}, "no implementation found")
	if got := d.Error(); !strings.Contains(got, "<unknown>") {
		t.Errorf("Error() without span = %q, want <unknown> location", got)
	}
}

func TestICEPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("ICE did not panic")
		}
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, "leaf for Ord.cmp missing") {
			t.Errorf("panic value = %v", r)
		}
	}()
	ICE("leaf for %s missing", "Ord.cmp")
}
