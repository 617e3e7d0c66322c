// Package term builds the logical formulas the verifier emits. The core
// composes terms but never interprets them; evaluation and proof belong to
// downstream stages.
package term

import (
	"fmt"
	"strings"

	"github.com/verith-lang/verith/internal/typesystem"
)

// Span is a source location attached to terms for diagnostics.
type Span struct {
	File string
	Line int
}

func (s Span) String() string {
	if s.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// Ident is a symbolic identifier appearing free or bound in a term.
type Ident string

// Kind tags the term variants.
type Kind int

const (
	KTrue Kind = iota
	KLit
	KVar
	KPred
	KConj
	KImplies
	KForall
)

// Term is an immutable logical formula node. Constructors return new nodes;
// no operation mutates an existing term.
type Term struct {
	Kind Kind

	Ident Ident  // KVar
	Lit   string // KLit

	Pred string          // KPred: predicate or operator name
	Ty   typesystem.Type // KPred: optional type index (e.g. invariant atoms)
	Args []*Term         // KPred operands; KConj/KImplies use Args[0], Args[1]

	Binder   Ident           // KForall
	BinderTy typesystem.Type // KForall
	Body     *Term           // KForall

	Span Span
}

// True is the neutral formula.
func True() *Term { return &Term{Kind: KTrue} }

// Lit wraps a literal atom such as a number.
func Lit(s string) *Term { return &Term{Kind: KLit, Lit: s} }

// Var references an identifier.
func Var(id Ident) *Term { return &Term{Kind: KVar, Ident: id} }

// Pred applies a named predicate or operator to operands.
func Pred(name string, args ...*Term) *Term {
	return &Term{Kind: KPred, Pred: name, Args: args}
}

// Inv asserts that a value upholds the structural invariant of its type.
func Inv(ty typesystem.Type, val *Term) *Term {
	return &Term{Kind: KPred, Pred: "inv", Ty: ty, Args: []*Term{val}}
}

// Conj conjoins two formulas, treating True as the identity.
func Conj(a, b *Term) *Term {
	if a == nil || a.Kind == KTrue {
		return b
	}
	if b == nil || b.Kind == KTrue {
		return a
	}
	return &Term{Kind: KConj, Args: []*Term{a, b}}
}

// Implies builds a ⟹ b.
func Implies(a, b *Term) *Term {
	return &Term{Kind: KImplies, Args: []*Term{a, b}}
}

// Forall universally quantifies body over binder at the given type.
func Forall(binder Ident, ty typesystem.Type, body *Term) *Term {
	return &Term{Kind: KForall, Binder: binder, BinderTy: ty, Body: body}
}

// WithSpan returns a copy of t carrying the span.
func (t *Term) WithSpan(s Span) *Term {
	c := *t
	c.Span = s
	return &c
}

// Subst replaces free occurrences of identifiers. Bound occurrences are
// respected: a quantifier shadows its binder inside its body.
func (t *Term) Subst(m map[Ident]*Term) *Term {
	if t == nil || len(m) == 0 {
		return t
	}
	switch t.Kind {
	case KTrue, KLit:
		return t
	case KVar:
		if r, ok := m[t.Ident]; ok {
			return r
		}
		return t
	case KPred, KConj, KImplies:
		args := make([]*Term, len(t.Args))
		for i, a := range t.Args {
			args[i] = a.Subst(m)
		}
		c := *t
		c.Args = args
		return &c
	case KForall:
		inner := m
		if _, shadowed := m[t.Binder]; shadowed {
			inner = make(map[Ident]*Term, len(m))
			for k, v := range m {
				if k != t.Binder {
					inner[k] = v
				}
			}
		}
		c := *t
		c.Body = t.Body.Subst(inner)
		return &c
	default:
		return t
	}
}

// MapTypes rewrites every embedded type through f, preserving structure.
func (t *Term) MapTypes(f func(typesystem.Type) typesystem.Type) *Term {
	if t == nil {
		return nil
	}
	c := *t
	if t.Ty != nil {
		c.Ty = f(t.Ty)
	}
	if t.BinderTy != nil {
		c.BinderTy = f(t.BinderTy)
	}
	if len(t.Args) > 0 {
		args := make([]*Term, len(t.Args))
		for i, a := range t.Args {
			args[i] = a.MapTypes(f)
		}
		c.Args = args
	}
	if t.Body != nil {
		c.Body = t.Body.MapTypes(f)
	}
	return &c
}

// FreeIdents collects the identifiers occurring free in t, in first-seen
// order without duplicates.
func (t *Term) FreeIdents() []Ident {
	var out []Ident
	seen := make(map[Ident]bool)
	var walk func(t *Term, bound map[Ident]bool)
	walk = func(t *Term, bound map[Ident]bool) {
		if t == nil {
			return
		}
		switch t.Kind {
		case KVar:
			if !bound[t.Ident] && !seen[t.Ident] {
				seen[t.Ident] = true
				out = append(out, t.Ident)
			}
		case KForall:
			inner := map[Ident]bool{t.Binder: true}
			for k := range bound {
				inner[k] = true
			}
			walk(t.Body, inner)
		default:
			for _, a := range t.Args {
				walk(a, bound)
			}
		}
	}
	walk(t, map[Ident]bool{})
	return out
}

// Equal compares two terms structurally, ignoring spans.
func Equal(a, b *Term) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KTrue:
		return true
	case KLit:
		return a.Lit == b.Lit
	case KVar:
		return a.Ident == b.Ident
	case KForall:
		if a.Binder != b.Binder {
			return false
		}
		if !typeEqual(a.BinderTy, b.BinderTy) {
			return false
		}
		return Equal(a.Body, b.Body)
	default:
		if a.Pred != b.Pred || len(a.Args) != len(b.Args) {
			return false
		}
		if !typeEqual(a.Ty, b.Ty) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	}
}

func typeEqual(a, b typesystem.Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

func (t *Term) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KTrue:
		return "true"
	case KLit:
		return t.Lit
	case KVar:
		return string(t.Ident)
	case KConj:
		return fmt.Sprintf("(%s /\\ %s)", t.Args[0], t.Args[1])
	case KImplies:
		return fmt.Sprintf("(%s -> %s)", t.Args[0], t.Args[1])
	case KForall:
		return fmt.Sprintf("(forall %s: %s. %s)", t.Binder, t.BinderTy, t.Body)
	case KPred:
		if len(t.Args) == 2 && !isWordPred(t.Pred) {
			return fmt.Sprintf("(%s %s %s)", t.Args[0], t.Pred, t.Args[1])
		}
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", t.Pred, strings.Join(parts, ", "))
	default:
		return "<invalid>"
	}
}

func isWordPred(name string) bool {
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return len(name) > 0
}
