package traits

import (
	"github.com/verith-lang/verith/internal/hir"
	"github.com/verith-lang/verith/internal/typesystem"
)

// sourceKind classifies where a selected candidate comes from.
type sourceKind int

const (
	// sourceUserDefined: a concrete implementation block.
	sourceUserDefined sourceKind = iota
	// sourceParam: the receiver is an abstract parameter whose in-scope
	// bound supplies the instance.
	sourceParam
	// sourceBuiltin: a compiler-synthesized implementation, e.g. a closure
	// implementing a callable interface.
	sourceBuiltin
)

// source is a selected candidate implementation.
type source struct {
	kind sourceKind
	impl hir.DefID       // sourceUserDefined only
	args typesystem.Args // impl arguments solving the reference
}

// selectImpl performs coherent selection: find the unique candidate whose
// pattern unifies with the reference, or report none. In-scope parameters
// are rigid during selection — an implementation's variables may bind to
// them, but a parameter never binds to a concrete type. Ambiguity between
// implementations unrelated by specialization is unsupported and reported
// as no candidate.
func selectImpl(p *hir.Program, ictx *typesystem.InferCtx, env *hir.TypingEnv, ref hir.Ref) (source, bool) {
	if len(ref.Args) == 0 || ref.Args[0].Ty == nil {
		return source{}, false
	}
	self := ictx.Resolve(ref.Args[0].Ty)

	// Bound-supplied candidates take precedence for abstract receivers.
	if _, isParam := self.(typesystem.Param); isParam && env != nil {
		for _, b := range env.Bounds {
			if b.Trait != ref.Interface {
				continue
			}
			trial := ictx.Fork()
			if trial.UnifyArgs(b.Args, ref.Args) == nil {
				return source{kind: sourceParam}, true
			}
		}
	}

	if _, isClosure := self.(typesystem.Closure); isClosure && p.Interfaces[ref.Interface].Builtin {
		return source{kind: sourceBuiltin}, true
	}

	type candidate struct {
		impl *hir.Impl
		args typesystem.Args
	}
	var candidates []candidate
	for _, impl := range p.ImplsOf(ref.Interface) {
		trial := ictx.Fork()
		fresh := trial.InstantiateFresh(p.IdentityArgs(impl.ID))
		b := p.BindingFor(impl.ID, fresh)
		pattern := typesystem.SubstituteArgs(impl.Args, b)
		if trial.UnifyArgs(pattern, ref.Args) != nil {
			continue
		}
		candidates = append(candidates, candidate{impl: impl, args: fresh})
	}
	if len(candidates) == 0 {
		return source{}, false
	}

	// With several applicable candidates the most specific wins, if one
	// exists; overlapping candidates unrelated by specialization make the
	// selection ambiguous.
	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case isDescendant(p, c.impl.ID, best.impl.ID):
			best = c
		case isDescendant(p, best.impl.ID, c.impl.ID):
			// keep best
		default:
			return source{}, false
		}
	}

	// Re-run the winning unification on the caller's context so the
	// resolved arguments are visible outside the trial forks.
	fresh := ictx.InstantiateFresh(p.IdentityArgs(best.impl.ID))
	b := p.BindingFor(best.impl.ID, fresh)
	pattern := typesystem.SubstituteArgs(best.impl.Args, b)
	if err := ictx.UnifyArgs(pattern, ref.Args); err != nil {
		return source{}, false
	}
	return source{kind: sourceUserDefined, impl: best.impl.ID, args: ictx.ResolveArgs(fresh)}, true
}

// isDescendant reports whether a is a strict descendant of b in the
// specialization graph.
func isDescendant(p *hir.Program, a, b hir.DefID) bool {
	ancestors := p.Ancestors(a)
	if len(ancestors) == 0 {
		return false
	}
	for _, anc := range ancestors[1:] {
		if anc == b {
			return true
		}
	}
	return false
}
