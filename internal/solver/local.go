package solver

import (
	"github.com/verith-lang/verith/internal/hir"
	"github.com/verith-lang/verith/internal/typesystem"
)

// Local discharges predicates structurally against the visible program:
// a predicate holds if the scope's typing environment already assumes it,
// or if some visible implementation's pattern unifies with it. This is the
// entailment a contract needs before any refinement proof is meaningful;
// deeper arithmetic goes to the remote prover.
type Local struct {
	Program *hir.Program
}

// NewLocal creates a structural solver over the given fact base.
func NewLocal(p *hir.Program) *Local {
	return &Local{Program: p}
}

// Discharge checks each predicate of the batch independently and collects
// the ones that do not hold. It never returns a transport error.
func (s *Local) Discharge(scope hir.DefID, preds []hir.Predicate) ([]Failure, error) {
	env := s.Program.EnvOf(scope)
	var failures []Failure
	for _, pred := range preds {
		if !s.entails(env, pred) {
			failures = append(failures, Failure{
				Predicate: RenderPredicate(pred),
				Reason:    "no in-scope bound or visible implementation satisfies the predicate",
			})
		}
	}
	return failures, nil
}

func (s *Local) entails(env *hir.TypingEnv, pred hir.Predicate) bool {
	ictx := typesystem.NewInferCtx()

	// An assumed bound discharges the predicate directly.
	for _, b := range env.Bounds {
		if b.Trait != pred.Trait {
			continue
		}
		f := ictx.Fork()
		if f.UnifyArgs(b.Args, pred.Args) == nil {
			return true
		}
	}

	// Otherwise some visible implementation pattern must apply. Each trial
	// runs in its own fork so failed bindings never leak into the next.
	for _, impl := range s.Program.ImplsOf(pred.Trait) {
		f := ictx.Fork()
		fresh := f.InstantiateFresh(s.Program.IdentityArgs(impl.ID))
		b := s.Program.BindingFor(impl.ID, fresh)
		pattern := typesystem.SubstituteArgs(impl.Args, b)
		if f.UnifyArgs(pattern, pred.Args) == nil {
			return true
		}
	}
	return false
}
