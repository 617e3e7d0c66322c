package traits

import (
	"fmt"
	"sort"
	"strings"

	"github.com/verith-lang/verith/internal/diagnostics"
	"github.com/verith-lang/verith/internal/hir"
	"github.com/verith-lang/verith/internal/solver"
	"github.com/verith-lang/verith/internal/term"
	"github.com/verith-lang/verith/internal/typesystem"
	"github.com/verith-lang/verith/internal/utils"
)

// ItemRef names an item together with the substitution it is taken at.
type ItemRef struct {
	Item hir.DefID
	Args typesystem.Args
}

// Refinement is the proof obligation that one implementation item refines
// its interface item's contract. Immutable once produced.
type Refinement struct {
	Trait ItemRef
	Impl  ItemRef
	Refn  *term.Term
}

// TraitImpl is the result of translating one implementation block: the law
// items it binds (axioms, reported not proved) and the refinement
// obligations of its ordinary items.
type TraitImpl struct {
	Laws        []hir.DefID
	Refinements []Refinement
}

// Laws collects the law items of an interface or implementation, skipping
// spec-only plumbing items.
func Laws(p *hir.Program, traitOrImpl hir.DefID) []hir.DefID {
	var laws []hir.DefID
	for _, id := range p.AssociatedItems(traitOrImpl) {
		if it := p.Items[id]; it != nil && it.SpecOnly {
			continue
		}
		if p.IsLaw(id) {
			laws = append(laws, id)
		}
	}
	return laws
}

// TranslateImpl builds the laws and refinement obligations of one
// implementation block. Item pairs are processed in an order derived from
// their content hash, so the output is identical across runs regardless of
// how the pairs were enumerated. Side-condition failures abort the
// translation with a diagnostic; they are never downgraded, since an
// implementation that cannot legally instantiate the interface's contract
// makes any refinement proof meaningless.
func TranslateImpl(p *hir.Program, s solver.Solver, implID hir.DefID) (TraitImpl, error) {
	impl, ok := p.Impls[implID]
	if !ok || impl.Interface == "" {
		diagnostics.ICE("%s is not a trait implementation", implID)
	}
	traitRef := p.ImplTraitRef(implID)

	pairs := p.ImplementorMap(implID)
	sort.Slice(pairs, func(i, j int) bool {
		return pairKey(pairs[i]) < pairKey(pairs[j])
	})

	var out TraitImpl
	for _, pair := range pairs {
		if p.IsLaw(pair.TraitItem) {
			// A law is assumed as an axiom by a later stage; it is
			// reported here, never proved.
			out.Laws = append(out.Laws, pair.ImplItem)
			continue
		}

		// Impls verified elsewhere carry no local proof obligations.
		if !p.IsLocal(implID) {
			continue
		}

		sub := p.IdentityArgs(pair.ImplItem)
		refnSub := hir.RebaseOnto(sub, len(impl.Params), traitRef.Args)

		if !p.IsFn(pair.TraitItem) {
			continue
		}

		if preds := externPredicates(p, pair.TraitItem, refnSub); len(preds) > 0 {
			failures, err := s.Discharge(pair.ImplItem, preds)
			if err != nil {
				return TraitImpl{}, err
			}
			if len(failures) > 0 {
				return TraitImpl{}, sideConditionError(p, pair.ImplItem, failures)
			}
		}

		refn := refinementTerm(p, pair.ImplItem, pair.TraitItem, refnSub)
		out.Refinements = append(out.Refinements, Refinement{
			Trait: ItemRef{Item: pair.TraitItem, Args: refnSub},
			Impl:  ItemRef{Item: pair.ImplItem, Args: sub},
			Refn:  refn,
		})
	}
	return out, nil
}

func pairKey(pair hir.ItemPair) string {
	return utils.StableHash(string(pair.TraitItem), string(pair.ImplItem))
}

// externPredicates instantiates the auxiliary typing predicates attached
// to an interface item at the rebased substitution.
func externPredicates(p *hir.Program, traitItem hir.DefID, refnSub typesystem.Args) []hir.Predicate {
	specs := p.ExternSpecs[traitItem]
	if len(specs) == 0 {
		return nil
	}
	out := make([]hir.Predicate, len(specs))
	for i, spec := range specs {
		out[i] = p.InstantiatePredicate(traitItem, spec, refnSub)
	}
	return out
}

func sideConditionError(p *hir.Program, implItem hir.DefID, failures []solver.Failure) error {
	lines := make([]string, len(failures))
	for i, f := range failures {
		lines[i] = fmt.Sprintf("%s (%s)", f.Predicate, f.Reason)
	}
	return diagnostics.New(diagnostics.ErrV002, p.SpanOf(implItem),
		fmt.Sprintf("side conditions do not hold for %s: %s", implItem, strings.Join(lines, "; ")))
}

// resultIdent binds the result value in postcondition refinements.
const resultIdent = term.Ident("result")

// refinementTerm builds the full proof obligation for one paired
// (interface item, implementation item):
//
//	∀ args. traitPre ⟹ (implPre ∧ ∀ result. implPost ⟹ traitPost)
//
// The implementation must accept everything the interface's precondition
// permits and guarantee everything its postcondition promises.
func refinementTerm(p *hir.Program, implItem, traitItem hir.DefID, refnSub typesystem.Args) *term.Term {
	traitSig := p.InstantiateSig(traitItem, refnSub)
	traitCon := p.InstantiateContract(traitItem, refnSub)

	implSig := p.SigOf(implItem)
	implCon := p.ContractOf(implItem)

	// Ordinary code implicitly relies on and preserves type invariants;
	// specification-only code does not assume them.
	if !p.IsPureSpec(implItem) {
		traitCon = addInvariantSpec(traitSig, traitCon)
		implCon = addInvariantSpec(implSig, implCon)
	}

	span := p.SpanOf(implItem)

	// One shared identifier per positional parameter pair: the interface
	// side's name at the implementation side's type. The implementation's
	// own parameter names are substituted away entirely.
	type binder struct {
		id term.Ident
		ty typesystem.Type
	}
	var binders []binder
	rename := make(map[term.Ident]*term.Term, len(implSig.Inputs))
	for i := range traitSig.Inputs {
		ti, ii := traitSig.Inputs[i], implSig.Inputs[i]
		binders = append(binders, binder{id: ti.Ident, ty: ii.Ty})
		rename[ii.Ident] = term.Var(ti.Ident)
	}

	implPre := implCon.RequiresConj().Subst(rename)
	traitPre := traitCon.RequiresConj()
	implPost := implCon.EnsuresConj().Subst(rename)
	traitPost := traitCon.EnsuresConj()

	postRefn := term.Forall(resultIdent, implSig.Output, term.Implies(implPost, traitPost)).WithSpan(span)

	refn := term.Implies(traitPre, term.Conj(implPre, postRefn))
	for i := len(binders) - 1; i >= 0; i-- {
		refn = term.Forall(binders[i].id, binders[i].ty, refn).WithSpan(span)
	}
	return refn
}

// addInvariantSpec injects the implicit structural-invariant conjuncts: one
// per parameter into the precondition, one for the result into the
// postcondition.
func addInvariantSpec(sig *hir.Sig, con hir.Contract) hir.Contract {
	out := hir.Contract{
		Requires: append([]*term.Term(nil), con.Requires...),
		Ensures:  append([]*term.Term(nil), con.Ensures...),
	}
	for _, in := range sig.Inputs {
		out.Requires = append(out.Requires, term.Inv(in.Ty, term.Var(in.Ident)))
	}
	out.Ensures = append(out.Ensures, term.Inv(sig.Output, term.Var(resultIdent)))
	return out
}
