package traits

import (
	"errors"
	"testing"

	"github.com/verith-lang/verith/internal/diagnostics"
	"github.com/verith-lang/verith/internal/hir"
	"github.com/verith-lang/verith/internal/solver"
	"github.com/verith-lang/verith/internal/term"
	"github.com/verith-lang/verith/internal/typesystem"
)

// calcProgram pairs `interface Calc` with `impl Calc for Point`:
//
//	f(x: Int) -> Int   requires x > 0    ensures result > x      (interface)
//	f(y: Int) -> Int   requires y >= 0   ensures result = y + 1  (impl)
//	g(self)   -> Int   no contract on either side
//	assoc              a law on both sides
func calcProgram() *hir.Program {
	p := hir.NewProgram("main")
	calcSelf := typesystem.Param{Owner: "Calc", Index: 0, Name: "Self"}

	p.Interfaces["Calc"] = &hir.Interface{ID: "Calc", Pkg: "core",
		Params: []hir.ParamDef{{Name: "Self"}},
		Items:  []hir.DefID{"Calc.f", "Calc.g", "Calc.assoc"}}

	p.Items["Calc.f"] = &hir.Item{ID: "Calc.f", Kind: hir.KindFn, Name: "f", Owner: "Calc",
		PureSpec: true,
		Sig: &hir.Sig{
			Inputs: []hir.SigParam{{Ident: "self", Ty: calcSelf}, {Ident: "x", Ty: intTy}},
			Output: intTy,
		},
		Contract: hir.Contract{
			Requires: []*term.Term{term.Pred(">", term.Var("x"), term.Lit("0"))},
			Ensures:  []*term.Term{term.Pred(">", term.Var("result"), term.Var("x"))},
		}}
	p.Items["Calc.g"] = &hir.Item{ID: "Calc.g", Kind: hir.KindFn, Name: "g", Owner: "Calc",
		Sig: &hir.Sig{Inputs: []hir.SigParam{{Ident: "self", Ty: calcSelf}}, Output: intTy}}
	p.Items["Calc.assoc"] = &hir.Item{ID: "Calc.assoc", Kind: hir.KindFn, Name: "assoc", Owner: "Calc", Law: true}

	p.Impls["CalcPoint"] = &hir.Impl{ID: "CalcPoint", Pkg: "main", Interface: "Calc",
		Args: tyArgs(pointTy),
		Items: map[hir.DefID]hir.DefID{
			"Calc.f":     "CalcPoint.f",
			"Calc.g":     "CalcPoint.g",
			"Calc.assoc": "CalcPoint.assoc",
		},
		Span: term.Span{File: "calc.vt", Line: 10}}

	p.Items["CalcPoint.f"] = &hir.Item{ID: "CalcPoint.f", Kind: hir.KindFn, Name: "f", Owner: "CalcPoint",
		PureSpec: true,
		Sig: &hir.Sig{
			Inputs: []hir.SigParam{{Ident: "self2", Ty: pointTy}, {Ident: "y", Ty: intTy}},
			Output: intTy,
		},
		Contract: hir.Contract{
			Requires: []*term.Term{term.Pred(">=", term.Var("y"), term.Lit("0"))},
			Ensures:  []*term.Term{term.Pred("=", term.Var("result"), term.Pred("+", term.Var("y"), term.Lit("1")))},
		},
		Span: term.Span{File: "calc.vt", Line: 12}}
	p.Items["CalcPoint.g"] = &hir.Item{ID: "CalcPoint.g", Kind: hir.KindFn, Name: "g", Owner: "CalcPoint",
		Sig: &hir.Sig{Inputs: []hir.SigParam{{Ident: "me", Ty: pointTy}}, Output: intTy}}
	p.Items["CalcPoint.assoc"] = &hir.Item{ID: "CalcPoint.assoc", Kind: hir.KindFn, Name: "assoc", Owner: "CalcPoint", Law: true}

	return p
}

func findRefinement(t *testing.T, out TraitImpl, traitItem hir.DefID) Refinement {
	t.Helper()
	for _, r := range out.Refinements {
		if r.Trait.Item == traitItem {
			return r
		}
	}
	t.Fatalf("no refinement for %s in %v", traitItem, out.Refinements)
	return Refinement{}
}

func TestTranslateImpl(t *testing.T) {
	p := calcProgram()
	out, err := TranslateImpl(p, solver.NewLocal(p), "CalcPoint")
	if err != nil {
		t.Fatalf("TranslateImpl: %v", err)
	}

	if len(out.Laws) != 1 || out.Laws[0] != "CalcPoint.assoc" {
		t.Errorf("Laws = %v, want [CalcPoint.assoc]", out.Laws)
	}
	if len(out.Refinements) != 2 {
		t.Fatalf("Refinements = %v, want f and g only", out.Refinements)
	}

	r := findRefinement(t, out, "Calc.f")
	if r.Impl.Item != "CalcPoint.f" {
		t.Errorf("impl item = %s", r.Impl.Item)
	}
	if r.Trait.Args.String() != "[Point]" {
		t.Errorf("trait substitution = %s, want [Point]", r.Trait.Args)
	}

	// forall self: Point. forall x: Int.
	//   x > 0 -> (x >= 0 /\ forall result: Int. result = x + 1 -> result > x)
	want := term.Forall("self", pointTy,
		term.Forall("x", intTy,
			term.Implies(
				term.Pred(">", term.Var("x"), term.Lit("0")),
				term.Conj(
					term.Pred(">=", term.Var("x"), term.Lit("0")),
					term.Forall("result", intTy,
						term.Implies(
							term.Pred("=", term.Var("result"), term.Pred("+", term.Var("x"), term.Lit("1"))),
							term.Pred(">", term.Var("result"), term.Var("x"))))))))
	if !term.Equal(r.Refn, want) {
		t.Errorf("refinement =\n  %s\nwant\n  %s", r.Refn, want)
	}
	if free := r.Refn.FreeIdents(); len(free) != 0 {
		t.Errorf("refinement is not closed, free: %v", free)
	}
	if r.Refn.Span != p.SpanOf("CalcPoint.f") {
		t.Errorf("refinement span = %s, want the impl item's", r.Refn.Span)
	}
}

func TestTranslateImplInjectsInvariants(t *testing.T) {
	p := calcProgram()
	out, err := TranslateImpl(p, solver.NewLocal(p), "CalcPoint")
	if err != nil {
		t.Fatalf("TranslateImpl: %v", err)
	}
	r := findRefinement(t, out, "Calc.g")

	// g carries no contract, so only the implicit structural invariants
	// remain on both sides.
	want := term.Forall("self", pointTy,
		term.Implies(
			term.Inv(pointTy, term.Var("self")),
			term.Conj(
				term.Inv(pointTy, term.Var("self")),
				term.Forall("result", intTy,
					term.Implies(
						term.Inv(intTy, term.Var("result")),
						term.Inv(intTy, term.Var("result")))))))
	if !term.Equal(r.Refn, want) {
		t.Errorf("refinement =\n  %s\nwant\n  %s", r.Refn, want)
	}
}

func TestTranslateImplDeterministic(t *testing.T) {
	p := calcProgram()
	s := solver.NewLocal(p)
	first, err := TranslateImpl(p, s, "CalcPoint")
	if err != nil {
		t.Fatalf("TranslateImpl: %v", err)
	}
	for i := 0; i < 8; i++ {
		again, err := TranslateImpl(p, s, "CalcPoint")
		if err != nil {
			t.Fatalf("TranslateImpl #%d: %v", i, err)
		}
		if len(again.Refinements) != len(first.Refinements) {
			t.Fatalf("run %d produced %d refinements, first %d", i, len(again.Refinements), len(first.Refinements))
		}
		for j := range again.Refinements {
			if again.Refinements[j].Trait.Item != first.Refinements[j].Trait.Item {
				t.Fatalf("run %d ordered %s at %d, first run %s",
					i, again.Refinements[j].Trait.Item, j, first.Refinements[j].Trait.Item)
			}
			if !term.Equal(again.Refinements[j].Refn, first.Refinements[j].Refn) {
				t.Fatalf("run %d rebuilt a different term for %s", i, again.Refinements[j].Trait.Item)
			}
		}
	}
}

func TestTranslateImplExternal(t *testing.T) {
	p := calcProgram()
	p.Impls["CalcPoint"].External = true

	out, err := TranslateImpl(p, solver.NewLocal(p), "CalcPoint")
	if err != nil {
		t.Fatalf("TranslateImpl: %v", err)
	}
	if len(out.Refinements) != 0 {
		t.Errorf("external impl produced obligations: %v", out.Refinements)
	}
	if len(out.Laws) != 1 {
		t.Errorf("external impl laws = %v, laws are still reported", out.Laws)
	}
}

func TestTranslateImplSideConditions(t *testing.T) {
	p := calcProgram()
	calcSelf := typesystem.Param{Owner: "Calc", Index: 0, Name: "Self"}
	p.ExternSpecs["Calc.f"] = []hir.Predicate{{Trait: "Ord", Args: tyArgs(calcSelf)}}

	// No Ord implementation for Point: the side condition fails and the
	// translation aborts with a coded diagnostic at the impl item.
	_, err := TranslateImpl(p, solver.NewLocal(p), "CalcPoint")
	var diag *diagnostics.Diagnostic
	if !errors.As(err, &diag) {
		t.Fatalf("TranslateImpl error = %v, want a diagnostic", err)
	}
	if diag.Code != diagnostics.ErrV002 {
		t.Errorf("diagnostic code = %s, want %s", diag.Code, diagnostics.ErrV002)
	}
	if diag.Span != (term.Span{File: "calc.vt", Line: 12}) {
		t.Errorf("diagnostic span = %s, want the impl item's", diag.Span)
	}

	// With the implementation in scope the side condition discharges.
	p.Interfaces["Ord"] = &hir.Interface{ID: "Ord", Pkg: "core", Params: []hir.ParamDef{{Name: "Self"}}}
	p.Impls["OrdPoint"] = &hir.Impl{ID: "OrdPoint", Pkg: "main", Interface: "Ord",
		Args: tyArgs(pointTy), Items: map[hir.DefID]hir.DefID{}}
	if _, err := TranslateImpl(p, solver.NewLocal(p), "CalcPoint"); err != nil {
		t.Errorf("TranslateImpl with discharged side conditions: %v", err)
	}
}

type errSolver struct{}

func (errSolver) Discharge(hir.DefID, []hir.Predicate) ([]solver.Failure, error) {
	return nil, errors.New("prover unreachable")
}

func TestTranslateImplSolverError(t *testing.T) {
	p := calcProgram()
	calcSelf := typesystem.Param{Owner: "Calc", Index: 0, Name: "Self"}
	p.ExternSpecs["Calc.f"] = []hir.Predicate{{Trait: "Ord", Args: tyArgs(calcSelf)}}

	if _, err := TranslateImpl(p, errSolver{}, "CalcPoint"); err == nil {
		t.Fatal("transport failure must abort the translation")
	}
}

func TestLaws(t *testing.T) {
	p := calcProgram()
	p.Interfaces["Calc"].Items = append(p.Interfaces["Calc"].Items, "Calc.hidden")
	p.Items["Calc.hidden"] = &hir.Item{ID: "Calc.hidden", Kind: hir.KindFn, Name: "hidden",
		Owner: "Calc", Law: true, SpecOnly: true}

	got := Laws(p, "Calc")
	if len(got) != 1 || got[0] != "Calc.assoc" {
		t.Errorf("Laws(Calc) = %v, want [Calc.assoc] with spec-only items skipped", got)
	}

	got = Laws(p, "CalcPoint")
	if len(got) != 1 || got[0] != "CalcPoint.assoc" {
		t.Errorf("Laws(CalcPoint) = %v", got)
	}
}
