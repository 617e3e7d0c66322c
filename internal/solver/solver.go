// Package solver discharges auxiliary typing obligations. The core only
// builds predicate batches and forwards them; satisfiability is decided
// here (structurally, in process) or by a remote prover behind gRPC.
// Discharge is synchronous: it runs to completion or the whole translation
// aborts, with no partial results, retries or timeouts.
package solver

import (
	"fmt"

	"github.com/verith-lang/verith/internal/hir"
)

// Failure is one predicate the solver could not discharge.
type Failure struct {
	Predicate string `json:"predicate"`
	Reason    string `json:"reason"`
}

// Solver accepts a batch of predicates under the typing scope of one
// declaration and reports the subset that does not hold. A nil slice means
// the whole batch discharged. The error channel is for transport and
// infrastructure faults only, never for unsatisfiable predicates.
type Solver interface {
	Discharge(scope hir.DefID, preds []hir.Predicate) ([]Failure, error)
}

// RenderPredicate prints a predicate in the stable textual form used for
// remote batches, cache keys and failure reports.
func RenderPredicate(pred hir.Predicate) string {
	if len(pred.Args) == 0 {
		return string(pred.Trait)
	}
	return fmt.Sprintf("%s: %s%s", pred.Args[0], pred.Trait, pred.Args[1:])
}
