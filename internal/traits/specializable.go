package traits

import (
	"github.com/verith-lang/verith/internal/diagnostics"
	"github.com/verith-lang/verith/internal/hir"
	"github.com/verith-lang/verith/internal/typesystem"
)

// stillSpecializable decides whether resolving itemID at ref is stable:
// false means no future type refinement and no newly-visible package can
// change which implementation applies; true means resolution must be
// treated as unknown.
func stillSpecializable(p *hir.Program, env *hir.TypingEnv, itemID hir.DefID, ref hir.Ref, src *source) bool {
	// Search start: the least specialized node whose definition of the
	// item currently applies.
	var start hir.DefID
	if src != nil && src.kind == sourceUserDefined {
		ancestors := p.Ancestors(src.impl)
		leaf, ok := p.LeafDef(ancestors, itemID)
		if !ok {
			diagnostics.ICE("trait item %s not found in ancestors of %s", itemID, src.impl)
		}
		if !leaf.Overridable {
			// The leaf is not marked default: resolution is frozen here.
			return false
		}
		start = leaf.DefiningNode
	} else {
		start = ref.Interface
	}

	// Instantiate every free parameter with fresh inference variables so
	// the checks below reason about what any refinement could produce.
	ictx := typesystem.NewInferCtx()
	iref := hir.Ref{Interface: ref.Interface, Args: ictx.InstantiateFresh(ref.Args)}

	// If an unseen package could legally supply an overlapping
	// implementation, global uniqueness is unprovable.
	if hir.OrphanCheckRemote(p, ictx, iref) {
		return true
	}

	// Search the descendants of the start node for a more specific
	// implementation that both applies and defines the item itself. Each
	// trial unification runs in a discardable fork.
	graph := p.Graph(ref.Interface)
	stack := append([]hir.DefID(nil), graph.Children(start)...)
	visited := make(map[hir.DefID]bool)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[node] {
			continue
		}
		visited[node] = true

		trial := ictx.Fork()
		fresh := trial.InstantiateFresh(p.IdentityArgs(node))
		b := p.BindingFor(node, fresh)
		pattern := typesystem.SubstituteArgs(p.Impls[node].Args, b)
		if trial.UnifyArgs(pattern, iref.Args) != nil {
			continue
		}
		if _, defines := p.Impls[node].Items[itemID]; defines {
			return true
		}
		stack = append(stack, graph.Children(node)...)
	}
	return false
}
