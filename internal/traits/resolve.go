// Package traits implements interface-item resolution and the generation
// of contract-refinement obligations for implementations.
//
// Resolution answers, for a call through a generic interface, which
// concrete implementation will execute — or reports that the answer is
// unknowable with the types currently in scope. The model is open-world:
// packages the analyzer cannot see may add implementations, and a marked
// default implementation may be specialized later, so "unknown" is a
// first-class outcome and never collapsed into found/not-found.
package traits

import (
	"fmt"

	"github.com/verith-lang/verith/internal/diagnostics"
	"github.com/verith-lang/verith/internal/hir"
	"github.com/verith-lang/verith/internal/typesystem"
)

// ResolutionKind tags the possible outcomes of Resolve.
type ResolutionKind int

const (
	// NotATraitItem: the item is not declared by any interface.
	NotATraitItem ResolutionKind = iota
	// Instance: a concrete implementation item was found.
	Instance
	// UnknownFound: some implementation is guaranteed to exist, but which
	// one cannot be determined at this call site.
	UnknownFound
	// UnknownNotFound: no implementation is visible, but one may appear
	// with more type information or from an unseen package.
	UnknownNotFound
	// NoInstance: provably no implementation can ever apply.
	NoInstance
)

func (k ResolutionKind) String() string {
	switch k {
	case NotATraitItem:
		return "NotATraitItem"
	case Instance:
		return "Instance"
	case UnknownFound:
		return "UnknownFound"
	case UnknownNotFound:
		return "UnknownNotFound"
	case NoInstance:
		return "NoInstance"
	default:
		return fmt.Sprintf("ResolutionKind(%d)", int(k))
	}
}

// Resolution is the outcome of resolving an interface item at a
// substitution. Item and Args are set only for Instance.
type Resolution struct {
	Kind ResolutionKind
	Item hir.DefID
	Args typesystem.Args
}

func (r Resolution) String() string {
	if r.Kind == Instance {
		return fmt.Sprintf("Instance(%s, %s)", r.Item, r.Args)
	}
	return r.Kind.String()
}

// Resolve tries to resolve an interface item to the item of an
// implementation block, given the substitution of the item's full generic
// scope (receiver included) and the typing environment of the call site.
func Resolve(p *hir.Program, env *hir.TypingEnv, itemID hir.DefID, args typesystem.Args) Resolution {
	traitID, ok := p.TraitOfItem(itemID)
	if !ok {
		return Resolution{Kind: NotATraitItem}
	}
	iface := p.Interfaces[traitID]
	ictx := typesystem.NewInferCtx()
	ref := hir.Ref{Interface: traitID, Args: ictx.ResolveArgs(args[:len(iface.Params)])}

	src, found := selectImpl(p, ictx, env, ref)
	if !found {
		if stillSpecializable(p, env, itemID, ref, nil) {
			return Resolution{Kind: UnknownNotFound}
		}
		return Resolution{Kind: NoInstance}
	}

	switch src.kind {
	case sourceUserDefined:
		if stillSpecializable(p, env, itemID, ref, &src) {
			return Resolution{Kind: UnknownFound}
		}

		// Find the associated item actually reachable from the selected
		// implementation. A miss here breaks the ancestor-chain invariant
		// and is a bug, not an outcome.
		ancestors := p.Ancestors(src.impl)
		leaf, ok := p.LeafDef(ancestors, itemID)
		if !ok {
			diagnostics.ICE("trait item %s not found in ancestors of %s", itemID, src.impl)
		}

		nodeArgs := translateArgs(p, ictx, src.impl, src.args, leaf.DefiningNode)
		final := hir.RebaseOnto(args, len(iface.Params), nodeArgs)
		return Resolution{Kind: Instance, Item: leaf.Item, Args: ictx.ResolveArgs(final)}

	case sourceParam:
		// The receiver is an abstract parameter whose bound guarantees an
		// instance; its identity is never knowable here.
		return Resolution{Kind: UnknownFound}

	case sourceBuiltin:
		self := ictx.Resolve(ref.Args[0].Ty)
		if cl, ok := self.(typesystem.Closure); ok {
			return Resolution{Kind: Instance, Item: hir.DefID(cl.Def), Args: cl.Captures}
		}
		diagnostics.ICE("unsupported builtin implementation of %s for %s", traitID, self)
	}
	diagnostics.ICE("unhandled implementation source kind %d", src.kind)
	return Resolution{}
}

// ImplIDOfTrait attempts coherent selection only, returning the chosen
// implementation block for a user-defined source. Bound-supplied and
// builtin sources carry no implementation block.
func ImplIDOfTrait(p *hir.Program, env *hir.TypingEnv, traitID hir.DefID, args typesystem.Args) (hir.DefID, bool) {
	iface, ok := p.Interfaces[traitID]
	if !ok {
		return "", false
	}
	ictx := typesystem.NewInferCtx()
	ref := hir.Ref{Interface: traitID, Args: ictx.ResolveArgs(args[:len(iface.Params)])}
	src, found := selectImpl(p, ictx, env, ref)
	if !found || src.kind != sourceUserDefined {
		return "", false
	}
	return src.impl, true
}

// ToOpt collapses a resolution to a best-effort concrete target. Instance
// yields the resolved target; NotATraitItem and UnknownFound fall back to
// the originally named item and substitution, which is sound because
// dispatch stays dynamic at the recipient; the remaining outcomes yield no
// target.
func (r Resolution) ToOpt(itemID hir.DefID, args typesystem.Args) (hir.DefID, typesystem.Args, bool) {
	switch r.Kind {
	case Instance:
		return r.Item, r.Args, true
	case NotATraitItem, UnknownFound:
		return itemID, args, true
	default:
		return "", nil, false
	}
}

// translateArgs reinterprets an implementation's arguments for one of its
// ancestor nodes, unifying each child's interface reference against the
// parent's pattern on the way up. The target node is either an ancestor
// implementation or the interface root.
func translateArgs(p *hir.Program, ictx *typesystem.InferCtx, from hir.DefID, fromArgs typesystem.Args, to hir.DefID) typesystem.Args {
	cur, curArgs := from, fromArgs
	for cur != to {
		impl, ok := p.Impls[cur]
		if !ok {
			diagnostics.ICE("specialization ancestor %s of %s is not an implementation", cur, from)
		}
		b := p.BindingFor(cur, curArgs)
		traitArgs := typesystem.SubstituteArgs(impl.Args, b)

		parent := impl.Parent
		if parent == "" || parent == impl.Interface {
			if to != impl.Interface {
				diagnostics.ICE("%s is not an ancestor of %s", to, from)
			}
			return traitArgs
		}

		pimpl := p.Impls[parent]
		fresh := ictx.InstantiateFresh(p.IdentityArgs(parent))
		pb := p.BindingFor(parent, fresh)
		pattern := typesystem.SubstituteArgs(pimpl.Args, pb)
		if err := ictx.UnifyArgs(pattern, traitArgs); err != nil {
			diagnostics.ICE("cannot translate arguments from %s to parent %s: %v", cur, parent, err)
		}
		cur, curArgs = parent, ictx.ResolveArgs(fresh)
	}
	return curArgs
}
