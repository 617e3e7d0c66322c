package hir

import (
	"sort"

	"github.com/verith-lang/verith/internal/typesystem"
)

// Graph is the specialization graph of one interface: a DAG over its
// implementations where edges mean "more specific than". The interface
// itself is the root node. Read-only once built.
type Graph struct {
	Interface DefID
	children  map[DefID][]DefID
}

// Graph builds (or rebuilds) the specialization graph of an interface from
// the implementations' parent links.
func (p *Program) Graph(ifaceID DefID) *Graph {
	g := &Graph{Interface: ifaceID, children: make(map[DefID][]DefID)}
	for _, impl := range p.ImplsOf(ifaceID) {
		parent := impl.Parent
		if parent == "" {
			parent = ifaceID
		}
		g.children[parent] = append(g.children[parent], impl.ID)
	}
	// Blanket impls first, then type-specific, each group sorted by id.
	for node, ch := range g.children {
		sort.Slice(ch, func(i, j int) bool {
			bi, bj := p.IsBlanket(ch[i]), p.IsBlanket(ch[j])
			if bi != bj {
				return bi
			}
			return ch[i] < ch[j]
		})
		g.children[node] = ch
	}
	return g
}

// Children returns the direct descendants of a node, blanket
// implementations before type-specific ones.
func (g *Graph) Children(node DefID) []DefID {
	return g.children[node]
}

// IsBlanket reports whether an implementation's receiver pattern is a bare
// generic parameter.
func (p *Program) IsBlanket(implID DefID) bool {
	impl, ok := p.Impls[implID]
	if !ok || len(impl.Args) == 0 || impl.Args[0].Ty == nil {
		return false
	}
	_, isParam := impl.Args[0].Ty.(typesystem.Param)
	return isParam
}

// Ancestors returns the chain from an implementation up to the interface
// root, most specific first.
func (p *Program) Ancestors(implID DefID) []DefID {
	var out []DefID
	cur := implID
	for {
		impl, ok := p.Impls[cur]
		if !ok {
			break
		}
		out = append(out, cur)
		if impl.Parent == "" || impl.Parent == impl.Interface {
			out = append(out, impl.Interface)
			break
		}
		cur = impl.Parent
	}
	return out
}

// LeafDef is the most specific definition of an item along an ancestor
// chain.
type LeafDef struct {
	Item         DefID
	DefiningNode DefID
	// Overridable reports whether a more specific node may still replace
	// this definition: the item or its defining node is marked default,
	// or the definition is the interface's own default body.
	Overridable bool
}

// LeafDef walks an ancestor chain (most specific first) and returns the
// first definition of traitItem found.
func (p *Program) LeafDef(ancestors []DefID, traitItem DefID) (LeafDef, bool) {
	for _, node := range ancestors {
		if impl, ok := p.Impls[node]; ok {
			if implItem, ok := impl.Items[traitItem]; ok {
				it := p.Items[implItem]
				return LeafDef{
					Item:         implItem,
					DefiningNode: node,
					Overridable:  it.Default || impl.Default,
				}, true
			}
			continue
		}
		if node == p.Items[traitItem].Owner {
			if p.Items[traitItem].HasDefault {
				return LeafDef{Item: traitItem, DefiningNode: node, Overridable: true}, true
			}
		}
	}
	return LeafDef{}, false
}
