// Package hir holds the lowered program facts the verifier core consumes:
// interfaces, implementations, item signatures and contracts, generic
// parameter scopes and the specialization graph. Everything here is created
// once by upstream lowering and read-only for the whole analysis session.
package hir

import (
	"sort"

	"github.com/verith-lang/verith/internal/term"
	"github.com/verith-lang/verith/internal/typesystem"
)

// DefID is the stable identity of a declaration.
type DefID string

// ItemKind distinguishes the declaration kinds the core handles.
type ItemKind int

const (
	KindFn ItemKind = iota
	KindClosure
	KindAssocConst
)

// ParamKind distinguishes type from const generic parameters.
type ParamKind int

const (
	ParamType ParamKind = iota
	ParamConst
)

// ParamDef declares one generic parameter of an interface, implementation
// or item.
type ParamDef struct {
	Name string
	Kind ParamKind
}

// ParamRef is one in-scope parameter with its stable cross-scope identity.
type ParamRef struct {
	Key  typesystem.ParamKey
	Name string
	Kind ParamKind
}

// Ref is an interface reference: an interface plus the arguments it is
// instantiated with. Args[0] is the receiver type.
type Ref struct {
	Interface DefID
	Args      typesystem.Args
}

// Predicate states that a reference must hold, e.g. a bound `T: Ord`.
type Predicate struct {
	Trait DefID
	Args  typesystem.Args
}

// SigParam is one formal parameter of an item signature.
type SigParam struct {
	Ident term.Ident
	Ty    typesystem.Type
}

// Sig is an item signature: ordered inputs and the result type.
type Sig struct {
	Inputs []SigParam
	Output typesystem.Type
}

// Contract is a behavioral contract: precondition set and postconditions.
type Contract struct {
	Requires []*term.Term
	Ensures  []*term.Term
}

// RequiresConj folds the precondition set into one formula.
func (c Contract) RequiresConj() *term.Term {
	out := term.True()
	for _, r := range c.Requires {
		out = term.Conj(out, r)
	}
	return out
}

// EnsuresConj folds the postconditions into one formula.
func (c Contract) EnsuresConj() *term.Term {
	out := term.True()
	for _, e := range c.Ensures {
		out = term.Conj(out, e)
	}
	return out
}

// Item is one declaration: an associated function of an interface or
// implementation, or a closure.
type Item struct {
	ID    DefID
	Kind  ItemKind
	Name  string
	Owner DefID // declaring interface or impl; empty for free items

	Params []ParamDef
	Bounds []Predicate

	Law        bool // axiom, assumed not proved
	PureSpec   bool // specification sublanguage, exempt from invariant injection
	SpecOnly   bool // internal spec plumbing item, skipped by law collection
	Default    bool // marked default: a more specific node may override
	HasDefault bool // interface item with a default body

	Sig      *Sig
	Contract Contract
	Span     term.Span
}

// Interface is an abstract capability contract.
type Interface struct {
	ID      DefID
	Pkg     string
	Params  []ParamDef // Self is Params[0]
	Items   []DefID
	Builtin bool // compiler-synthesized callable interface
}

// Impl binds an interface to a concrete (possibly still generic) receiver.
type Impl struct {
	ID  DefID
	Pkg string

	Interface DefID
	Args      typesystem.Args // reference pattern in terms of the impl's own params
	Params    []ParamDef
	Bounds    []Predicate

	External bool  // verified elsewhere; trusted, no local obligations
	Default  bool  // marked default: overridable as a whole
	Parent   DefID // specialization parent: a less specific impl, or the interface

	Items map[DefID]DefID // interface item -> implementation item
	Span  term.Span
}

// TypingEnv is the set of free generic parameters at a use site plus the
// constraints known to hold on them.
type TypingEnv struct {
	Params []ParamRef
	Bounds []Predicate
}

// Program is the read-only fact base for one analysis session.
type Program struct {
	LocalPkg string

	Items      map[DefID]*Item
	Interfaces map[DefID]*Interface
	Impls      map[DefID]*Impl

	// ExternSpecs are auxiliary typing predicates attached to interface
	// items, instantiated at resolution time and discharged by the solver.
	ExternSpecs map[DefID][]Predicate
}

// NewProgram creates an empty fact base for the given local package.
func NewProgram(localPkg string) *Program {
	return &Program{
		LocalPkg:    localPkg,
		Items:       make(map[DefID]*Item),
		Interfaces:  make(map[DefID]*Interface),
		Impls:       make(map[DefID]*Impl),
		ExternSpecs: make(map[DefID][]Predicate),
	}
}

// IsTraitItem reports whether id is an item declared by an interface.
func (p *Program) IsTraitItem(id DefID) bool {
	_, ok := p.TraitOfItem(id)
	return ok
}

// TraitOfItem returns the interface declaring id, if any.
func (p *Program) TraitOfItem(id DefID) (DefID, bool) {
	it, ok := p.Items[id]
	if !ok || it.Owner == "" {
		return "", false
	}
	if _, ok := p.Interfaces[it.Owner]; ok {
		return it.Owner, true
	}
	return "", false
}

// AssociatedItems lists the items of an interface or implementation in
// declaration order.
func (p *Program) AssociatedItems(owner DefID) []DefID {
	if iface, ok := p.Interfaces[owner]; ok {
		return iface.Items
	}
	if impl, ok := p.Impls[owner]; ok {
		iface := p.Interfaces[impl.Interface]
		var out []DefID
		for _, ti := range iface.Items {
			if ii, ok := impl.Items[ti]; ok {
				out = append(out, ii)
			}
		}
		return out
	}
	return nil
}

// IsLaw reports whether the item is a law.
func (p *Program) IsLaw(id DefID) bool {
	it, ok := p.Items[id]
	return ok && it.Law
}

// IsPureSpec reports whether the item is written in the specification
// sublanguage.
func (p *Program) IsPureSpec(id DefID) bool {
	it, ok := p.Items[id]
	return ok && it.PureSpec
}

// IsFn reports whether the item is a callable member.
func (p *Program) IsFn(id DefID) bool {
	it, ok := p.Items[id]
	return ok && it.Kind == KindFn
}

// SigOf returns the item's signature.
func (p *Program) SigOf(id DefID) *Sig {
	if it, ok := p.Items[id]; ok {
		return it.Sig
	}
	return nil
}

// ContractOf returns the item's declared contract.
func (p *Program) ContractOf(id DefID) Contract {
	if it, ok := p.Items[id]; ok {
		return it.Contract
	}
	return Contract{}
}

// SpanOf returns the item's source location.
func (p *Program) SpanOf(id DefID) term.Span {
	if it, ok := p.Items[id]; ok {
		return it.Span
	}
	return term.Span{}
}

// ImplTraitRef returns the interface reference an implementation binds,
// instantiated at the implementation's identity arguments.
func (p *Program) ImplTraitRef(implID DefID) Ref {
	impl := p.Impls[implID]
	return Ref{Interface: impl.Interface, Args: impl.Args.Clone()}
}

// ItemPair pairs an interface item with its implementation item.
type ItemPair struct {
	TraitItem DefID
	ImplItem  DefID
}

// ImplementorMap lists the interface-item to implementation-item pairs of
// an implementation. The slice is in interface declaration order; callers
// that expose ordering externally re-sort by content hash.
func (p *Program) ImplementorMap(implID DefID) []ItemPair {
	impl := p.Impls[implID]
	iface := p.Interfaces[impl.Interface]
	var out []ItemPair
	for _, ti := range iface.Items {
		if ii, ok := impl.Items[ti]; ok {
			out = append(out, ItemPair{TraitItem: ti, ImplItem: ii})
		}
	}
	return out
}

// IsLocal reports whether the implementation's obligations must be checked
// in this session.
func (p *Program) IsLocal(implID DefID) bool {
	impl, ok := p.Impls[implID]
	return ok && !impl.External
}

// ImplsOf lists the implementations of an interface, sorted by id so every
// enumeration in the core is deterministic.
func (p *Program) ImplsOf(ifaceID DefID) []*Impl {
	var out []*Impl
	for _, impl := range p.Impls {
		if impl.Interface == ifaceID {
			out = append(out, impl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ParamsOf returns the full in-scope parameter list of a declaration:
// the declaring owner's parameters followed by the declaration's own.
func (p *Program) ParamsOf(id DefID) []ParamRef {
	var out []ParamRef
	add := func(owner DefID, defs []ParamDef) {
		for i, d := range defs {
			out = append(out, ParamRef{
				Key:  typesystem.ParamKey{Owner: string(owner), Index: i},
				Name: d.Name,
				Kind: d.Kind,
			})
		}
	}

	if iface, ok := p.Interfaces[id]; ok {
		add(id, iface.Params)
		return out
	}
	if impl, ok := p.Impls[id]; ok {
		add(id, impl.Params)
		return out
	}
	if it, ok := p.Items[id]; ok {
		if it.Owner != "" {
			out = p.ParamsOf(it.Owner)
		}
		add(id, it.Params)
		return out
	}
	return nil
}

// IdentityArgs builds the identity substitution of a declaration: each
// in-scope parameter instantiated with itself.
func (p *Program) IdentityArgs(id DefID) typesystem.Args {
	refs := p.ParamsOf(id)
	out := make(typesystem.Args, len(refs))
	for i, r := range refs {
		if r.Kind == ParamConst {
			out[i] = typesystem.ConstArg(typesystem.ConstParam{Owner: r.Key.Owner, Index: r.Key.Index, Name: r.Name})
		} else {
			out[i] = typesystem.TypeArg(typesystem.Param{Owner: r.Key.Owner, Index: r.Key.Index, Name: r.Name})
		}
	}
	return out
}

// EnvOf builds the typing environment anchored at a declaration: its
// in-scope parameters plus the bounds of the declaration and its owner.
func (p *Program) EnvOf(id DefID) *TypingEnv {
	env := &TypingEnv{Params: p.ParamsOf(id)}
	if it, ok := p.Items[id]; ok {
		if it.Owner != "" {
			env.Bounds = append(env.Bounds, p.boundsOf(it.Owner)...)
		}
		env.Bounds = append(env.Bounds, it.Bounds...)
		return env
	}
	env.Bounds = p.boundsOf(id)
	return env
}

func (p *Program) boundsOf(id DefID) []Predicate {
	if impl, ok := p.Impls[id]; ok {
		return impl.Bounds
	}
	if it, ok := p.Items[id]; ok {
		return it.Bounds
	}
	return nil
}

// BindingFor zips a declaration's parameter list with positional arguments
// into an explicit keyed binding.
func (p *Program) BindingFor(id DefID, args typesystem.Args) typesystem.Binding {
	refs := p.ParamsOf(id)
	b := make(typesystem.Binding, len(refs))
	for i, r := range refs {
		if i < len(args) {
			b[r.Key] = args[i]
		}
	}
	return b
}

// InstantiateSig substitutes a declaration's signature at the given
// positional arguments.
func (p *Program) InstantiateSig(id DefID, args typesystem.Args) *Sig {
	sig := p.SigOf(id)
	if sig == nil {
		return nil
	}
	b := p.BindingFor(id, args)
	out := &Sig{Inputs: make([]SigParam, len(sig.Inputs))}
	for i, in := range sig.Inputs {
		out.Inputs[i] = SigParam{Ident: in.Ident, Ty: typesystem.Substitute(in.Ty, b)}
	}
	out.Output = typesystem.Substitute(sig.Output, b)
	return out
}

// InstantiateContract substitutes the types embedded in a declaration's
// contract at the given positional arguments.
func (p *Program) InstantiateContract(id DefID, args typesystem.Args) Contract {
	con := p.ContractOf(id)
	b := p.BindingFor(id, args)
	f := func(t typesystem.Type) typesystem.Type { return typesystem.Substitute(t, b) }
	out := Contract{}
	for _, r := range con.Requires {
		out.Requires = append(out.Requires, r.MapTypes(f))
	}
	for _, e := range con.Ensures {
		out.Ensures = append(out.Ensures, e.MapTypes(f))
	}
	return out
}

// InstantiatePredicate substitutes a predicate declared in the scope of
// `owner` at positional arguments for that scope.
func (p *Program) InstantiatePredicate(owner DefID, pred Predicate, args typesystem.Args) Predicate {
	b := p.BindingFor(owner, args)
	return Predicate{Trait: pred.Trait, Args: typesystem.SubstituteArgs(pred.Args, b)}
}

// RebaseOnto reinterprets a substitution built for a sub-scope in terms of
// an enclosing scope's arguments: the source owner's parameter prefix is
// replaced by base, the trailing own arguments are kept.
func RebaseOnto(sub typesystem.Args, sourceParamCount int, base typesystem.Args) typesystem.Args {
	out := make(typesystem.Args, 0, len(base)+len(sub)-sourceParamCount)
	out = append(out, base...)
	out = append(out, sub[sourceParamCount:]...)
	return out
}
