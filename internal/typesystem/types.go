package typesystem

import (
	"fmt"
	"strings"
)

// Type is the interface for all types handled by the core.
type Type interface {
	String() string
	isType()
}

// Var is an inference variable introduced by an InferCtx.
type Var struct {
	ID int
}

func (t Var) isType()        {}
func (t Var) String() string { return fmt.Sprintf("?%d", t.ID) }

// Param is a rigid generic parameter in scope. Owner is the def id of the
// declaring interface, implementation or item; Index is the position within
// that declarer's own parameter list.
type Param struct {
	Owner string
	Index int
	Name  string
}

func (t Param) isType() {}
func (t Param) String() string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("%s#%d", t.Owner, t.Index)
}

// Con is a nullary type constructor (Int, Point). Pkg names the package
// that declares it, which the orphan check consults.
type Con struct {
	Pkg  string
	Name string
}

func (t Con) isType()        {}
func (t Con) String() string { return t.Name }

// App is an applied type constructor (List<Int>).
type App struct {
	Ctor Con
	Args []Type
}

func (t App) isType() {}
func (t App) String() string {
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", t.Ctor.Name, strings.Join(parts, ", "))
}

// Tuple is a structural tuple type.
type Tuple struct {
	Elems []Type
}

func (t Tuple) isType() {}
func (t Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Closure is the type of one closure value: its defining item plus the
// capture substitution.
type Closure struct {
	Def      string
	Captures Args
}

func (t Closure) isType()        {}
func (t Closure) String() string { return fmt.Sprintf("closure(%s)", t.Def) }

// Const is the interface for const generic arguments.
type Const interface {
	String() string
	isConst()
}

// ConstVar is a const inference variable.
type ConstVar struct {
	ID int
}

func (c ConstVar) isConst()       {}
func (c ConstVar) String() string { return fmt.Sprintf("?c%d", c.ID) }

// ConstParam is a rigid const generic parameter.
type ConstParam struct {
	Owner string
	Index int
	Name  string
}

func (c ConstParam) isConst() {}
func (c ConstParam) String() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("%s#c%d", c.Owner, c.Index)
}

// ConstVal is a concrete const value, kept as its printed form.
type ConstVal struct {
	Repr string
}

func (c ConstVal) isConst()       {}
func (c ConstVal) String() string { return c.Repr }

// Arg is one generic argument: exactly one of Ty or Ct is set.
type Arg struct {
	Ty Type
	Ct Const
}

// TypeArg wraps a type as a generic argument.
func TypeArg(t Type) Arg { return Arg{Ty: t} }

// ConstArg wraps a const as a generic argument.
func ConstArg(c Const) Arg { return Arg{Ct: c} }

func (a Arg) String() string {
	if a.Ty != nil {
		return a.Ty.String()
	}
	if a.Ct != nil {
		return a.Ct.String()
	}
	return "<none>"
}

// Args is an ordered generic-argument list. Index 0 is the receiver (Self)
// position for interface references.
type Args []Arg

func (as Args) String() string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Clone returns a shallow copy; argument values themselves are immutable.
func (as Args) Clone() Args {
	out := make(Args, len(as))
	copy(out, as)
	return out
}

// ParamKey identifies one generic parameter across scopes.
type ParamKey struct {
	Owner string
	Index int
}

// Binding maps generic parameters to actual arguments. Explicit and keyed by
// stable parameter identity, never by position alone.
type Binding map[ParamKey]Arg

// Substitute replaces every Param and ConstParam occurrence bound in b.
// Unbound parameters stay rigid.
func Substitute(t Type, b Binding) Type {
	if t == nil {
		return nil
	}
	switch t := t.(type) {
	case Var, Con:
		return t
	case Param:
		if a, ok := b[ParamKey{t.Owner, t.Index}]; ok && a.Ty != nil {
			return a.Ty
		}
		return t
	case App:
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = Substitute(a, b)
		}
		return App{Ctor: t.Ctor, Args: args}
	case Tuple:
		elems := make([]Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = Substitute(e, b)
		}
		return Tuple{Elems: elems}
	case Closure:
		return Closure{Def: t.Def, Captures: SubstituteArgs(t.Captures, b)}
	default:
		return t
	}
}

// SubstituteConst is Substitute for const arguments.
func SubstituteConst(c Const, b Binding) Const {
	if cp, ok := c.(ConstParam); ok {
		if a, ok := b[ParamKey{cp.Owner, cp.Index}]; ok && a.Ct != nil {
			return a.Ct
		}
	}
	return c
}

// SubstituteArgs applies Substitute across an argument list.
func SubstituteArgs(as Args, b Binding) Args {
	out := make(Args, len(as))
	for i, a := range as {
		if a.Ty != nil {
			out[i] = TypeArg(Substitute(a.Ty, b))
		} else {
			out[i] = ConstArg(SubstituteConst(a.Ct, b))
		}
	}
	return out
}

// FreeInferVars collects the inference variables appearing in t.
func FreeInferVars(t Type) []Var {
	var out []Var
	walkType(t, func(t Type) {
		if v, ok := t.(Var); ok {
			out = append(out, v)
		}
	})
	return out
}

func walkType(t Type, visit func(Type)) {
	if t == nil {
		return
	}
	visit(t)
	switch t := t.(type) {
	case App:
		for _, a := range t.Args {
			walkType(a, visit)
		}
	case Tuple:
		for _, e := range t.Elems {
			walkType(e, visit)
		}
	case Closure:
		for _, a := range t.Captures {
			if a.Ty != nil {
				walkType(a.Ty, visit)
			}
		}
	}
}
