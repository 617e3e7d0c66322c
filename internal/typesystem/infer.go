package typesystem

import "fmt"

// InferCtx is a scope of inference-variable bindings. Fork creates an
// independent trial scope: bindings made in the fork are discarded with it,
// while the fresh-variable counter stays shared so sibling trials never
// reuse ids.
type InferCtx struct {
	counter *int
	tyBind  map[int]Type
	ctBind  map[int]Const
}

// NewInferCtx creates a fresh root context.
func NewInferCtx() *InferCtx {
	n := 0
	return &InferCtx{
		counter: &n,
		tyBind:  make(map[int]Type),
		ctBind:  make(map[int]Const),
	}
}

// Fork copies the current bindings into an independent trial scope.
func (c *InferCtx) Fork() *InferCtx {
	ty := make(map[int]Type, len(c.tyBind))
	for k, v := range c.tyBind {
		ty[k] = v
	}
	ct := make(map[int]Const, len(c.ctBind))
	for k, v := range c.ctBind {
		ct[k] = v
	}
	return &InferCtx{counter: c.counter, tyBind: ty, ctBind: ct}
}

// FreshTypeVar introduces a new unbound type inference variable.
func (c *InferCtx) FreshTypeVar() Type {
	*c.counter++
	return Var{ID: *c.counter}
}

// FreshConstVar introduces a new unbound const inference variable.
func (c *InferCtx) FreshConstVar() Const {
	*c.counter++
	return ConstVar{ID: *c.counter}
}

// Resolve chases variable bindings until a non-variable head (or an unbound
// variable) is reached, resolving recursively through constructors.
func (c *InferCtx) Resolve(t Type) Type {
	switch t := t.(type) {
	case Var:
		if b, ok := c.tyBind[t.ID]; ok {
			return c.Resolve(b)
		}
		return t
	case App:
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = c.Resolve(a)
		}
		return App{Ctor: t.Ctor, Args: args}
	case Tuple:
		elems := make([]Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = c.Resolve(e)
		}
		return Tuple{Elems: elems}
	case Closure:
		return Closure{Def: t.Def, Captures: c.ResolveArgs(t.Captures)}
	default:
		return t
	}
}

// ResolveConst chases const variable bindings.
func (c *InferCtx) ResolveConst(ct Const) Const {
	if v, ok := ct.(ConstVar); ok {
		if b, ok := c.ctBind[v.ID]; ok {
			return c.ResolveConst(b)
		}
	}
	return ct
}

// ResolveArgs resolves every argument in the list.
func (c *InferCtx) ResolveArgs(as Args) Args {
	out := make(Args, len(as))
	for i, a := range as {
		if a.Ty != nil {
			out[i] = TypeArg(c.Resolve(a.Ty))
		} else {
			out[i] = ConstArg(c.ResolveConst(a.Ct))
		}
	}
	return out
}

// Unify makes a and b equal by binding inference variables, or reports why
// it cannot. Params are rigid: a Param unifies only with itself, never with
// a concrete type. Bindings stay in this context on success and on failure,
// so trial unifications belong in a Fork.
func (c *InferCtx) Unify(a, b Type) error {
	a, b = c.Resolve(a), c.Resolve(b)

	if av, ok := a.(Var); ok {
		return c.bind(av, b)
	}
	if bv, ok := b.(Var); ok {
		return c.bind(bv, a)
	}

	switch a := a.(type) {
	case Param:
		if b, ok := b.(Param); ok && a.Owner == b.Owner && a.Index == b.Index {
			return nil
		}
		return errUnify(a, b)
	case Con:
		if b, ok := b.(Con); ok && a.Pkg == b.Pkg && a.Name == b.Name {
			return nil
		}
		return errUnify(a, b)
	case App:
		bApp, ok := b.(App)
		if !ok || a.Ctor != bApp.Ctor {
			return errUnify(a, b)
		}
		if len(a.Args) != len(bApp.Args) {
			return errMismatch(fmt.Sprintf("type arguments length mismatch: %d vs %d", len(a.Args), len(bApp.Args)))
		}
		for i := range a.Args {
			if err := c.Unify(a.Args[i], bApp.Args[i]); err != nil {
				return err
			}
		}
		return nil
	case Tuple:
		bTup, ok := b.(Tuple)
		if !ok {
			return errUnify(a, b)
		}
		if len(a.Elems) != len(bTup.Elems) {
			return errMismatch(fmt.Sprintf("tuple length mismatch: %d vs %d", len(a.Elems), len(bTup.Elems)))
		}
		for i := range a.Elems {
			if err := c.Unify(a.Elems[i], bTup.Elems[i]); err != nil {
				return err
			}
		}
		return nil
	case Closure:
		bCl, ok := b.(Closure)
		if !ok || a.Def != bCl.Def {
			return errUnify(a, b)
		}
		return c.UnifyArgs(a.Captures, bCl.Captures)
	default:
		return errMismatch(fmt.Sprintf("unknown type kind: %T", a))
	}
}

// UnifyConst unifies two const arguments.
func (c *InferCtx) UnifyConst(a, b Const) error {
	a, b = c.ResolveConst(a), c.ResolveConst(b)
	if av, ok := a.(ConstVar); ok {
		if bv, ok := b.(ConstVar); ok && av.ID == bv.ID {
			return nil
		}
		c.ctBind[av.ID] = b
		return nil
	}
	if bv, ok := b.(ConstVar); ok {
		c.ctBind[bv.ID] = a
		return nil
	}
	switch a := a.(type) {
	case ConstParam:
		if b, ok := b.(ConstParam); ok && a.Owner == b.Owner && a.Index == b.Index {
			return nil
		}
	case ConstVal:
		if b, ok := b.(ConstVal); ok && a.Repr == b.Repr {
			return nil
		}
	}
	return errMismatch(fmt.Sprintf("cannot unify const %s with %s", a, b))
}

// UnifyArgs unifies two argument lists position by position.
func (c *InferCtx) UnifyArgs(a, b Args) error {
	if len(a) != len(b) {
		return errMismatch(fmt.Sprintf("argument count mismatch: %d vs %d", len(a), len(b)))
	}
	for i := range a {
		switch {
		case a[i].Ty != nil && b[i].Ty != nil:
			if err := c.Unify(a[i].Ty, b[i].Ty); err != nil {
				return err
			}
		case a[i].Ct != nil && b[i].Ct != nil:
			if err := c.UnifyConst(a[i].Ct, b[i].Ct); err != nil {
				return err
			}
		default:
			return errMismatch(fmt.Sprintf("argument kind mismatch at position %d", i))
		}
	}
	return nil
}

// bind binds a variable, performing the occurs check.
func (c *InferCtx) bind(v Var, t Type) error {
	if tv, ok := t.(Var); ok && tv.ID == v.ID {
		return nil
	}
	if occursCheck(v, t) {
		return errMismatch(fmt.Sprintf("infinite type detected: %s in %s", v, t))
	}
	c.tyBind[v.ID] = t
	return nil
}

func occursCheck(v Var, t Type) bool {
	for _, fv := range FreeInferVars(t) {
		if fv.ID == v.ID {
			return true
		}
	}
	return false
}

// InstantiateFresh replaces every rigid generic parameter in the list with a
// fresh inference variable, reusing one variable per distinct parameter.
func (c *InferCtx) InstantiateFresh(as Args) Args {
	memoTy := make(map[ParamKey]Type)
	memoCt := make(map[ParamKey]Const)
	out := make(Args, len(as))
	for i, a := range as {
		if a.Ty != nil {
			out[i] = TypeArg(c.instFreshType(a.Ty, memoTy, memoCt))
		} else {
			out[i] = ConstArg(c.instFreshConst(a.Ct, memoCt))
		}
	}
	return out
}

func (c *InferCtx) instFreshType(t Type, memoTy map[ParamKey]Type, memoCt map[ParamKey]Const) Type {
	switch t := t.(type) {
	case Param:
		k := ParamKey{t.Owner, t.Index}
		if v, ok := memoTy[k]; ok {
			return v
		}
		v := c.FreshTypeVar()
		memoTy[k] = v
		return v
	case App:
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = c.instFreshType(a, memoTy, memoCt)
		}
		return App{Ctor: t.Ctor, Args: args}
	case Tuple:
		elems := make([]Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = c.instFreshType(e, memoTy, memoCt)
		}
		return Tuple{Elems: elems}
	case Closure:
		caps := make(Args, len(t.Captures))
		for i, a := range t.Captures {
			if a.Ty != nil {
				caps[i] = TypeArg(c.instFreshType(a.Ty, memoTy, memoCt))
			} else {
				caps[i] = ConstArg(c.instFreshConst(a.Ct, memoCt))
			}
		}
		return Closure{Def: t.Def, Captures: caps}
	default:
		return t
	}
}

func (c *InferCtx) instFreshConst(ct Const, memoCt map[ParamKey]Const) Const {
	if cp, ok := ct.(ConstParam); ok {
		k := ParamKey{cp.Owner, cp.Index}
		if v, ok := memoCt[k]; ok {
			return v
		}
		v := c.FreshConstVar()
		memoCt[k] = v
		return v
	}
	return ct
}

func errUnify(a, b Type) error {
	return fmt.Errorf("cannot unify %s with %s", a, b)
}

func errMismatch(msg string) error {
	return fmt.Errorf("type mismatch: %s", msg)
}
