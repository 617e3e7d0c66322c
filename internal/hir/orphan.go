package hir

import "github.com/verith-lang/verith/internal/typesystem"

// OrphanCheckRemote decides whether a package the analyzer cannot see would
// be permitted by the coherence rules to supply an implementation
// overlapping ref. The reference is expected to have its free parameters
// already instantiated with inference variables.
//
// Arguments are scanned in order; per argument, the head of the type
// decides: an inference variable can be filled by a remote-owned type, so
// permission is granted; a locally declared constructor pins the argument
// to this package, so permission is denied and all visible implementations
// are the complete set. Arguments under an external constructor are
// covered and grant nothing. A reference with neither an uncovered
// variable nor a local head consists of already-visible packages only.
func OrphanCheckRemote(p *Program, ictx *typesystem.InferCtx, ref Ref) bool {
	for _, a := range ref.Args {
		if a.Ty == nil {
			continue
		}
		switch verdict := headVerdict(p, ictx.Resolve(a.Ty)); verdict {
		case headUncovered:
			return true
		case headLocal:
			return false
		}
	}
	return false
}

type orphanVerdict int

const (
	headCovered orphanVerdict = iota
	headUncovered
	headLocal
)

func headVerdict(p *Program, t typesystem.Type) orphanVerdict {
	switch t := t.(type) {
	case typesystem.Var, typesystem.Param:
		return headUncovered
	case typesystem.Con:
		if t.Pkg == p.LocalPkg {
			return headLocal
		}
		return headCovered
	case typesystem.App:
		if t.Ctor.Pkg == p.LocalPkg {
			return headLocal
		}
		return headCovered
	case typesystem.Tuple:
		// Tuples are structural: the first decisive element decides.
		for _, e := range t.Elems {
			if v := headVerdict(p, e); v != headCovered {
				return v
			}
		}
		return headCovered
	case typesystem.Closure:
		// Closures are always local to the package that wrote them.
		return headLocal
	default:
		return headCovered
	}
}
