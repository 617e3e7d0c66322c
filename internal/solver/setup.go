package solver

import (
	"github.com/verith-lang/verith/internal/config"
	"github.com/verith-lang/verith/internal/hir"
)

// FromConfig assembles the solver stack a session configuration asks for:
// local or remote backend, optionally wrapped in the verdict cache. The
// returned closer releases whatever the stack holds open.
func FromConfig(cfg *config.Config, p *hir.Program) (Solver, func() error, error) {
	var (
		s      Solver
		closer = func() error { return nil }
	)

	switch cfg.Solver.Backend {
	case "remote":
		remote, err := NewRemote(cfg.Solver.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		s, closer = remote, remote.Close
	default:
		s = NewLocal(p)
	}

	if cfg.Cache.Enabled {
		cached, err := OpenCache(cfg.Cache.Path, s)
		if err != nil {
			closer()
			return nil, nil, err
		}
		prev := closer
		s = cached
		closer = func() error {
			err := cached.Close()
			if perr := prev(); err == nil {
				err = perr
			}
			return err
		}
	}
	return s, closer, nil
}
