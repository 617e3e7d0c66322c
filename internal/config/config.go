// Package config parses and validates verith.yaml, the per-project session
// configuration. Configuration selects collaborators (which obligation
// solver, where the verdict cache lives); it never changes resolution or
// refinement semantics.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the configuration file looked up in the project root.
const DefaultFileName = "verith.yaml"

// Config is the top-level verith.yaml configuration.
type Config struct {
	// Solver selects the obligation solver backend.
	Solver SolverConfig `yaml:"solver"`

	// Cache controls the discharge verdict cache.
	Cache CacheConfig `yaml:"cache"`
}

// SolverConfig selects and parameterizes the obligation solver.
type SolverConfig struct {
	// Backend is "local" (in-process structural solver) or "remote"
	// (gRPC). Defaults to "local".
	Backend string `yaml:"backend,omitempty"`

	// Endpoint is the gRPC target of the remote solver, e.g.
	// "localhost:7587". Required when Backend is "remote".
	Endpoint string `yaml:"endpoint,omitempty"`
}

// CacheConfig controls the sqlite verdict cache.
type CacheConfig struct {
	// Enabled turns the cache on. Defaults to off.
	Enabled bool `yaml:"enabled,omitempty"`

	// Path is the sqlite database file. Defaults to
	// ".verith/verdicts.db" relative to the project root.
	Path string `yaml:"path,omitempty"`
}

// Load reads and validates a configuration file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Solver.Backend == "" {
		c.Solver.Backend = "local"
	}
	if c.Cache.Path == "" {
		c.Cache.Path = ".verith/verdicts.db"
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	switch c.Solver.Backend {
	case "local":
		if c.Solver.Endpoint != "" {
			return fmt.Errorf("config: solver.endpoint is set but solver.backend is %q", c.Solver.Backend)
		}
	case "remote":
		if c.Solver.Endpoint == "" {
			return fmt.Errorf("config: solver.backend is \"remote\" but solver.endpoint is empty")
		}
	default:
		return fmt.Errorf("config: unknown solver.backend %q (want \"local\" or \"remote\")", c.Solver.Backend)
	}
	return nil
}
