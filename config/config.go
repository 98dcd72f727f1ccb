// Package config loads the layered runtime configuration for amrfleet:
// a YAML/JSON file with optional environment-variable overrides, unmarshaled
// into the enumerated per-package Config types.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/amrfleet/core/dispatch"
	"github.com/kilianp07/amrfleet/core/optimizer"
	"github.com/kilianp07/amrfleet/core/simulator"
	"github.com/kilianp07/amrfleet/infra/mqtt"
)

// Config is the composed runtime configuration for every subsystem.
type Config struct {
	Sim       simulator.Config `json:"sim"`
	Dispatch  dispatch.Config  `json:"dispatch"`
	Optimizer optimizer.Config `json:"optimizer"`
	MQTT      mqtt.Config      `json:"mqtt"`
	DB        DBConfig         `json:"db"`
	HTTP      HTTPConfig       `json:"http"`
	Logging   LoggingConfig    `json:"logging"`
	Run       RunDefaults      `json:"run"`
}

// RunDefaults seeds api/runs.Defaults when a create-run request omits a
// field.
type RunDefaults struct {
	Mode  string `json:"mode"`
	Scale string `json:"scale"`
	Seed  int64  `json:"seed"`
}

// Default returns the enumerated per-package defaults composed together,
// used when no config file is supplied.
func Default() Config {
	return Config{
		Sim:       simulator.DefaultConfig(),
		Dispatch:  dispatch.DefaultConfig(),
		Optimizer: optimizer.DefaultConfig(),
		DB:        DefaultDBConfig(),
		HTTP:      DefaultHTTPConfig(),
		Logging:   DefaultLoggingConfig(),
		Run:       RunDefaults{Mode: "baseline", Scale: "demo", Seed: 1},
	}
}

// Load reads a YAML or JSON config file at path, layering K_-prefixed
// environment variables on top, and unmarshals into a Config seeded with
// Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		applyDefaults(&cfg)
		return &cfg, nil
	}

	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.DB.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Sim.SimTickHz == 0 {
		cfg.Sim = simulator.DefaultConfig()
	}
	if cfg.Optimizer.PopulationSize == 0 {
		cfg.Optimizer = optimizer.DefaultConfig()
	}
	cfg.DB.SetDefaults()
	cfg.HTTP.SetDefaults()
	cfg.Logging.SetDefaults()
	if cfg.Run.Mode == "" {
		cfg.Run.Mode = "baseline"
	}
	if cfg.Run.Scale == "" {
		cfg.Run.Scale = "demo"
	}
}
