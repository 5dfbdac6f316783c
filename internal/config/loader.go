package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if BASINFLOW_CONFIG is set
//  3. env (prefix BASINFLOW_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("BASINFLOW_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: BASINFLOW_ADDR, BASINFLOW_SIM_WORKERS, ...
	// Keys map to the flat snake_case koanf tags, underscores preserved.
	envProvider := env.Provider("BASINFLOW_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "basinflow_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.SimChunkSize <= 0 {
		return fmt.Errorf("sim_chunk_size must be positive, got %d", c.SimChunkSize)
	}
	if c.SimWorkers <= 0 {
		return fmt.Errorf("sim_workers must be positive, got %d", c.SimWorkers)
	}
	if c.ValuationEpsilon <= 0 {
		return fmt.Errorf("valuation_epsilon must be positive, got %g", c.ValuationEpsilon)
	}
	if c.EURBandP10 <= 1 {
		return fmt.Errorf("eur_band_p10 must exceed 1, got %g", c.EURBandP10)
	}
	if c.EURBandP90 <= 0 || c.EURBandP90 >= 1 {
		return fmt.Errorf("eur_band_p90 must be in (0,1), got %g", c.EURBandP90)
	}
	return nil
}
