// Package config defines the forecast-engine process configuration.
//
// Configuration layers, lowest precedence first: built-in defaults, an
// optional YAML file named by BASINFLOW_CONFIG, then BASINFLOW_* environment
// variables. Keys are flat snake_case matching the koanf tags.
package config

import (
	"log/slog"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseURL is the Postgres connection string. Empty falls back to
	// the in-memory store.
	DatabaseURL string `koanf:"database_url"`

	// RedisURL enables the read-through evaluation cache when set.
	RedisURL string `koanf:"redis_url"`

	// CacheTTLSeconds bounds how long cached evaluations live in Redis.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// SimChunkSize is the Monte Carlo chunk size; cancellation and
	// progress reporting happen at chunk boundaries.
	SimChunkSize int `koanf:"sim_chunk_size"`

	// SimWorkers bounds parallel simulation goroutines.
	SimWorkers int `koanf:"sim_workers"`

	// ValuationEpsilon is the absolute NPV tolerance for IRR and
	// breakeven root finding, in dollars.
	ValuationEpsilon float64 `koanf:"valuation_epsilon"`

	// ValuationMaxIters caps bisection iterations.
	ValuationMaxIters int `koanf:"valuation_max_iters"`

	// DefaultOilPrice is the price-deck default, $/bbl.
	DefaultOilPrice float64 `koanf:"default_oil_price"`

	// DefaultOpexPerBOE is the lease-operating-expense default, $/boe.
	DefaultOpexPerBOE float64 `koanf:"default_opex_per_boe"`

	// EURBandP10 and EURBandP90 scale the P50 estimate into the
	// probabilistic band. P10 must exceed 1, P90 must sit below 1.
	EURBandP10 float64 `koanf:"eur_band_p10"`
	EURBandP90 float64 `koanf:"eur_band_p90"`

	// MaxCapexPerProspect and MaxCapexPerBasin cap portfolio
	// concentration in dollars. Zero disables the cap.
	MaxCapexPerProspect float64 `koanf:"max_capex_per_prospect"`
	MaxCapexPerBasin    float64 `koanf:"max_capex_per_basin"`
}

// SlogLevel maps LogLevel onto a slog.Level. Unrecognized values fall
// back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":8080",
		CacheTTLSeconds:   30,
		SimChunkSize:      500,
		SimWorkers:        runtime.NumCPU(),
		ValuationEpsilon:  1.0,
		ValuationMaxIters: 100,
		DefaultOilPrice:   75.0,
		DefaultOpexPerBOE: 8.50,
		EURBandP10:        1.35,
		EURBandP90:        0.75,
	}
}
