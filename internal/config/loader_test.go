package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/basinflow/forecast-engine/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Addr)
	}
	if cfg.SimChunkSize != 500 {
		t.Errorf("expected default chunk size 500, got %d", cfg.SimChunkSize)
	}
	if cfg.DefaultOilPrice != 75.0 {
		t.Errorf("expected default oil price 75, got %g", cfg.DefaultOilPrice)
	}
	if cfg.EURBandP10 != 1.35 || cfg.EURBandP90 != 0.75 {
		t.Errorf("unexpected default eur bands: %g / %g", cfg.EURBandP10, cfg.EURBandP90)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BASINFLOW_ADDR", ":9090")
	t.Setenv("BASINFLOW_SIM_CHUNK_SIZE", "250")
	t.Setenv("BASINFLOW_DEFAULT_OIL_PRICE", "82.5")
	t.Setenv("BASINFLOW_DATABASE_URL", "postgres://localhost/basinflow")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %s", cfg.Addr)
	}
	if cfg.SimChunkSize != 250 {
		t.Errorf("expected chunk size 250, got %d", cfg.SimChunkSize)
	}
	if cfg.DefaultOilPrice != 82.5 {
		t.Errorf("expected oil price 82.5, got %g", cfg.DefaultOilPrice)
	}
	if cfg.DatabaseURL != "postgres://localhost/basinflow" {
		t.Errorf("unexpected database url: %s", cfg.DatabaseURL)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "basinflow.yaml")
	yaml := strings.Join([]string{
		"addr: \":7070\"",
		"sim_workers: 12",
		"eur_band_p10: 1.4",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("BASINFLOW_CONFIG", path)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Addr != ":7070" {
		t.Errorf("expected addr :7070, got %s", cfg.Addr)
	}
	if cfg.SimWorkers != 12 {
		t.Errorf("expected 12 workers, got %d", cfg.SimWorkers)
	}
	if cfg.EURBandP10 != 1.4 {
		t.Errorf("expected eur_band_p10 1.4, got %g", cfg.EURBandP10)
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "basinflow.yaml")
	if err := os.WriteFile(path, []byte("addr: \":7070\"\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("BASINFLOW_CONFIG", path)
	t.Setenv("BASINFLOW_ADDR", ":6060")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Addr != ":6060" {
		t.Errorf("env should override file: got %s", cfg.Addr)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := config.New()
		cfg.LogLevel = tt.level
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestLoad_LogLevelFromEnv(t *testing.T) {
	t.Setenv("BASINFLOW_LOG_LEVEL", "debug")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.SlogLevel())
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero chunk size", "BASINFLOW_SIM_CHUNK_SIZE", "0"},
		{"negative workers", "BASINFLOW_SIM_WORKERS", "-1"},
		{"p10 band below 1", "BASINFLOW_EUR_BAND_P10", "0.9"},
		{"p90 band above 1", "BASINFLOW_EUR_BAND_P90", "1.2"},
		{"zero epsilon", "BASINFLOW_VALUATION_EPSILON", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := config.Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
