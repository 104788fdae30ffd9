package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ADDR", "")
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.SolverDefaults.PopulationSize != 100 || cfg.SolverDefaults.Generations != 100 {
		t.Fatalf("solver defaults: %+v", cfg.SolverDefaults)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "addr: \":9090\"\nrateRps: 20\nsolverDefaults:\n  generations: 250\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("ADDR", ":7070")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("env override lost: addr = %q", cfg.Addr)
	}
	if cfg.RateRPS != 20 {
		t.Fatalf("rateRps = %v", cfg.RateRPS)
	}
	if cfg.SolverDefaults.Generations != 250 {
		t.Fatalf("generations = %d", cfg.SolverDefaults.Generations)
	}
}

func TestLoadBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("addr: [oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
