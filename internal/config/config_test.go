package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"evacsim/internal/fire"
	"evacsim/internal/grid"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeTemp(t, "evacsim.yaml", `
server:
  addr: ":9000"
  allowed_origins: ["http://example.test"]
jobs:
  max_concurrent_jobs: 2
  retention: 30m
simulation:
  num_agents: 12
  p_spread: 0.5
  neighborhood: 8
  obstacle_policy: conduct
  ignition: random
  ignition_count: 3
log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.Addr != ":9000" || len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("unexpected server section: %+v", cfg.Server)
	}
	if cfg.Jobs.MaxConcurrentJobs != 2 || cfg.Jobs.Retention != 30*time.Minute {
		t.Errorf("unexpected jobs section: %+v", cfg.Jobs)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Jobs.SweepInterval != time.Minute || cfg.Simulation.MaxTicks != 500 || cfg.Server.MaxUploadBytes != 10<<20 {
		t.Errorf("defaults lost: %+v %+v", cfg.Jobs, cfg.Simulation)
	}

	opts, err := cfg.SimOptions()
	if err != nil {
		t.Fatalf("SimOptions: %v", err)
	}
	if opts.NumAgents != 12 || opts.SpreadProbability != 0.5 || opts.Neighborhood != grid.Moore ||
		opts.ObstaclePolicy != fire.Conduct || opts.Ignition != fire.IgniteRandom || opts.IgnitionCount != 3 {
		t.Errorf("unexpected sim options: %+v", opts)
	}
	if cfg.JobOptions().MaxConcurrentJobs != 2 {
		t.Errorf("job options not converted")
	}
}

func TestLoadConfig_SchemaViolations(t *testing.T) {
	cases := map[string]string{
		"p_spread above one": "simulation:\n  p_spread: 1.5\n",
		"bad neighborhood":   "simulation:\n  neighborhood: 6\n",
		"unknown policy":     "simulation:\n  obstacle_policy: melt\n",
		"unknown section":    "drones:\n  count: 3\n",
		"bad duration":       "jobs:\n  retention: soon\n",
		"bad log level":      "log_level: chatty\n",
		"bad store":          "jobs:\n  store: redis\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeTemp(t, "c.yaml", body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadWithExternalSchema(t *testing.T) {
	schema := writeTemp(t, "strict.cue", "#Config: {log_level: \"error\"}\n")
	cfgPath := writeTemp(t, "c.yaml", "log_level: info\n")
	if _, err := LoadWithSchema(cfgPath, schema); err == nil {
		t.Fatal("expected external schema to reject log_level")
	}
	if err := ValidateFile(writeTemp(t, "ok.yaml", "log_level: error\n"), schema); err != nil {
		t.Fatalf("ValidateFile: %v", err)
	}
	if err := ValidateFile(cfgPath, writeTemp(t, "empty.cue", "x: 1\n")); err == nil || !strings.Contains(err.Error(), "#Config") {
		t.Fatalf("want missing definition error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EVACSIM_ADDR", ":7777")
	t.Setenv("GREPTIMEDB_ENDPOINT", "greptime:4001")
	t.Setenv("GREPTIMEDB_DATABASE", "evac")
	cfg, err := Load(writeTemp(t, "c.yaml", "server:\n  addr: \":9000\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7777" || cfg.Greptime.Endpoint != "greptime:4001" || cfg.Greptime.Database != "evac" {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Server, cfg.Greptime)
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if _, err := cfg.SimOptions(); err != nil {
		t.Fatalf("default sim options invalid: %v", err)
	}
	cls := cfg.NewClassifier()
	if cls.MaxCells != 64 || cls.ObstacleLuma != 128 {
		t.Errorf("unexpected classifier: %+v", cls)
	}
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load("../../config/evacsim.yaml")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	want := Default()
	if cfg.Server.Addr != want.Server.Addr || cfg.Jobs != want.Jobs || cfg.Simulation != want.Simulation ||
		cfg.Classifier != want.Classifier || cfg.LogLevel != want.LogLevel {
		t.Errorf("shipped config drifted from defaults:\n got %+v\nwant %+v", cfg, want)
	}
}
