// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"evacsim/internal/fire"
	"evacsim/internal/grid"
	"evacsim/internal/job"
	"evacsim/internal/sim"

	"gopkg.in/yaml.v3"
)

// Server configures the HTTP API.
type Server struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	StreamInterval time.Duration `yaml:"stream_interval"`
}

// Jobs configures the job manager and its store.
type Jobs struct {
	MaxConcurrentJobs int           `yaml:"max_concurrent_jobs"`
	Retention         time.Duration `yaml:"retention"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	ProgressEvery     int           `yaml:"progress_every"`
	Store             string        `yaml:"store"`
	SQLitePath        string        `yaml:"sqlite_path"`
}

// Simulation holds the run defaults applied to every request.
type Simulation struct {
	NumAgents      int     `yaml:"num_agents"`
	MaxTicks       int     `yaml:"max_ticks"`
	SpreadProb     float64 `yaml:"p_spread"`
	Neighborhood   int     `yaml:"neighborhood"`
	ObstaclePolicy string  `yaml:"obstacle_policy"`
	Ignition       string  `yaml:"ignition"`
	IgnitionCount  int     `yaml:"ignition_count"`
	Seed           int64   `yaml:"seed"`
}

// Classifier tunes image floor plan classification.
type Classifier struct {
	MaxCells     int     `yaml:"max_cells"`
	ObstacleLuma int     `yaml:"obstacle_luma"`
	ExitSpacing  float64 `yaml:"exit_spacing"`
}

// Greptime points the frame sink at a GreptimeDB instance. An empty
// endpoint disables it.
type Greptime struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
}

// Config is the root service configuration.
type Config struct {
	Server     Server     `yaml:"server"`
	Jobs       Jobs       `yaml:"jobs"`
	Simulation Simulation `yaml:"simulation"`
	Classifier Classifier `yaml:"classifier"`
	Greptime   Greptime   `yaml:"greptime"`
	LogLevel   string     `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			MaxUploadBytes: 10 << 20,
			StreamInterval: 250 * time.Millisecond,
		},
		Jobs: Jobs{
			MaxConcurrentJobs: job.DefaultMaxConcurrentJobs,
			Retention:         job.DefaultRetention,
			SweepInterval:     job.DefaultSweepInterval,
			ProgressEvery:     job.DefaultProgressEvery,
			Store:             "memory",
			SQLitePath:        "evacsim.db",
		},
		Simulation: Simulation{
			NumAgents:      sim.DefaultNumAgents,
			MaxTicks:       sim.DefaultMaxTicks,
			SpreadProb:     fire.DefaultSpreadProbability,
			Neighborhood:   int(grid.VonNeumann),
			ObstaclePolicy: string(fire.Block),
			Ignition:       string(fire.IgniteCenter),
			IgnitionCount:  1,
		},
		Classifier: Classifier{MaxCells: 64, ObstacleLuma: 128, ExitSpacing: 20},
		Greptime:   Greptime{Database: "public"},
		LogLevel:   "info",
	}
}

// Load reads a YAML config, validates it against the embedded CUE schema
// and overlays it on Default. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	return LoadWithSchema(path, "")
}

// LoadWithSchema is Load with an external CUE schema file. An empty
// schemaPath uses the embedded schema.
func LoadWithSchema(path, schemaPath string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var schema []byte
	if schemaPath != "" {
		if schema, err = os.ReadFile(schemaPath); err != nil {
			return nil, fmt.Errorf("read CUE schema: %w", err)
		}
	}
	if err := Validate(path, data, schema); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from EVACSIM_ADDR, GREPTIMEDB_ENDPOINT and
// GREPTIMEDB_DATABASE when they are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("EVACSIM_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		c.Greptime.Endpoint = v
	}
	if v := os.Getenv("GREPTIMEDB_DATABASE"); v != "" {
		c.Greptime.Database = v
	}
}

// SimOptions converts the simulation section.
func (c *Config) SimOptions() (sim.Options, error) {
	s := c.Simulation
	policy, err := fire.ParseObstaclePolicy(s.ObstaclePolicy)
	if err != nil {
		return sim.Options{}, err
	}
	ignition, err := fire.ParseIgnitionMode(s.Ignition)
	if err != nil {
		return sim.Options{}, err
	}
	opts := sim.Options{
		NumAgents:         s.NumAgents,
		MaxTicks:          s.MaxTicks,
		SpreadProbability: s.SpreadProb,
		Neighborhood:      grid.Neighborhood(s.Neighborhood),
		ObstaclePolicy:    policy,
		Ignition:          ignition,
		IgnitionCount:     s.IgnitionCount,
		Seed:              s.Seed,
	}
	if err := opts.Validate(); err != nil {
		return sim.Options{}, fmt.Errorf("simulation config: %w", err)
	}
	return opts, nil
}

// JobOptions converts the jobs section. The sink is left to the caller.
func (c *Config) JobOptions() job.Options {
	return job.Options{
		MaxConcurrentJobs: c.Jobs.MaxConcurrentJobs,
		Retention:         c.Jobs.Retention,
		SweepInterval:     c.Jobs.SweepInterval,
		ProgressEvery:     c.Jobs.ProgressEvery,
	}
}

// NewClassifier builds the image classifier from the classifier section.
func (c *Config) NewClassifier() *grid.ThresholdClassifier {
	cls := grid.NewThresholdClassifier()
	if c.Classifier.MaxCells > 0 {
		cls.MaxCells = c.Classifier.MaxCells
	}
	if c.Classifier.ObstacleLuma > 0 {
		cls.ObstacleLuma = uint8(c.Classifier.ObstacleLuma)
	}
	if c.Classifier.ExitSpacing > 0 {
		cls.ExitSpacing = c.Classifier.ExitSpacing
	}
	return cls
}
