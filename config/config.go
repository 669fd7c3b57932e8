// Package config provides configuration loading and access for the
// broadphase simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	World     WorldConfig     `yaml:"world"`
	Pool      PoolConfig      `yaml:"pool"`
	Grid      GridConfig      `yaml:"grid"`
	Query     QueryConfig     `yaml:"query"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ScreenConfig holds debug viewer display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds the extent of the arena used by the shipped drivers
// when scattering entities. The index itself is unbounded; cell coordinates
// may be negative.
type WorldConfig struct {
	Extent float64 `yaml:"extent"`
}

// PoolConfig holds entity pool limits.
type PoolConfig struct {
	MaxEntities int `yaml:"max_entities"` // CreateEntity fails beyond this; no implicit growth
}

// GridConfig holds spatial hash parameters.
//
// CellSize trades membership breadth against candidate density: too small
// and every entity spans many cells and presses on the overflow arena, too
// large and queries degenerate toward a brute-force scan. The default suits
// entities a few dozen units across.
type GridConfig struct {
	CellSize      float64 `yaml:"cell_size"`
	TableSize     int     `yaml:"table_size"`     // bucket count, rounded up to a power of two
	OverflowNodes int     `yaml:"overflow_nodes"` // arena capacity; inserts drop when exhausted
}

// QueryConfig holds area query limits.
type QueryConfig struct {
	MaxResults int `yaml:"max_results"` // per-query result cap; truncation is reported to callers
}

// PhysicsConfig holds integration parameters.
type PhysicsConfig struct {
	DT float64 `yaml:"dt"` // seconds per tick
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindowTicks    int `yaml:"stats_window_ticks"`
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into the same struct - only overwrites fields present
		// in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return cfg, nil
}

// Default returns a config built from the embedded defaults only. Handy for
// tests that need an isolated world without touching the global.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
