package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaults verifies the embedded defaults parse and carry sane values.
func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Pool.MaxEntities <= 0 {
		t.Errorf("Pool.MaxEntities = %d, want > 0", cfg.Pool.MaxEntities)
	}
	if cfg.Grid.CellSize <= 0 {
		t.Errorf("Grid.CellSize = %v, want > 0", cfg.Grid.CellSize)
	}
	if cfg.Grid.TableSize <= 0 {
		t.Errorf("Grid.TableSize = %d, want > 0", cfg.Grid.TableSize)
	}
	if cfg.Grid.OverflowNodes <= 0 {
		t.Errorf("Grid.OverflowNodes = %d, want > 0", cfg.Grid.OverflowNodes)
	}
	if cfg.Query.MaxResults <= 0 {
		t.Errorf("Query.MaxResults = %d, want > 0", cfg.Query.MaxResults)
	}
	if cfg.Physics.DT <= 0 {
		t.Errorf("Physics.DT = %v, want > 0", cfg.Physics.DT)
	}
	if cfg.Telemetry.StatsWindowTicks <= 0 {
		t.Errorf("Telemetry.StatsWindowTicks = %d, want > 0", cfg.Telemetry.StatsWindowTicks)
	}
}

// TestLoadMergesWithDefaults verifies a partial file overrides only the
// fields it names.
func TestLoadMergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := []byte("grid:\n  cell_size: 32\npool:\n  max_entities: 100\n")
	if err := os.WriteFile(path, partial, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Grid.CellSize != 32 {
		t.Errorf("Grid.CellSize = %v, want 32", cfg.Grid.CellSize)
	}
	if cfg.Pool.MaxEntities != 100 {
		t.Errorf("Pool.MaxEntities = %d, want 100", cfg.Pool.MaxEntities)
	}

	defaults := Default()
	if cfg.Grid.TableSize != defaults.Grid.TableSize {
		t.Errorf("Grid.TableSize = %d, want default %d", cfg.Grid.TableSize, defaults.Grid.TableSize)
	}
	if cfg.Query.MaxResults != defaults.Query.MaxResults {
		t.Errorf("Query.MaxResults = %d, want default %d", cfg.Query.MaxResults, defaults.Query.MaxResults)
	}
}

// TestLoadMissingFile verifies a bad path is an error, not a silent
// fallback.
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// TestWriteYAMLRoundTrip verifies a written config loads back identically.
func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Grid.CellSize = 48
	cfg.World.Extent = 2000

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *cfg {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, cfg)
	}
}
