package main

import (
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/simforge/broadphase/components"
	"github.com/simforge/broadphase/config"
	"github.com/simforge/broadphase/geom"
	"github.com/simforge/broadphase/sim"
	"github.com/simforge/broadphase/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call")
	entities := flag.Int("entities", 256, "Number of moving blocking entities to scatter")
	triggers := flag.Int("triggers", 8, "Number of static trigger volumes to scatter")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to snapshot config", "error", err)
	}

	w := sim.NewWorldWithOptions(cfg, sim.Options{
		LogStats: *logStats,
		Output:   output,
	})

	rng := rand.New(rand.NewSource(rngSeed))
	if err := buildScenario(w, cfg, rng, *entities, *triggers); err != nil {
		slog.Error("failed to build scenario", "error", err)
		os.Exit(1)
	}

	if *headless {
		slog.Info("starting headless simulation",
			"seed", rngSeed,
			"entities", *entities,
			"triggers", *triggers,
			"max_ticks", *maxTicks,
			"steps_per_update", *stepsPerUpdate,
		)

		for {
			for i := 0; i < *stepsPerUpdate; i++ {
				w.RunStep(cfg.Physics.DT)
			}
			if *maxTicks > 0 && w.Tick() >= *maxTicks {
				slog.Info("max ticks reached",
					"tick", w.Tick(),
					"dropped_inserts", w.DroppedInserts(),
				)
				return
			}
		}
	}

	runViewer(w, cfg, *maxTicks)
}

// buildScenario scatters moving blocking boxes and static trigger volumes
// across the arena.
func buildScenario(w *sim.World, cfg *config.Config, rng *rand.Rand, entities, triggers int) error {
	extent := cfg.World.Extent
	half := cfg.Grid.CellSize / 4 // entity half-extent, a fraction of a cell

	for i := 0; i < entities; i++ {
		e, err := w.CreateEntity()
		if err != nil {
			return err
		}
		if err := w.SetSolid(e, components.SolidBlocking); err != nil {
			return err
		}
		if err := w.SetBounds(e,
			geom.Vec3{X: -half, Y: -half, Z: -half},
			geom.Vec3{X: half, Y: half, Z: half},
		); err != nil {
			return err
		}
		if err := w.SetOrigin(e, randomPoint(rng, extent)); err != nil {
			return err
		}
		if err := w.SetVelocity(e, geom.Vec3{
			X: (rng.Float64() - 0.5) * 80,
			Z: (rng.Float64() - 0.5) * 80,
		}); err != nil {
			return err
		}
		if err := w.Link(e); err != nil {
			return err
		}
	}

	for i := 0; i < triggers; i++ {
		t, err := w.CreateEntity()
		if err != nil {
			return err
		}
		if err := w.SetSolid(t, components.SolidTrigger); err != nil {
			return err
		}
		side := cfg.Grid.CellSize * 1.5
		if err := w.SetBounds(t,
			geom.Vec3{X: -side, Y: -side, Z: -side},
			geom.Vec3{X: side, Y: side, Z: side},
		); err != nil {
			return err
		}
		if err := w.SetOrigin(t, randomPoint(rng, extent)); err != nil {
			return err
		}
		if err := w.Link(t); err != nil {
			return err
		}
	}

	return nil
}

// randomPoint picks a point in the central half of the arena so scattered
// entities start with room to drift.
func randomPoint(rng *rand.Rand, extent float64) geom.Vec3 {
	return geom.Vec3{
		X: (rng.Float64() - 0.5) * extent / 2,
		Y: 0,
		Z: (rng.Float64() - 0.5) * extent / 2,
	}
}
