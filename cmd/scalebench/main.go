// Command scalebench measures how step time grows with entity count at
// fixed spatial density. A healthy broadphase roughly doubles step time
// when the population doubles; quadratic growth means the hash has
// degenerated into a brute-force scan.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/simforge/broadphase/components"
	"github.com/simforge/broadphase/config"
	"github.com/simforge/broadphase/geom"
	"github.com/simforge/broadphase/sim"
)

func main() {
	baseEntities := flag.Int("base", 250, "Entity count of the smallest run")
	doublings := flag.Int("doublings", 4, "Number of times to double the population")
	ticks := flag.Int("ticks", 300, "Ticks to run per population size")
	warmup := flag.Int("warmup", 60, "Ticks to run before measuring")
	seed := flag.Int64("seed", 42, "RNG seed")
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")

	flag.Parse()

	base, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-10s %-12s %-12s %-12s %-10s\n", "entities", "mean_us", "p99_us", "max_us", "growth")

	var prevMean float64
	n := *baseEntities
	for d := 0; d <= *doublings; d++ {
		mean, p99, max := measure(base, n, *ticks, *warmup, *seed)

		growth := "-"
		if prevMean > 0 {
			growth = fmt.Sprintf("%.2fx", mean/prevMean)
		}
		fmt.Printf("%-10d %-12.1f %-12.1f %-12.1f %-10s\n", n, mean, p99, max, growth)

		prevMean = mean
		n *= 2
	}
}

// measure runs one population size and returns step time stats in
// microseconds. The arena and bucket table scale with the population so
// spatial density stays constant across runs.
func measure(base *config.Config, entities, ticks, warmup int, seed int64) (mean, p99, max float64) {
	cfg := *base
	cfg.Pool.MaxEntities = entities
	cfg.World.Extent = base.World.Extent * math.Sqrt(float64(entities)/float64(250))
	cfg.Grid.TableSize = ceilPow2(entities * 4)
	cfg.Grid.OverflowNodes = entities

	w := sim.NewWorld(&cfg)
	rng := rand.New(rand.NewSource(seed))
	scatter(w, &cfg, rng, entities)

	for i := 0; i < warmup; i++ {
		w.RunStep(cfg.Physics.DT)
	}

	samples := make([]float64, 0, ticks)
	for i := 0; i < ticks; i++ {
		start := time.Now()
		w.RunStep(cfg.Physics.DT)
		samples = append(samples, float64(time.Since(start).Nanoseconds())/1e3)
	}

	sort.Float64s(samples)
	return stat.Mean(samples, nil),
		stat.Quantile(0.99, stat.Empirical, samples, nil),
		samples[len(samples)-1]
}

// scatter fills the world with moving blocking boxes.
func scatter(w *sim.World, cfg *config.Config, rng *rand.Rand, entities int) {
	half := cfg.Grid.CellSize / 4

	for i := 0; i < entities; i++ {
		e, err := w.CreateEntity()
		if err != nil {
			fmt.Fprintf(os.Stderr, "creating entity: %v\n", err)
			os.Exit(1)
		}
		w.SetSolid(e, components.SolidBlocking)
		w.SetBounds(e,
			geom.Vec3{X: -half, Y: -half, Z: -half},
			geom.Vec3{X: half, Y: half, Z: half},
		)
		w.SetOrigin(e, geom.Vec3{
			X: (rng.Float64() - 0.5) * cfg.World.Extent,
			Y: 0,
			Z: (rng.Float64() - 0.5) * cfg.World.Extent,
		})
		w.SetVelocity(e, geom.Vec3{
			X: (rng.Float64() - 0.5) * 80,
			Z: (rng.Float64() - 0.5) * 80,
		})
		w.Link(e)
	}
}

// ceilPow2 rounds n up to the next power of two.
func ceilPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
