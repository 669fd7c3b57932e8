package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/simforge/broadphase/components"
	"github.com/simforge/broadphase/geom"
)

// TestStepStationary verifies zero-velocity entities are untouched by a
// step, including their index membership.
func TestStepStationary(t *testing.T) {
	w := NewWorld(testConfig())

	e := spawnBox(t, w, geom.Vec3{X: 50}, 16, components.SolidBlocking)
	before := w.Solids().Occurrences(e)

	w.RunStep(1.0 / 60)

	origin, err := w.Origin(e)
	if err != nil {
		t.Fatalf("Origin: %v", err)
	}
	if origin != (geom.Vec3{X: 50}) {
		t.Errorf("origin moved to %+v", origin)
	}
	if got := w.Solids().Occurrences(e); got != before {
		t.Errorf("membership changed for a stationary entity: %d -> %d", before, got)
	}
	if w.Tick() != 1 {
		t.Errorf("Tick = %d, want 1", w.Tick())
	}
}

// TestStepIntegration verifies free movement advances the origin by
// velocity times dt and keeps the index current.
func TestStepIntegration(t *testing.T) {
	w := NewWorld(testConfig())

	e := spawnBox(t, w, geom.Vec3{}, 16, components.SolidBlocking)
	if err := w.SetVelocity(e, geom.Vec3{X: 60, Z: -30}); err != nil {
		t.Fatalf("SetVelocity: %v", err)
	}

	dt := 1.0 / 60
	w.RunStep(dt)

	origin, _ := w.Origin(e)
	if math.Abs(origin.X-1) > 1e-9 || math.Abs(origin.Z+0.5) > 1e-9 {
		t.Errorf("origin = %+v, want {1 0 -0.5}", origin)
	}

	// Many steps later the entity must still be found where it actually is
	for i := 0; i < 120; i++ {
		w.RunStep(dt)
	}
	origin, _ = w.Origin(e)

	got, _ := w.QueryArea(
		origin.Add(geom.Vec3{X: -1, Y: -1, Z: -1}),
		origin.Add(geom.Vec3{X: 1, Y: 1, Z: 1}),
		components.SolidBlocking, 64,
	)
	if !hasEntity(got, e) {
		t.Errorf("moving entity not found at its current origin %+v", origin)
	}
}

// TestStepCollisionRollback verifies a mover whose new bounds overlap a
// blocking entity is restored to its prior position with velocity zeroed.
func TestStepCollisionRollback(t *testing.T) {
	w := NewWorld(testConfig())

	wall := spawnBox(t, w, geom.Vec3{X: 40}, 16, components.SolidBlocking)
	mover := spawnBox(t, w, geom.Vec3{}, 16, components.SolidBlocking)

	// One second at 10 units/s lands the mover overlapping the wall
	if err := w.SetVelocity(mover, geom.Vec3{X: 10}); err != nil {
		t.Fatalf("SetVelocity: %v", err)
	}
	w.RunStep(1.0)

	origin, _ := w.Origin(mover)
	if origin != (geom.Vec3{}) {
		t.Errorf("mover origin = %+v, want rollback to zero", origin)
	}
	vel, _ := w.Velocity(mover)
	if !vel.IsZero() {
		t.Errorf("mover velocity = %+v, want zero after rollback", vel)
	}

	// Membership must match the rolled-back bounds
	want := w.Solids().ExpectedBuckets(mustBounds(t, w, mover))
	if got := w.Solids().Occurrences(mover); got != want {
		t.Errorf("Occurrences after rollback = %d, want %d", got, want)
	}

	// The wall never moved
	wallOrigin, _ := w.Origin(wall)
	if wallOrigin != (geom.Vec3{X: 40}) {
		t.Errorf("wall origin = %+v", wallOrigin)
	}

	// Stopped is stopped: further steps do nothing
	w.RunStep(1.0)
	origin, _ = w.Origin(mover)
	if origin != (geom.Vec3{}) {
		t.Errorf("mover drifted to %+v after being stopped", origin)
	}
}

// TestStepPoolOrder verifies entities are processed in creation order: an
// earlier entity that vacates a spot no longer blocks a later one moving
// into it within the same step.
func TestStepPoolOrder(t *testing.T) {
	w := NewWorld(testConfig())

	// first is created before second, so it moves first
	first := spawnBox(t, w, geom.Vec3{}, 5, components.SolidBlocking)
	second := spawnBox(t, w, geom.Vec3{X: 30}, 5, components.SolidBlocking)

	if err := w.SetVelocity(first, geom.Vec3{X: -200}); err != nil {
		t.Fatalf("SetVelocity: %v", err)
	}
	if err := w.SetVelocity(second, geom.Vec3{X: -30}); err != nil {
		t.Fatalf("SetVelocity: %v", err)
	}

	w.RunStep(1.0)

	firstOrigin, _ := w.Origin(first)
	if firstOrigin != (geom.Vec3{X: -200}) {
		t.Fatalf("first origin = %+v", firstOrigin)
	}

	// second lands on first's old spot, which is empty by the time it moves
	secondOrigin, _ := w.Origin(second)
	if secondOrigin != (geom.Vec3{}) {
		t.Errorf("second origin = %+v, want to occupy the vacated spot", secondOrigin)
	}
	vel, _ := w.Velocity(second)
	if vel.IsZero() {
		t.Error("second was stopped although its destination was vacated")
	}
}

// TestStepTriggerTouch verifies trigger overlap reporting: once per
// overlapping pair per step, never affecting motion.
func TestStepTriggerTouch(t *testing.T) {
	w := NewWorld(testConfig())

	trig := spawnBox(t, w, geom.Vec3{X: 40}, 30, components.SolidTrigger)
	mover := spawnBox(t, w, geom.Vec3{}, 5, components.SolidBlocking)
	if err := w.SetVelocity(mover, geom.Vec3{X: 20}); err != nil {
		t.Fatalf("SetVelocity: %v", err)
	}

	type pair struct{ a, b ecs.Entity }
	touches := make(map[pair]int)
	w.SetTouchFunc(func(a, b ecs.Entity) {
		touches[pair{a, b}]++
	})

	// Step 1: mover at 20, bounds [15,25] vs trigger [10,70] on x: overlap
	w.RunStep(1.0)

	if got := touches[pair{mover, trig}]; got != 1 {
		t.Fatalf("touches after step 1 = %d, want 1", got)
	}

	// The trigger never blocks: mover keeps moving through it
	vel, _ := w.Velocity(mover)
	if vel.IsZero() {
		t.Fatal("trigger stopped the mover")
	}
	origin, _ := w.Origin(mover)
	if origin != (geom.Vec3{X: 20}) {
		t.Fatalf("mover origin = %+v, want {20 0 0}", origin)
	}

	// Step 2: still overlapping, exactly one more callback
	w.RunStep(1.0)
	if got := touches[pair{mover, trig}]; got != 2 {
		t.Errorf("touches after step 2 = %d, want 2", got)
	}

	// Drive the mover past the trigger and make sure callbacks stop
	for i := 0; i < 5; i++ {
		w.RunStep(1.0)
	}
	origin, _ = w.Origin(mover)
	if origin.X <= 75 {
		t.Fatalf("mover should be past the trigger, at %+v", origin)
	}
	final := touches[pair{mover, trig}]
	w.RunStep(1.0)
	if got := touches[pair{mover, trig}]; got != final {
		t.Errorf("touch reported after separation: %d -> %d", final, got)
	}
}

// TestStepTriggerPairsNotDuplicated verifies a blocking entity spanning
// many cells of a trigger still reports the pair once per step.
func TestStepTriggerPairsNotDuplicated(t *testing.T) {
	w := NewWorld(testConfig())

	// Both span several cells of the 64-unit grid
	trig := spawnBox(t, w, geom.Vec3{}, 150, components.SolidTrigger)
	body := spawnBox(t, w, geom.Vec3{X: 10}, 150, components.SolidBlocking)

	count := 0
	w.SetTouchFunc(func(a, b ecs.Entity) {
		if a != body || b != trig {
			t.Errorf("unexpected pair (%v, %v)", a, b)
		}
		count++
	})

	w.RunStep(1.0 / 60)

	if count != 1 {
		t.Errorf("touch callbacks = %d, want 1", count)
	}
}

// TestStepSolidNonePassThrough verifies unclassified movers integrate
// freely through blocking entities.
func TestStepSolidNonePassThrough(t *testing.T) {
	w := NewWorld(testConfig())

	spawnBox(t, w, geom.Vec3{X: 40}, 16, components.SolidBlocking)

	ghost := spawnBox(t, w, geom.Vec3{}, 16, components.SolidNone)
	if err := w.SetVelocity(ghost, geom.Vec3{X: 40}); err != nil {
		t.Fatalf("SetVelocity: %v", err)
	}

	w.RunStep(1.0)
	w.RunStep(1.0)

	origin, _ := w.Origin(ghost)
	if origin != (geom.Vec3{X: 80}) {
		t.Errorf("ghost origin = %+v, want {80 0 0}", origin)
	}
	vel, _ := w.Velocity(ghost)
	if vel.IsZero() {
		t.Error("ghost was stopped by a blocking entity")
	}
}

// TestStepUnlinkedMoverSkipsIndex verifies an unlinked mover integrates
// but never touches the tables.
func TestStepUnlinkedMoverSkipsIndex(t *testing.T) {
	w := NewWorld(testConfig())

	e := spawnBox(t, w, geom.Vec3{}, 16, components.SolidBlocking)
	if err := w.Unlink(e); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if err := w.SetVelocity(e, geom.Vec3{X: 10}); err != nil {
		t.Fatalf("SetVelocity: %v", err)
	}

	w.RunStep(1.0)

	origin, _ := w.Origin(e)
	if origin != (geom.Vec3{X: 10}) {
		t.Errorf("origin = %+v, want {10 0 0}", origin)
	}
	if got := w.Solids().Count(); got != 0 {
		t.Errorf("solid table count = %d, want 0", got)
	}
}

func BenchmarkRunStep(b *testing.B) {
	for _, n := range []int{256, 1024, 4096} {
		b.Run(benchName(n), func(b *testing.B) {
			cfg := testConfig()
			cfg.Pool.MaxEntities = n
			cfg.Grid.TableSize = n * 4
			cfg.Grid.OverflowNodes = n
			extent := 4096 * math.Sqrt(float64(n)/1024)

			w := NewWorld(cfg)
			rng := rand.New(rand.NewSource(1))
			for i := 0; i < n; i++ {
				e, err := w.CreateEntity()
				if err != nil {
					b.Fatal(err)
				}
				w.SetSolid(e, components.SolidBlocking)
				w.SetBounds(e, geom.Vec3{X: -8, Y: -8, Z: -8}, geom.Vec3{X: 8, Y: 8, Z: 8})
				w.SetOrigin(e, geom.Vec3{
					X: (rng.Float64() - 0.5) * extent,
					Z: (rng.Float64() - 0.5) * extent,
				})
				w.SetVelocity(e, geom.Vec3{
					X: (rng.Float64() - 0.5) * 80,
					Z: (rng.Float64() - 0.5) * 80,
				})
				w.Link(e)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				w.RunStep(1.0 / 60)
			}
		})
	}
}

func benchName(n int) string {
	switch n {
	case 256:
		return "n256"
	case 1024:
		return "n1024"
	default:
		return "n4096"
	}
}
