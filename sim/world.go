// Package sim owns the simulation world: the entity pool, both spatial
// hash tables, and the per-tick step driver. Everything is instance state;
// independent worlds never share anything, so tests and embedders can run
// several side by side.
package sim

import (
	"errors"

	"github.com/mlange-42/ark/ecs"

	"github.com/simforge/broadphase/components"
	"github.com/simforge/broadphase/config"
	"github.com/simforge/broadphase/geom"
	"github.com/simforge/broadphase/spatial"
	"github.com/simforge/broadphase/telemetry"
)

var (
	// ErrCapacityExceeded is returned by CreateEntity when the configured
	// pool limit is reached. The pool never grows implicitly.
	ErrCapacityExceeded = errors.New("entity pool capacity exceeded")

	// ErrInvalidHandle is returned for operations on a destroyed or
	// never-created handle.
	ErrInvalidHandle = errors.New("invalid entity handle")
)

// TouchFunc receives trigger overlap events: a is the touching entity, b
// the trigger. It is called once per overlapping pair per step. Callbacks
// must not create or destroy entities; defer such work until RunStep
// returns.
type TouchFunc func(a, b ecs.Entity)

// Options configures world behavior beyond the config file.
type Options struct {
	LogStats bool                     // emit window stats via slog
	Output   *telemetry.OutputManager // CSV output, may be nil
}

// World is one independent simulation instance.
type World struct {
	cfg  *config.Config
	opts Options

	world  *ecs.World
	mapper *ecs.Map3[components.Transform, components.Motion, components.Collider]

	transforms *ecs.Map1[components.Transform]
	motions    *ecs.Map1[components.Motion]
	colliders  *ecs.Map1[components.Collider]

	// Two independent tables: blocking/BSP entities and triggers.
	solids   *spatial.Grid
	triggers *spatial.Grid

	// Live entities in creation order; RunStep processes them in this
	// order, so earlier entities' moves are visible to later ones within
	// the same step.
	roster []ecs.Entity

	onTouch TouchFunc

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector

	tick int

	// Reusable query buffers; never escape the world.
	collideScratch []ecs.Entity
	touchScratch   []ecs.Entity
}

// NewWorld creates a world from cfg. A nil cfg uses the embedded defaults.
func NewWorld(cfg *config.Config) *World {
	return NewWorldWithOptions(cfg, Options{})
}

// NewWorldWithOptions creates a world with telemetry options.
func NewWorldWithOptions(cfg *config.Config, opts Options) *World {
	if cfg == nil {
		cfg = config.Default()
	}

	world := ecs.NewWorld()

	w := &World{
		cfg:    cfg,
		opts:   opts,
		world:  world,
		mapper: ecs.NewMap3[components.Transform, components.Motion, components.Collider](world),

		transforms: ecs.NewMap1[components.Transform](world),
		motions:    ecs.NewMap1[components.Motion](world),
		colliders:  ecs.NewMap1[components.Collider](world),

		solids:   spatial.NewGrid(cfg.Grid.CellSize, cfg.Grid.TableSize, cfg.Grid.OverflowNodes),
		triggers: spatial.NewGrid(cfg.Grid.CellSize, cfg.Grid.TableSize, cfg.Grid.OverflowNodes),

		roster: make([]ecs.Entity, 0, cfg.Pool.MaxEntities),

		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindowTicks),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
	}
	return w
}

// SetTouchFunc installs the trigger overlap callback.
func (w *World) SetTouchFunc(fn TouchFunc) {
	w.onTouch = fn
}

// CreateEntity allocates a new entity: alive, unlinked, zero bounds and
// velocity, SolidNone until classified via SetSolid.
func (w *World) CreateEntity() (ecs.Entity, error) {
	if len(w.roster) >= w.cfg.Pool.MaxEntities {
		return ecs.Entity{}, ErrCapacityExceeded
	}

	tr := components.Transform{}
	mot := components.Motion{}
	col := components.Collider{Solid: components.SolidNone}
	e := w.mapper.NewEntity(&tr, &mot, &col)

	w.roster = append(w.roster, e)
	w.collector.RecordCreate()
	return e, nil
}

// Destroy unlinks the entity from the spatial hash and releases its slot.
// Destroying without unlinking first would leak stale handles into the
// grids, so the unlink is unconditional here.
func (w *World) Destroy(h ecs.Entity) error {
	col, err := w.collider(h)
	if err != nil {
		return err
	}
	w.unlink(h, col)

	for i, e := range w.roster {
		if e == h {
			w.roster = append(w.roster[:i], w.roster[i+1:]...)
			break
		}
	}

	w.world.RemoveEntity(h)
	w.collector.RecordDestroy()
	return nil
}

// Alive reports whether h refers to a live entity.
func (w *World) Alive(h ecs.Entity) bool {
	return w.world.Alive(h)
}

// collider validates the handle and returns its collider.
func (w *World) collider(h ecs.Entity) (*components.Collider, error) {
	if !w.world.Alive(h) {
		return nil, ErrInvalidHandle
	}
	col := w.colliders.Get(h)
	if col == nil {
		return nil, ErrInvalidHandle
	}
	return col, nil
}

// SetBounds sets the entity's bounds relative to its origin. A linked
// entity is atomically reindexed so membership never goes stale.
func (w *World) SetBounds(h ecs.Entity, localMin, localMax geom.Vec3) error {
	col, err := w.collider(h)
	if err != nil {
		return err
	}
	if col.Linked {
		w.unlink(h, col)
		col.LocalMin, col.LocalMax = localMin, localMax
		w.link(h, col)
		return nil
	}
	col.LocalMin, col.LocalMax = localMin, localMax
	return nil
}

// SetOrigin moves the entity, reindexing it if linked.
func (w *World) SetOrigin(h ecs.Entity, origin geom.Vec3) error {
	col, err := w.collider(h)
	if err != nil {
		return err
	}
	w.transforms.Get(h).Origin = origin
	if col.Linked {
		w.reindex(h, origin, col)
	}
	return nil
}

// SetVelocity sets the entity's velocity in world units per second.
func (w *World) SetVelocity(h ecs.Entity, v geom.Vec3) error {
	if !w.world.Alive(h) {
		return ErrInvalidHandle
	}
	w.motions.Get(h).Velocity = v
	return nil
}

// SetSolid reclassifies the entity, moving it between tables if linked.
func (w *World) SetSolid(h ecs.Entity, class components.SolidClass) error {
	col, err := w.collider(h)
	if err != nil {
		return err
	}
	if col.Solid == class {
		return nil
	}
	if col.Linked {
		w.unlink(h, col)
		col.Solid = class
		w.link(h, col)
		return nil
	}
	col.Solid = class
	return nil
}

// Link derives the entity's world bounds from its current origin and
// inserts it into every touched cell of the table matching its class.
// Linking an already linked entity reindexes it.
func (w *World) Link(h ecs.Entity) error {
	col, err := w.collider(h)
	if err != nil {
		return err
	}
	if col.Linked {
		w.unlink(h, col)
	}
	w.link(h, col)
	return nil
}

// Unlink removes the entity from its table. Unlinking an unlinked entity
// is a no-op.
func (w *World) Unlink(h ecs.Entity) error {
	col, err := w.collider(h)
	if err != nil {
		return err
	}
	w.unlink(h, col)
	return nil
}

// gridFor returns the table a class is indexed in. SolidNone entities are
// never indexed at all; the query path filters the class anyway, so the
// two choices are observably equivalent and this one saves cell storage.
func (w *World) gridFor(class components.SolidClass) *spatial.Grid {
	switch {
	case class.Blocks():
		return w.solids
	case class == components.SolidTrigger:
		return w.triggers
	}
	return nil
}

// link recomputes world bounds and inserts. World bounds must never be
// stale at index time; deriving them here, on every link, is what keeps
// the membership invariant tied to the entity's true position.
func (w *World) link(h ecs.Entity, col *components.Collider) {
	col.UpdateWorldBounds(w.transforms.Get(h).Origin)
	if g := w.gridFor(col.Solid); g != nil {
		g.Insert(h, col.WorldBounds())
	}
	col.Linked = true
}

// unlink removes the entity from its table at the stored world bounds.
func (w *World) unlink(h ecs.Entity, col *components.Collider) {
	if !col.Linked {
		return
	}
	if g := w.gridFor(col.Solid); g != nil {
		g.Remove(h, col.WorldBounds())
	}
	col.Linked = false
}

// reindex atomically relocates a linked entity to bounds derived from
// origin: remove at the stored world bounds, recompute, insert.
func (w *World) reindex(h ecs.Entity, origin geom.Vec3, col *components.Collider) {
	g := w.gridFor(col.Solid)
	if g != nil {
		g.Remove(h, col.WorldBounds())
	}
	col.UpdateWorldBounds(origin)
	if g != nil {
		g.Insert(h, col.WorldBounds())
	}
}

// QueryArea returns the entities of the class's table whose world bounds
// overlap [min, max], at most maxResults of them. The second result
// reports truncation; callers must treat a truncated result as incomplete,
// not as the full overlap set.
func (w *World) QueryArea(min, max geom.Vec3, class components.SolidClass, maxResults int) ([]ecs.Entity, bool) {
	g := w.gridFor(class)
	if g == nil || maxResults <= 0 {
		return nil, false
	}

	dst := make([]ecs.Entity, 0, maxResults)
	dst, truncated := g.QueryInto(dst, geom.AABB{Min: min, Max: max}, ecs.Entity{}, w.colliders, maxResults)
	w.collector.RecordQuery(truncated)
	return dst, truncated
}

// Origin returns the entity's position.
func (w *World) Origin(h ecs.Entity) (geom.Vec3, error) {
	if !w.world.Alive(h) {
		return geom.Vec3{}, ErrInvalidHandle
	}
	return w.transforms.Get(h).Origin, nil
}

// Velocity returns the entity's velocity.
func (w *World) Velocity(h ecs.Entity) (geom.Vec3, error) {
	if !w.world.Alive(h) {
		return geom.Vec3{}, ErrInvalidHandle
	}
	return w.motions.Get(h).Velocity, nil
}

// WorldBounds returns the entity's stored absolute bounds. Only current
// while the entity is linked.
func (w *World) WorldBounds(h ecs.Entity) (geom.AABB, error) {
	col, err := w.collider(h)
	if err != nil {
		return geom.AABB{}, err
	}
	return col.WorldBounds(), nil
}

// Solid returns the entity's class.
func (w *World) Solid(h ecs.Entity) (components.SolidClass, error) {
	col, err := w.collider(h)
	if err != nil {
		return components.SolidNone, err
	}
	return col.Solid, nil
}

// Linked reports whether the entity is currently indexed.
func (w *World) Linked(h ecs.Entity) (bool, error) {
	col, err := w.collider(h)
	if err != nil {
		return false, err
	}
	return col.Linked, nil
}

// Entities returns the live entities in creation order. The slice is owned
// by the world; callers must not modify it.
func (w *World) Entities() []ecs.Entity {
	return w.roster
}

// Live returns the number of live entities.
func (w *World) Live() int {
	return len(w.roster)
}

// Tick returns the number of completed steps.
func (w *World) Tick() int {
	return w.tick
}

// DroppedInserts returns the total cell insertions dropped across both
// tables because an overflow arena was exhausted.
func (w *World) DroppedInserts() uint64 {
	return w.solids.DroppedInserts() + w.triggers.DroppedInserts()
}

// Gauges samples current occupancy for telemetry windows.
func (w *World) Gauges() telemetry.Gauges {
	return telemetry.Gauges{
		LiveEntities:   len(w.roster),
		SolidMembers:   w.solids.Count(),
		TriggerMembers: w.triggers.Count(),
		DroppedInserts: w.DroppedInserts(),
	}
}

// Solids exposes the blocking table for validation and tests.
func (w *World) Solids() *spatial.Grid {
	return w.solids
}

// Triggers exposes the trigger table for validation and tests.
func (w *World) Triggers() *spatial.Grid {
	return w.triggers
}
