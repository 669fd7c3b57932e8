// Package telemetry collects counters and timings from the simulation and
// turns them into windowed statistics for logs and CSV export.
package telemetry

// Gauges carries point-in-time values sampled at window close, as opposed
// to the event counters accumulated across the window.
type Gauges struct {
	LiveEntities   int
	SolidMembers   int
	TriggerMembers int
	DroppedInserts uint64 // cumulative across both grids
}

// Collector accumulates per-step events within tick windows and produces
// WindowStats.
type Collector struct {
	windowTicks int
	startTick   int

	moves            int
	collisions       int
	rollbacks        int
	touches          int
	queries          int
	truncatedQueries int
	created          int
	destroyed        int

	stepSeconds []float64

	lastDropped uint64
}

// NewCollector creates a collector that closes a window every windowTicks
// simulation ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowTicks: windowTicks,
		stepSeconds: make([]float64, 0, windowTicks),
	}
}

// RecordMove records one entity integration (a non-stationary entity).
func (c *Collector) RecordMove() { c.moves++ }

// RecordCollision records a blocking overlap found by the collision test.
func (c *Collector) RecordCollision() { c.collisions++ }

// RecordRollback records a move reverted by the stop-and-zero policy.
func (c *Collector) RecordRollback() { c.rollbacks++ }

// RecordTouch records one trigger overlap callback.
func (c *Collector) RecordTouch() { c.touches++ }

// RecordQuery records an area query; truncated marks results cut off at the
// caller's limit.
func (c *Collector) RecordQuery(truncated bool) {
	c.queries++
	if truncated {
		c.truncatedQueries++
	}
}

// RecordCreate records an entity creation.
func (c *Collector) RecordCreate() { c.created++ }

// RecordDestroy records an entity destruction.
func (c *Collector) RecordDestroy() { c.destroyed++ }

// RecordStep records the wall-clock duration of one RunStep in seconds.
func (c *Collector) RecordStep(seconds float64) {
	c.stepSeconds = append(c.stepSeconds, seconds)
}

// WindowReady reports whether the current window spans windowTicks ticks.
func (c *Collector) WindowReady(tick int) bool {
	return tick-c.startTick >= c.windowTicks
}

// Flush closes the current window, returning its stats and resetting all
// counters. Dropped inserts are reported as the delta against the previous
// window so a saturated region shows up in the window it degraded in.
func (c *Collector) Flush(tick int, g Gauges) WindowStats {
	stats := WindowStats{
		WindowStartTick:  c.startTick,
		WindowEndTick:    tick,
		LiveEntities:     g.LiveEntities,
		SolidMembers:     g.SolidMembers,
		TriggerMembers:   g.TriggerMembers,
		Moves:            c.moves,
		Collisions:       c.collisions,
		Rollbacks:        c.rollbacks,
		Touches:          c.touches,
		Queries:          c.queries,
		TruncatedQueries: c.truncatedQueries,
		Created:          c.created,
		Destroyed:        c.destroyed,
		DroppedInserts:   g.DroppedInserts - c.lastDropped,
	}
	stats.fillStepStats(c.stepSeconds)

	c.lastDropped = g.DroppedInserts
	c.startTick = tick
	c.moves, c.collisions, c.rollbacks, c.touches = 0, 0, 0, 0
	c.queries, c.truncatedQueries, c.created, c.destroyed = 0, 0, 0, 0
	c.stepSeconds = c.stepSeconds[:0]

	return stats
}
