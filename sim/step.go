package sim

import (
	"log/slog"

	"github.com/simforge/broadphase/components"
	"github.com/simforge/broadphase/geom"
	"github.com/simforge/broadphase/telemetry"
)

// RunStep advances every live entity by dt seconds, in pool order.
//
// Per moving entity: integrate the origin, reindex, and test the new bounds
// against the blocking table. On any overlap the move is rolled back and
// velocity zeroed (stop-and-zero is the deliberate, naive policy here; a
// narrow-phase resolver belongs to the embedder). Each entity's reindex is
// visible to the collision tests of entities processed after it in the
// same step.
//
// After movement, every linked blocking entity is checked against the
// trigger table and each overlapping trigger reported once through the
// touch callback. Triggers never affect motion.
func (w *World) RunStep(dt float64) {
	w.perf.StartTick()

	for _, e := range w.roster {
		mot := w.motions.Get(e)
		if mot == nil || mot.Velocity.IsZero() {
			continue
		}
		tr := w.transforms.Get(e)
		col := w.colliders.Get(e)

		w.perf.StartPhase(telemetry.PhaseIntegrate)
		prev := tr.Origin
		tr.Origin = prev.Add(mot.Velocity.Scale(dt))
		w.collector.RecordMove()

		if !col.Linked {
			continue
		}

		w.perf.StartPhase(telemetry.PhaseReindex)
		w.reindex(e, tr.Origin, col)

		// SolidNone movers pass through everything; everything else is
		// stopped by blocking entities.
		if col.Solid == components.SolidNone {
			continue
		}

		w.perf.StartPhase(telemetry.PhaseCollide)
		hits, _ := w.solids.QueryInto(w.collideScratch[:0], col.WorldBounds(), e, w.colliders, 1)
		w.collideScratch = hits[:0]
		w.collector.RecordQuery(false)

		if len(hits) > 0 {
			w.collector.RecordCollision()
			w.collector.RecordRollback()

			tr.Origin = prev
			mot.Velocity = geom.Vec3{}

			w.perf.StartPhase(telemetry.PhaseReindex)
			w.reindex(e, tr.Origin, col)
		}
	}

	w.perf.StartPhase(telemetry.PhaseTriggers)
	w.notifyTriggers()

	w.perf.StartPhase(telemetry.PhaseTelemetry)
	w.tick++
	w.flushWindow()

	dur := w.perf.EndTick()
	w.collector.RecordStep(dur.Seconds())
}

// notifyTriggers reports, for every linked blocking entity, each trigger
// its bounds currently overlap. Pairs are inherently unique because only
// triggers live in the trigger table and only non-triggers probe it, so
// one callback per pair per step falls out of query deduplication.
func (w *World) notifyTriggers() {
	if w.onTouch == nil || w.triggers.Count() == 0 {
		return
	}

	for _, e := range w.roster {
		col := w.colliders.Get(e)
		if col == nil || !col.Linked || !col.Solid.Blocks() {
			continue
		}

		hits, truncated := w.triggers.QueryInto(w.touchScratch[:0], col.WorldBounds(), e, w.colliders, w.cfg.Query.MaxResults)
		w.touchScratch = hits[:0]
		w.collector.RecordQuery(truncated)

		for _, t := range hits {
			w.collector.RecordTouch()
			w.onTouch(e, t)
		}
	}
}

// flushWindow closes the telemetry window when due and emits it to the
// configured sinks.
func (w *World) flushWindow() {
	if !w.collector.WindowReady(w.tick) {
		return
	}

	stats := w.collector.Flush(w.tick, w.Gauges())
	perfStats := w.perf.Stats()

	if w.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}
	if err := w.opts.Output.WriteTelemetry(stats); err != nil {
		slog.Error("telemetry output failed", "error", err)
	}
	if err := w.opts.Output.WritePerf(perfStats, w.tick); err != nil {
		slog.Error("perf output failed", "error", err)
	}
}
