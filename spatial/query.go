package spatial

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/simforge/broadphase/components"
	"github.com/simforge/broadphase/geom"
)

// QueryInto appends to dst every entity whose stored world bounds overlap
// bounds, up to max results, and returns the updated slice plus a truncated
// flag. Reuse dst across calls to avoid allocations; callers must treat a
// true flag as an incomplete result, not a complete one.
//
// Hash buckets only narrow the candidate set: unrelated cells can alias to
// the same bucket, and the covering cell range of a box is coarser than the
// box itself, so every candidate is re-tested with an exact AABB overlap
// against its stored world bounds via the colliders map.
//
// exclude is skipped (pass the zero Entity to disable), and candidates with
// SolidNone are filtered even if something put them in a table.
func (g *Grid) QueryInto(dst []ecs.Entity, bounds geom.AABB, exclude ecs.Entity, colliders *ecs.Map1[components.Collider], max int) ([]ecs.Entity, bool) {
	if max <= 0 {
		return dst, false
	}
	g.nextStamp()

	lo, hi := g.cellRange(bounds)
	for cx := lo[0]; cx <= hi[0]; cx++ {
		for cy := lo[1]; cy <= hi[1]; cy++ {
			for cz := lo[2]; cz <= hi[2]; cz++ {
				b := &g.buckets[g.BucketIndex(cx, cy, cz)]

				for i := 0; i < int(b.count); i++ {
					var truncated bool
					dst, truncated = g.visit(dst, b.entries[i], bounds, exclude, colliders, max)
					if truncated {
						return dst, true
					}
				}
				for idx := b.next; idx >= 0; idx = g.nodes[idx].next {
					n := &g.nodes[idx]
					for i := 0; i < int(n.count); i++ {
						var truncated bool
						dst, truncated = g.visit(dst, n.entries[i], bounds, exclude, colliders, max)
						if truncated {
							return dst, true
						}
					}
				}
			}
		}
	}
	return dst, false
}

// visit evaluates one candidate: dedup stamp, exclusion, class filter, and
// the exact overlap test. A large entity reached through several of its
// cells is evaluated exactly once per query.
func (g *Grid) visit(dst []ecs.Entity, e ecs.Entity, bounds geom.AABB, exclude ecs.Entity, colliders *ecs.Map1[components.Collider], max int) ([]ecs.Entity, bool) {
	if e == exclude {
		return dst, false
	}
	id := int(e.ID())
	if id < len(g.seen) && g.seen[id] == g.stamp {
		return dst, false
	}
	g.markSeen(id)

	col := colliders.Get(e)
	if col == nil || col.Solid == components.SolidNone {
		return dst, false
	}
	if !bounds.Intersects(col.WorldBounds()) {
		return dst, false
	}

	dst = append(dst, e)
	return dst, len(dst) >= max
}

// nextStamp advances the query generation. On the (rare) uint32 wrap the
// seen table is zeroed so stale stamps from four billion queries ago cannot
// mask a candidate.
func (g *Grid) nextStamp() {
	g.stamp++
	if g.stamp == 0 {
		for i := range g.seen {
			g.seen[i] = 0
		}
		g.stamp = 1
	}
}

// markSeen stamps an entity ID, growing the table on demand.
func (g *Grid) markSeen(id int) {
	if id >= len(g.seen) {
		grown := make([]uint32, id+1+len(g.seen)/2)
		copy(grown, g.seen)
		g.seen = grown
	}
	g.seen[id] = g.stamp
}
