// Package spatial implements the hashed-grid broadphase index: a fixed
// table of buckets addressed by hashed 3D cell coordinates, with a bounded
// overflow arena for dense buckets and a deduplicating area query.
package spatial

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/simforge/broadphase/geom"
)

// inlineCap is the number of handles stored directly in a bucket before
// spilling into the overflow arena. Overflow nodes use the same width.
const inlineCap = 4

// Hash multipliers, one large odd constant per axis. Mixing with distinct
// multipliers and XOR keeps axis-aligned entity layouts from clustering
// into a few buckets the way a coordinate sum would.
const (
	hashMulX = 1640531513
	hashMulY = 2654435789
	hashMulZ = 2097152557
)

// bucket is one slot of the hash table: a small inline handle list plus an
// optional overflow chain.
type bucket struct {
	entries [inlineCap]ecs.Entity
	count   uint8
	next    int32 // head of the overflow chain, -1 when empty
}

// overflowNode extends a bucket when its inline list is full. Nodes live in
// a shared arena and chain through int32 indices, never pointers.
type overflowNode struct {
	entries [inlineCap]ecs.Entity
	count   uint8
	next    int32
}

// Grid is one spatial hash table. A world owns two: one for blocking
// entities and one for triggers. A Grid is not safe for concurrent use.
type Grid struct {
	cellSize    float64
	invCellSize float64
	mask        uint32

	buckets []bucket
	nodes   []overflowNode
	free    int32 // free list of overflow nodes

	members int    // live membership entries across all buckets
	dropped uint64 // inserts dropped because the overflow arena was full

	// Query deduplication: a generation stamp per entity ID, bumped once
	// per query. O(1) per candidate instead of re-scanning the result list.
	stamp uint32
	seen  []uint32
}

// NewGrid creates a grid with the given cell edge length, bucket table size
// (rounded up to a power of two), and overflow arena capacity.
func NewGrid(cellSize float64, tableSize, overflowNodes int) *Grid {
	if cellSize <= 0 {
		cellSize = 64
	}
	if tableSize < 2 {
		tableSize = 2
	}
	tableSize = ceilPow2(tableSize)
	if overflowNodes < 0 {
		overflowNodes = 0
	}

	g := &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		mask:        uint32(tableSize - 1),
		buckets:     make([]bucket, tableSize),
		nodes:       make([]overflowNode, overflowNodes),
	}
	g.resetStorage()
	return g
}

// resetStorage clears every bucket and rebuilds the overflow free list.
func (g *Grid) resetStorage() {
	for i := range g.buckets {
		g.buckets[i] = bucket{next: -1}
	}
	g.free = -1
	for i := len(g.nodes) - 1; i >= 0; i-- {
		g.nodes[i] = overflowNode{next: g.free}
		g.free = int32(i)
	}
	g.members = 0
}

// ceilPow2 rounds n up to the next power of two.
func ceilPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// CellSize returns the cell edge length.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// Count returns the number of membership entries currently stored. An
// entity spanning k cells contributes up to k entries.
func (g *Grid) Count() int {
	return g.members
}

// DroppedInserts returns how many cell insertions have been dropped because
// the overflow arena was exhausted. Queries over the affected buckets may
// under-report until the region thins out; the counter makes the
// degradation observable.
func (g *Grid) DroppedInserts() uint64 {
	return g.dropped
}

// Clear removes all entities from the grid and resets the overflow arena.
// The dropped-insert counter is preserved.
func (g *Grid) Clear() {
	g.resetStorage()
}

// CellCoord maps a world-space scalar to its cell coordinate.
func (g *Grid) CellCoord(v float64) int32 {
	return int32(math.Floor(v * g.invCellSize))
}

// BucketIndex returns the table slot for a cell coordinate triple.
func (g *Grid) BucketIndex(cx, cy, cz int32) uint32 {
	return (uint32(cx)*hashMulX ^ uint32(cy)*hashMulY ^ uint32(cz)*hashMulZ) & g.mask
}

// cellRange returns the inclusive cell coordinate range covering bounds.
func (g *Grid) cellRange(bounds geom.AABB) (lo, hi [3]int32) {
	lo[0], hi[0] = g.CellCoord(bounds.Min.X), g.CellCoord(bounds.Max.X)
	lo[1], hi[1] = g.CellCoord(bounds.Min.Y), g.CellCoord(bounds.Max.Y)
	lo[2], hi[2] = g.CellCoord(bounds.Min.Z), g.CellCoord(bounds.Max.Z)
	return lo, hi
}

// Insert adds e to every bucket whose cell range intersects bounds. An
// entity wider than a cell lands in several buckets; that is expected and
// required for queries to find it from any touched cell. Insertion into a
// bucket that already holds e is skipped, so accidental double-inserts and
// cell aliasing cannot inflate a bucket.
func (g *Grid) Insert(e ecs.Entity, bounds geom.AABB) {
	lo, hi := g.cellRange(bounds)
	for cx := lo[0]; cx <= hi[0]; cx++ {
		for cy := lo[1]; cy <= hi[1]; cy++ {
			for cz := lo[2]; cz <= hi[2]; cz++ {
				g.insertBucket(&g.buckets[g.BucketIndex(cx, cy, cz)], e)
			}
		}
	}
}

// insertBucket appends e to b, spilling to the overflow arena when the
// inline list is full. When the arena is exhausted the insert is dropped
// and counted rather than growing without bound.
func (g *Grid) insertBucket(b *bucket, e ecs.Entity) {
	if g.bucketContains(b, e) {
		return
	}

	if b.count < inlineCap {
		b.entries[b.count] = e
		b.count++
		g.members++
		return
	}

	for idx := b.next; idx >= 0; idx = g.nodes[idx].next {
		n := &g.nodes[idx]
		if n.count < inlineCap {
			n.entries[n.count] = e
			n.count++
			g.members++
			return
		}
	}

	idx := g.free
	if idx < 0 {
		g.dropped++
		return
	}
	n := &g.nodes[idx]
	g.free = n.next

	n.entries[0] = e
	n.count = 1
	n.next = b.next
	b.next = idx
	g.members++
}

// bucketContains reports whether e is already stored in b, inline or in the
// overflow chain.
func (g *Grid) bucketContains(b *bucket, e ecs.Entity) bool {
	for i := 0; i < int(b.count); i++ {
		if b.entries[i] == e {
			return true
		}
	}
	for idx := b.next; idx >= 0; idx = g.nodes[idx].next {
		n := &g.nodes[idx]
		for i := 0; i < int(n.count); i++ {
			if n.entries[i] == e {
				return true
			}
		}
	}
	return false
}

// Remove deletes e from every bucket covering bounds. The bounds must be
// the ones the entity was inserted with; a mismatched range leaves stale
// membership behind, which breaks the completeness invariant.
func (g *Grid) Remove(e ecs.Entity, bounds geom.AABB) {
	lo, hi := g.cellRange(bounds)
	for cx := lo[0]; cx <= hi[0]; cx++ {
		for cy := lo[1]; cy <= hi[1]; cy++ {
			for cz := lo[2]; cz <= hi[2]; cz++ {
				g.removeBucket(&g.buckets[g.BucketIndex(cx, cy, cz)], e)
			}
		}
	}
}

// removeBucket removes one occurrence of e from b, searching the inline
// list and the full overflow chain. Overflow nodes left empty return to the
// free list. Removing a handle that is not present is a no-op: aliased
// cells insert once but are visited once per cell on removal.
func (g *Grid) removeBucket(b *bucket, e ecs.Entity) {
	for i := 0; i < int(b.count); i++ {
		if b.entries[i] == e {
			b.count--
			b.entries[i] = b.entries[b.count]
			b.entries[b.count] = ecs.Entity{}
			g.members--
			return
		}
	}

	prev := int32(-1)
	for idx := b.next; idx >= 0; {
		n := &g.nodes[idx]
		for i := 0; i < int(n.count); i++ {
			if n.entries[i] == e {
				n.count--
				n.entries[i] = n.entries[n.count]
				n.entries[n.count] = ecs.Entity{}
				g.members--
				if n.count == 0 {
					if prev < 0 {
						b.next = n.next
					} else {
						g.nodes[prev].next = n.next
					}
					n.next = g.free
					g.free = idx
				}
				return
			}
		}
		prev = idx
		idx = n.next
	}
}

// Occurrences counts how many buckets currently hold e, scanning the whole
// table including overflow chains. Intended for validation and tests.
func (g *Grid) Occurrences(e ecs.Entity) int {
	total := 0
	for bi := range g.buckets {
		b := &g.buckets[bi]
		for i := 0; i < int(b.count); i++ {
			if b.entries[i] == e {
				total++
			}
		}
		for idx := b.next; idx >= 0; idx = g.nodes[idx].next {
			n := &g.nodes[idx]
			for i := 0; i < int(n.count); i++ {
				if n.entries[i] == e {
					total++
				}
			}
		}
	}
	return total
}

// ExpectedBuckets returns the number of distinct buckets the cell range of
// bounds maps to. Together with Occurrences this expresses the membership
// completeness property: a linked entity occurs exactly once per distinct
// bucket of its covering range.
func (g *Grid) ExpectedBuckets(bounds geom.AABB) int {
	lo, hi := g.cellRange(bounds)
	distinct := make(map[uint32]struct{})
	for cx := lo[0]; cx <= hi[0]; cx++ {
		for cy := lo[1]; cy <= hi[1]; cy++ {
			for cz := lo[2]; cz <= hi[2]; cz++ {
				distinct[g.BucketIndex(cx, cy, cz)] = struct{}{}
			}
		}
	}
	return len(distinct)
}
