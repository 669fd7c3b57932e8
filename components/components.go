// Package components defines the ECS components carried by every
// simulation entity.
package components

import "github.com/simforge/broadphase/geom"

// SolidClass determines which hash table an entity is indexed in and how
// the step driver reacts when bounds overlap.
type SolidClass uint8

const (
	// SolidNone entities are never touchable and are not indexed.
	SolidNone SolidClass = iota
	// SolidTrigger entities report overlap events but never block motion.
	SolidTrigger
	// SolidBlocking entities stop other blocking entities that move into them.
	SolidBlocking
	// SolidBSP marks world geometry; it blocks like SolidBlocking but is
	// expected to stay put for the lifetime of the world.
	SolidBSP
)

// String returns the lowercase class name.
func (c SolidClass) String() string {
	switch c {
	case SolidNone:
		return "none"
	case SolidTrigger:
		return "trigger"
	case SolidBlocking:
		return "blocking"
	case SolidBSP:
		return "bsp"
	}
	return "unknown"
}

// Blocks reports whether the class participates in the blocking table.
func (c SolidClass) Blocks() bool {
	return c == SolidBlocking || c == SolidBSP
}

// Transform holds an entity's world position.
type Transform struct {
	Origin geom.Vec3
}

// Motion holds an entity's velocity in world units per second.
type Motion struct {
	Velocity geom.Vec3
}

// Collider holds an entity's bounds and index state.
//
// LocalMin/LocalMax are relative to the origin; WorldMin/WorldMax are the
// derived absolute bounds and are only valid while Linked is true (they are
// recomputed on every link).
type Collider struct {
	LocalMin, LocalMax geom.Vec3
	WorldMin, WorldMax geom.Vec3
	Solid              SolidClass
	Linked             bool
}

// WorldBounds returns the stored absolute bounds as a box.
func (c *Collider) WorldBounds() geom.AABB {
	return geom.AABB{Min: c.WorldMin, Max: c.WorldMax}
}

// UpdateWorldBounds recomputes the absolute bounds from origin and local
// bounds. Must be called before the entity is (re)indexed.
func (c *Collider) UpdateWorldBounds(origin geom.Vec3) {
	c.WorldMin = origin.Add(c.LocalMin)
	c.WorldMax = origin.Add(c.LocalMax)
}
