package geom

// AABB is an axis-aligned bounding box described by its min and max corners.
type AABB struct {
	Min, Max Vec3
}

// NewAABB builds a box from min/max corners.
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// Intersects reports whether a and b overlap. Boxes that merely touch on a
// face or edge count as overlapping.
func (a AABB) Intersects(b AABB) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y &&
		a.Min.Z <= b.Max.Z && b.Min.Z <= a.Max.Z
}

// Contains reports whether a fully encloses b.
func (a AABB) Contains(b AABB) bool {
	return a.Min.X <= b.Min.X && a.Max.X >= b.Max.X &&
		a.Min.Y <= b.Min.Y && a.Max.Y >= b.Max.Y &&
		a.Min.Z <= b.Min.Z && a.Max.Z >= b.Max.Z
}

// ContainsPoint reports whether p lies inside a (boundary inclusive).
func (a AABB) ContainsPoint(p Vec3) bool {
	return a.Min.X <= p.X && p.X <= a.Max.X &&
		a.Min.Y <= p.Y && p.Y <= a.Max.Y &&
		a.Min.Z <= p.Z && p.Z <= a.Max.Z
}

// Translated returns the box shifted by v.
func (a AABB) Translated(v Vec3) AABB {
	return AABB{Min: a.Min.Add(v), Max: a.Max.Add(v)}
}
