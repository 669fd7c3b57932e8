// Package camera provides a 2D pan/zoom camera for the debug viewer's
// top-down view of the simulation plane.
package camera

// Camera maps the world X/Z plane to viewer screen coordinates. The world
// is unbounded; the camera just tracks a center point and magnification.
type Camera struct {
	// Center in world coordinates (world X maps to screen x, world Z to
	// screen y)
	X, Z float64

	// Zoom in pixels per world unit
	Zoom float64

	// Viewport dimensions in pixels
	ViewportW, ViewportH float64

	MinZoom, MaxZoom float64
}

// New creates a camera centered on the origin, zoomed so that extent world
// units fit the viewport height.
func New(viewportW, viewportH, extent float64) *Camera {
	zoom := viewportH / extent
	return &Camera{
		Zoom:      zoom,
		ViewportW: viewportW,
		ViewportH: viewportH,
		MinZoom:   zoom / 8,
		MaxZoom:   zoom * 64,
	}
}

// WorldToScreen converts a world X/Z position to screen coordinates.
func (c *Camera) WorldToScreen(wx, wz float64) (sx, sy float64) {
	sx = c.ViewportW/2 + (wx-c.X)*c.Zoom
	sy = c.ViewportH/2 + (wz-c.Z)*c.Zoom
	return sx, sy
}

// ScreenToWorld converts screen coordinates back to a world X/Z position.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wz float64) {
	wx = c.X + (sx-c.ViewportW/2)/c.Zoom
	wz = c.Z + (sy-c.ViewportH/2)/c.Zoom
	return wx, wz
}

// IsVisible reports whether any part of the world-space rectangle
// [minX,maxX]x[minZ,maxZ] falls inside the viewport. Used for draw culling.
func (c *Camera) IsVisible(minX, minZ, maxX, maxZ float64) bool {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)
	return maxX >= c.X-halfW && minX <= c.X+halfW &&
		maxZ >= c.Z-halfH && minZ <= c.Z+halfH
}

// VisibleWorldBounds returns the world-coordinate rectangle currently on
// screen.
func (c *Camera) VisibleWorldBounds() (minX, minZ, maxX, maxZ float64) {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)
	return c.X - halfW, c.Z - halfH, c.X + halfW, c.Z + halfH
}

// Pan moves the camera by a delta given in screen pixels.
func (c *Camera) Pan(dx, dy float64) {
	c.X += dx / c.Zoom
	c.Z += dy / c.Zoom
}

// SetZoom sets the zoom level, clamped to the configured range.
func (c *Camera) SetZoom(zoom float64) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by factor, keeping the world point
// under (sx, sy) fixed on screen so wheel zoom centers on the cursor.
func (c *Camera) ZoomBy(factor float64, sx, sy float64) {
	wx, wz := c.ScreenToWorld(sx, sy)
	c.SetZoom(c.Zoom * factor)
	// Re-anchor so (wx, wz) still projects to (sx, sy)
	c.X = wx - (sx-c.ViewportW/2)/c.Zoom
	c.Z = wz - (sy-c.ViewportH/2)/c.Zoom
}

// Resize updates the viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float64) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Reset recenters on the origin at the default zoom for the given extent.
func (c *Camera) Reset(extent float64) {
	c.X, c.Z = 0, 0
	c.Zoom = c.ViewportH / extent
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
