package canvas

// =============================================================================
// Viewport Transform - World/Screen Mapping
// =============================================================================

// Zoom limits. Scale is clamped into this range on every update.
const (
	MinScale = 0.15
	MaxScale = 2.0
)

// Point is a 2D coordinate. Whether it is in world or screen space depends
// on context; Transform converts between the two.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

// Transform is the pan/zoom mapping from world to screen coordinates:
//
//	screen = world*Scale + (X, Y)
//
// X and Y are unbounded; Scale stays within [MinScale, MaxScale].
type Transform struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// NewTransform returns the identity transform.
func NewTransform() Transform {
	return Transform{X: 0, Y: 0, Scale: 1}
}

// Pan translates the viewport by a raw screen-space delta. Panning is in
// screen space, so there is no division by scale here.
func (t *Transform) Pan(dx, dy float64) {
	t.X += dx
	t.Y += dy
}

// ZoomAt scales the viewport by factor, keeping the world point under the
// given screen point stationary. The new scale is clamped to
// [MinScale, MaxScale]; a zero or negative factor is a no-op so the scale
// can never collapse to zero.
func (t *Transform) ZoomAt(p Point, factor float64) {
	if factor <= 0 {
		return
	}
	newScale := clampScale(t.Scale * factor)
	ratio := newScale / t.Scale
	t.X = p.X - (p.X-t.X)*ratio
	t.Y = p.Y - (p.Y-t.Y)*ratio
	t.Scale = newScale
}

// WorldToScreen maps a world-space point to screen space.
func (t Transform) WorldToScreen(p Point) Point {
	return Point{p.X*t.Scale + t.X, p.Y*t.Scale + t.Y}
}

// ScreenToWorld maps a screen-space point back to world space.
func (t Transform) ScreenToWorld(p Point) Point {
	return Point{(p.X - t.X) / t.Scale, (p.Y - t.Y) / t.Scale}
}

// CenterOn pans so the world point lands on the given screen anchor. Scale
// is untouched: scenario recentering never changes zoom.
func (t *Transform) CenterOn(world, screenAnchor Point) {
	t.X = screenAnchor.X - world.X*t.Scale
	t.Y = screenAnchor.Y - world.Y*t.Scale
}

// Reset restores the transform to a caller-supplied default.
func (t *Transform) Reset(def Transform) {
	*t = def
	t.Scale = clampScale(t.Scale)
}

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
