package strata

import "math"

// Tuning constants for the engine. All world-space units are arbitrary
// but consistent; screen-space units are pixels.
const (
	// MinNodeSize is the smallest width or height a node may have.
	// Smaller values are clamped, never rejected.
	MinNodeSize = 200.0

	// ZoomMin and ZoomMax bound the camera zoom.
	ZoomMin = 0.1
	ZoomMax = 10.0

	// FocalPlaneTargetScale is the effective on-screen scale a depth
	// layer reaches when the camera sits at that layer's focus zoom.
	FocalPlaneTargetScale = 1.0

	// ObstructionThreshold is the obstruction percentage above which a
	// focus target is considered occluded.
	ObstructionThreshold = 15.0

	// FocusDurationMs is the camera animation length for focus,
	// unfocus, and fullscreen transitions.
	FocusDurationMs = 450.0

	// PlacementPadding is the default gap enforced around nodes by the
	// placement solver.
	PlacementPadding = 40.0
)

// Vec2 is a 2D vector used for positions, offsets, and directions
// throughout the API.
type Vec2 struct {
	X, Y float64
}

// Length returns the Euclidean length of the vector.
func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin
// at the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Intersection returns the overlapping region of r and other. The second
// return value is false when the rectangles do not overlap (a shared edge
// counts as a zero-area overlap).
func (r Rect) Intersection(other Rect) (Rect, bool) {
	x0 := math.Max(r.X, other.X)
	y0 := math.Max(r.Y, other.Y)
	x1 := math.Min(r.X+r.Width, other.X+other.Width)
	y1 := math.Min(r.Y+r.Height, other.Y+other.Height)
	if x1 < x0 || y1 < y0 {
		return Rect{}, false
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}

// Area returns the rectangle's area. Never negative.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Expand grows the rectangle by pad on every side. Negative pad shrinks.
func (r Rect) Expand(pad float64) Rect {
	return Rect{
		X:      r.X - pad,
		Y:      r.Y - pad,
		Width:  r.Width + 2*pad,
		Height: r.Height + 2*pad,
	}
}

// Center returns the rectangle's center point.
func (r Rect) Center() Vec2 {
	return Vec2{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// BoundingBox returns the world-space bounds enclosing all given nodes.
// The second return value is false for an empty slice; the zero Rect it
// returns then is a sentinel, never NaN.
func BoundingBox(nodes []*Node) (Rect, bool) {
	if len(nodes) == 0 {
		return Rect{}, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		minX = math.Min(minX, n.X)
		minY = math.Min(minY, n.Y)
		maxX = math.Max(maxX, n.X+n.Width)
		maxY = math.Max(maxY, n.Y+n.Height)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// clampZoom restricts a zoom value to [ZoomMin, ZoomMax].
func clampZoom(zoom float64) float64 {
	return clamp(zoom, ZoomMin, ZoomMax)
}
