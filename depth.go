package strata

import "math"

// Depth model: pure, total functions of an integer depth layer.
//
// z=0 is the screen surface. Negative layers recede into the background;
// positive layers sit in front of the reference plane (engine commands
// cap forward motion at z=0, but the math is defined for all integers).
//
// The projection convention shared by the camera, the obstruction
// planner, and renderers is:
//
//	screen = world * IntrinsicScale(z) * zoom + offset * ParallaxFactor(z)
//
// which at z=0 reduces to the usual screen = world*zoom + offset.

const (
	// depthScaleBase is the per-layer intrinsic scale step.
	depthScaleBase = 1.22

	// parallaxStrength controls how quickly background layers decouple
	// from camera panning.
	parallaxStrength = 0.15

	// Intrinsic scale is clamped to this range for extreme depths so the
	// model stays finite and strictly positive for all integers.
	minIntrinsicScale = 1e-4
	maxIntrinsicScale = 8.0
)

// IntrinsicScale returns the base size multiplier for depth z, simulating
// distance independent of camera zoom. Monotonically non-decreasing in z:
// background layers shrink, foreground layers grow slightly.
func IntrinsicScale(z int) float64 {
	return clamp(math.Pow(depthScaleBase, float64(z)), minIntrinsicScale, maxIntrinsicScale)
}

// ParallaxFactor returns the per-layer multiplier on how strongly the
// camera offset moves a layer on screen, relative to the z=0 reference
// plane. Always in (0, 1], with ParallaxFactor(0) == 1. Layers at or in
// front of the reference plane track the camera exactly; background
// layers fall off hyperbolically.
func ParallaxFactor(z int) float64 {
	if z >= 0 {
		return 1.0
	}
	return 1.0 / (1.0 + parallaxStrength*float64(-z))
}

// FocusZoomForZ returns the camera zoom at which depth z's effective
// on-screen scale equals FocalPlaneTargetScale. The result is not clamped
// to the camera's zoom range; the camera clamps when it applies it.
func FocusZoomForZ(z int) float64 {
	return FocalPlaneTargetScale / IntrinsicScale(z)
}

// ProjectRect maps a world-space rectangle on depth layer z to screen
// space under the given camera transform.
func ProjectRect(r Rect, z int, zoom, offsetX, offsetY float64) Rect {
	s := IntrinsicScale(z) * zoom
	p := ParallaxFactor(z)
	return Rect{
		X:      r.X*s + offsetX*p,
		Y:      r.Y*s + offsetY*p,
		Width:  r.Width * s,
		Height: r.Height * s,
	}
}

// UnprojectPoint maps a screen-space point back to world space on depth
// layer z under the given camera transform. Inverse of ProjectRect for
// points.
func UnprojectPoint(sx, sy float64, z int, zoom, offsetX, offsetY float64) (wx, wy float64) {
	s := IntrinsicScale(z) * zoom
	p := ParallaxFactor(z)
	return (sx - offsetX*p) / s, (sy - offsetY*p) / s
}

// DepthAlpha is a render hint: the opacity a renderer should apply to a
// layer given the current zoom, fading layers as their effective scale
// drifts from the focal plane. Pure function, always in [0.15, 1].
func DepthAlpha(z int, zoom float64) float64 {
	d := math.Abs(math.Log(IntrinsicScale(z) * zoom / FocalPlaneTargetScale))
	return clamp(1.0-0.25*d, 0.15, 1.0)
}

// DepthBlur is a render hint: a blur radius in pixels for a layer given
// the current zoom. Zero at the focal plane, growing with defocus.
func DepthBlur(z int, zoom float64) float64 {
	d := math.Abs(math.Log(IntrinsicScale(z) * zoom / FocalPlaneTargetScale))
	return clamp(2.0*d, 0, 8.0)
}
