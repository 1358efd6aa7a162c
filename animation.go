package strata

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Convergence thresholds: when the remaining delta on every field is
// below these, the driver snaps exactly to the target and goes idle.
const (
	convergePosEpsilon  = 0.1
	convergeZoomEpsilon = 0.001

	// defaultSmoothing is the exponential-mode lerp constant applied
	// per tick (drag-follow convergence).
	defaultSmoothing = 0.25
)

// DriverMode is the animation driver's state.
type DriverMode uint8

const (
	// DriverIdle means current equals target; nothing to advance.
	DriverIdle DriverMode = iota
	// DriverEased means a fixed-duration ease-in-out animation is in
	// flight.
	DriverEased
	// DriverSmooth means exponential smoothing toward the target, with
	// no fixed end time.
	DriverSmooth
)

// Driver converges three bound float64 fields (zoom, offsetX, offsetY)
// toward a target. It animates fields by pointer; the owner keeps using
// its own fields directly and the driver writes through them each tick.
//
// A new SetTarget while converging replaces the in-flight target
// immediately (last-write-wins, no queue); the new animation starts from
// the current interpolated values, so there is never a positional jump.
type Driver struct {
	zoom, offsetX, offsetY *float64

	targetZoom    float64
	targetOffsetX float64
	targetOffsetY float64

	// Eased-mode interpolation path. A single progress tween blends
	// source into target so a mid-flight pan can shift the whole path.
	sourceZoom    float64
	sourceOffsetX float64
	sourceOffsetY float64
	progress      *gween.Tween

	mode   DriverMode
	lastMs float64

	// Smoothing is the exponential-mode lerp constant per tick.
	Smoothing float64

	// OnComplete fires once when the driver reaches its target and goes
	// idle. It does not fire on Cancel or when superseded.
	OnComplete func()
}

// NewDriver binds a driver to the three fields it converges.
func NewDriver(zoom, offsetX, offsetY *float64) *Driver {
	d := &Driver{
		zoom:      zoom,
		offsetX:   offsetX,
		offsetY:   offsetY,
		Smoothing: defaultSmoothing,
	}
	d.targetZoom = *zoom
	d.targetOffsetX = *offsetX
	d.targetOffsetY = *offsetY
	return d
}

// Mode returns the driver's current state.
func (d *Driver) Mode() DriverMode {
	return d.mode
}

// Converging reports whether an animation is in flight.
func (d *Driver) Converging() bool {
	return d.mode != DriverIdle
}

// Target returns the current target values.
func (d *Driver) Target() (zoom, offsetX, offsetY float64) {
	return d.targetZoom, d.targetOffsetX, d.targetOffsetY
}

// Set snaps current and target to the given values with no animation and
// no completion fire. Used for direct manipulation (drag, cursor zoom).
func (d *Driver) Set(zoom, offsetX, offsetY float64) {
	*d.zoom = zoom
	*d.offsetX = offsetX
	*d.offsetY = offsetY
	d.targetZoom = zoom
	d.targetOffsetX = offsetX
	d.targetOffsetY = offsetY
	d.mode = DriverIdle
	d.OnComplete = nil
}

// NudgeTarget shifts the offset target by a delta without touching the
// animation state. In eased mode the source shifts too, so the whole
// in-flight path moves with the hand and no terminal jump occurs.
func (d *Driver) NudgeTarget(dx, dy float64) {
	d.targetOffsetX += dx
	d.targetOffsetY += dy
	if d.mode == DriverEased {
		d.sourceOffsetX += dx
		d.sourceOffsetY += dy
	}
}

// SetTarget starts converging toward the given values. A durationMs of
// zero (or less) snaps immediately, fires OnComplete, and stays idle.
// Positive durations run an ease-in-out animation driven by Tick.
func (d *Driver) SetTarget(zoom, offsetX, offsetY, durationMs, nowMs float64) {
	d.targetZoom = zoom
	d.targetOffsetX = offsetX
	d.targetOffsetY = offsetY

	if durationMs <= 0 {
		*d.zoom = zoom
		*d.offsetX = offsetX
		*d.offsetY = offsetY
		d.mode = DriverIdle
		d.fireComplete()
		return
	}

	d.sourceZoom = *d.zoom
	d.sourceOffsetX = *d.offsetX
	d.sourceOffsetY = *d.offsetY
	d.progress = gween.New(0, 1, float32(durationMs/1000.0), ease.InOutQuad)
	d.lastMs = nowMs
	d.mode = DriverEased
}

// SetTargetSmooth starts exponential convergence toward the given values:
// each tick moves the current values a fixed fraction of the remaining
// distance. There is no fixed end time; the driver goes idle when the
// convergence thresholds are met.
func (d *Driver) SetTargetSmooth(zoom, offsetX, offsetY float64) {
	d.targetZoom = zoom
	d.targetOffsetX = offsetX
	d.targetOffsetY = offsetY
	d.mode = DriverSmooth
}

// Tick advances the animation one step and reports whether another tick
// is wanted. Idle drivers return false immediately.
func (d *Driver) Tick(nowMs float64) bool {
	switch d.mode {
	case DriverIdle:
		return false

	case DriverEased:
		dt := float32((nowMs - d.lastMs) / 1000.0)
		if dt < 0 {
			dt = 0
		}
		d.lastMs = nowMs

		pv, done := d.progress.Update(dt)
		p := float64(pv)
		*d.zoom = d.sourceZoom + (d.targetZoom-d.sourceZoom)*p
		*d.offsetX = d.sourceOffsetX + (d.targetOffsetX-d.sourceOffsetX)*p
		*d.offsetY = d.sourceOffsetY + (d.targetOffsetY-d.sourceOffsetY)*p

		if done || d.converged() {
			d.finish()
			return false
		}
		return true

	case DriverSmooth:
		*d.zoom += (d.targetZoom - *d.zoom) * d.Smoothing
		*d.offsetX += (d.targetOffsetX - *d.offsetX) * d.Smoothing
		*d.offsetY += (d.targetOffsetY - *d.offsetY) * d.Smoothing
		if d.converged() {
			d.finish()
			return false
		}
		return true
	}
	return false
}

// Cancel stops the animation at the current interpolated values without
// reaching the target and without firing OnComplete. The target collapses
// to the current values.
func (d *Driver) Cancel() {
	d.targetZoom = *d.zoom
	d.targetOffsetX = *d.offsetX
	d.targetOffsetY = *d.offsetY
	d.mode = DriverIdle
	d.OnComplete = nil
}

// converged reports whether the remaining deltas are below the snap
// thresholds.
func (d *Driver) converged() bool {
	return abs(d.targetOffsetX-*d.offsetX) < convergePosEpsilon &&
		abs(d.targetOffsetY-*d.offsetY) < convergePosEpsilon &&
		abs(d.targetZoom-*d.zoom) < convergeZoomEpsilon
}

// finish snaps exactly to the target, goes idle, and fires the one-shot
// completion callback.
func (d *Driver) finish() {
	*d.zoom = d.targetZoom
	*d.offsetX = d.targetOffsetX
	*d.offsetY = d.targetOffsetY
	d.mode = DriverIdle
	d.fireComplete()
}

func (d *Driver) fireComplete() {
	if cb := d.OnComplete; cb != nil {
		d.OnComplete = nil
		cb()
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
