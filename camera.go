package strata

// Viewport is a camera transform snapshot: the three values that place
// the scene on screen.
type Viewport struct {
	Zoom    float64
	OffsetX float64
	OffsetY float64
}

// Camera owns the viewport state and its animation. Zoom is always
// within [ZoomMin, ZoomMax]. Screen position of a world point on layer z
// follows the shared projection (see ProjectRect).
type Camera struct {
	Zoom    float64
	OffsetX float64
	OffsetY float64

	driver *Driver

	focusedNodeID int64
	hasFocus      bool
	savedViewport Viewport
}

// NewCamera creates a camera at the origin with zoom 1.
func NewCamera() *Camera {
	c := &Camera{Zoom: 1.0}
	c.driver = NewDriver(&c.Zoom, &c.OffsetX, &c.OffsetY)
	return c
}

// State returns the current viewport values.
func (c *Camera) State() Viewport {
	return Viewport{Zoom: c.Zoom, OffsetX: c.OffsetX, OffsetY: c.OffsetY}
}

// Target returns the viewport the camera is converging toward. Equal to
// State when idle.
func (c *Camera) Target() Viewport {
	zoom, ox, oy := c.driver.Target()
	return Viewport{Zoom: zoom, OffsetX: ox, OffsetY: oy}
}

// Converging reports whether a camera animation is in flight.
func (c *Camera) Converging() bool {
	return c.driver.Converging()
}

// FocusedNode returns the focused node id, if any.
func (c *Camera) FocusedNode() (int64, bool) {
	return c.focusedNodeID, c.hasFocus
}

// Tick advances the camera animation and reports whether another tick is
// wanted.
func (c *Camera) Tick(nowMs float64) bool {
	return c.driver.Tick(nowMs)
}

// PanBy shifts the camera offset directly, mutating current and target
// together so a pan during an animation moves the in-flight target with
// the hand. No animation is started.
func (c *Camera) PanBy(dx, dy float64) {
	c.OffsetX += dx
	c.OffsetY += dy
	c.driver.NudgeTarget(dx, dy)
}

// ZoomAt scales the zoom by factor while keeping the world point under
// the screen point (sx, sy) stationary. The zoom is clamped to
// [ZoomMin, ZoomMax]; the anchor invariant holds at the clamped value.
// Direct manipulation: cancels any in-flight animation.
func (c *Camera) ZoomAt(sx, sy, factor float64) {
	worldX := (sx - c.OffsetX) / c.Zoom
	worldY := (sy - c.OffsetY) / c.Zoom
	zoom := clampZoom(c.Zoom * factor)
	c.driver.Set(zoom, sx-worldX*zoom, sy-worldY*zoom)
}

// FocusOnNode animates the camera so the node's rendered center lands at
// the viewport center at its depth's focal zoom. The candidate transform
// is checked for obstruction by nearer layers and the avoidance
// correction, if any, is added to the target offset before animating.
//
// The prior viewport is saved for Unfocus the first time focus is taken;
// refocusing from one node to another keeps the original saved viewport.
// Returns the obstruction report for the chosen transform.
func (c *Camera) FocusOnNode(n *Node, viewportW, viewportH float64, planner *ObstructionPlanner, scene *Scene, nowMs float64) ObstructionReport {
	zoom, ox, oy := focusTarget(n, viewportW, viewportH)

	report := planner.Detect(n, scene, zoom, ox, oy, viewportW, viewportH)
	if report.Obstructed {
		ox += report.Avoidance.X
		oy += report.Avoidance.Y
	}

	c.takeFocus(n.ID)
	c.driver.OnComplete = nil
	c.driver.SetTarget(zoom, ox, oy, FocusDurationMs, nowMs)
	return report
}

// CenterOnNode animates the camera straight to the node's focal
// transform with no obstruction correction. Fullscreen uses this: the
// node must fill the viewport exactly, so an avoidance shift would only
// expose background.
func (c *Camera) CenterOnNode(n *Node, viewportW, viewportH, nowMs float64) {
	zoom, ox, oy := focusTarget(n, viewportW, viewportH)
	c.takeFocus(n.ID)
	c.driver.OnComplete = nil
	c.driver.SetTarget(zoom, ox, oy, FocusDurationMs, nowMs)
}

// focusTarget returns the transform that puts the node's rendered center
// at the viewport center at its depth's focal zoom: the offset solves
// viewportW/2 = center.X*s + ox*p.
func focusTarget(n *Node, viewportW, viewportH float64) (zoom, ox, oy float64) {
	zoom = clampZoom(FocusZoomForZ(n.Z))
	s := IntrinsicScale(n.Z) * zoom
	p := ParallaxFactor(n.Z)
	center := n.Center()
	ox = (viewportW/2 - center.X*s) / p
	oy = (viewportH/2 - center.Y*s) / p
	return zoom, ox, oy
}

// takeFocus records the focused node, saving the prior viewport the
// first time focus is taken.
func (c *Camera) takeFocus(id int64) {
	if !c.hasFocus {
		c.savedViewport = c.State()
		c.hasFocus = true
	}
	c.focusedNodeID = id
}

// Unfocus animates back to the viewport saved when focus was taken.
// Focus bookkeeping clears only when the restore animation completes, so
// interrupting it mid-flight leaves the focus state consistent with the
// camera's actual position. onDone, if non-nil, runs after the clear.
// No-op when nothing is focused.
func (c *Camera) Unfocus(nowMs float64, onDone func()) {
	if !c.hasFocus {
		return
	}
	saved := c.savedViewport
	c.driver.OnComplete = func() {
		c.hasFocus = false
		c.focusedNodeID = 0
		if onDone != nil {
			onDone()
		}
	}
	c.driver.SetTarget(saved.Zoom, saved.OffsetX, saved.OffsetY, FocusDurationMs, nowMs)
}

// Restore animates to an arbitrary saved viewport. Completion bookkeeping
// is the caller's concern via onDone.
func (c *Camera) Restore(v Viewport, nowMs float64, onDone func()) {
	c.driver.OnComplete = onDone
	c.driver.SetTarget(clampZoom(v.Zoom), v.OffsetX, v.OffsetY, FocusDurationMs, nowMs)
}
