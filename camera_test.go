package strata

import (
	"testing"
)

// settle drives the camera animation to completion.
func settle(t *testing.T, c *Camera) {
	t.Helper()
	now := 0.0
	for i := 0; i < 10000; i++ {
		now += frameMs
		if !c.Tick(now) {
			return
		}
	}
	t.Fatal("camera animation did not settle")
}

func TestCameraDefaults(t *testing.T) {
	c := NewCamera()
	if c.Zoom != 1.0 {
		t.Errorf("Zoom = %f, want 1.0", c.Zoom)
	}
	if c.OffsetX != 0 || c.OffsetY != 0 {
		t.Errorf("offset = (%f, %f), want origin", c.OffsetX, c.OffsetY)
	}
	if c.Converging() {
		t.Error("new camera should be idle")
	}
}

func TestCameraPanByMutatesCurrentAndTarget(t *testing.T) {
	c := NewCamera()
	c.PanBy(30, -20)
	if c.OffsetX != 30 || c.OffsetY != -20 {
		t.Errorf("offset = (%f, %f), want (30, -20)", c.OffsetX, c.OffsetY)
	}
	tgt := c.Target()
	if tgt.OffsetX != 30 || tgt.OffsetY != -20 {
		t.Errorf("target = (%f, %f), want (30, -20)", tgt.OffsetX, tgt.OffsetY)
	}
	if c.Converging() {
		t.Error("pan must not start an animation")
	}
}

func TestCameraZoomAtInvariant(t *testing.T) {
	for _, factor := range []float64{0.1, 0.5, 1.3, 2, 10} {
		c := NewCamera()
		c.Zoom = 1.0
		c.OffsetX, c.OffsetY = 120, -40

		sx, sy := 333.0, 444.0
		wxBefore := (sx - c.OffsetX) / c.Zoom
		wyBefore := (sy - c.OffsetY) / c.Zoom

		c.ZoomAt(sx, sy, factor)

		wxAfter := (sx - c.OffsetX) / c.Zoom
		wyAfter := (sy - c.OffsetY) / c.Zoom
		if !approxEqual(wxBefore, wxAfter, 1e-9) || !approxEqual(wyBefore, wyAfter, 1e-9) {
			t.Errorf("factor %f: world point under cursor moved (%f, %f) -> (%f, %f)",
				factor, wxBefore, wyBefore, wxAfter, wyAfter)
		}
	}
}

func TestCameraZoomAtClamps(t *testing.T) {
	c := NewCamera()
	c.ZoomAt(0, 0, 100)
	if c.Zoom != ZoomMax {
		t.Errorf("Zoom = %f, want clamped to %f", c.Zoom, ZoomMax)
	}
	c.ZoomAt(0, 0, 1e-6)
	if c.Zoom != ZoomMin {
		t.Errorf("Zoom = %f, want clamped to %f", c.Zoom, ZoomMin)
	}
}

func TestCameraFocusCentersRenderedNode(t *testing.T) {
	scene := NewScene()
	n := &Node{ID: 1, X: 1000, Y: -500, Width: 300, Height: 200, Z: -3}
	if err := scene.Add(n); err != nil {
		t.Fatalf("Add: %v", err)
	}

	c := NewCamera()
	planner := NewObstructionPlanner()
	const vw, vh = 800.0, 600.0
	c.FocusOnNode(n, vw, vh, planner, scene, 0)
	settle(t, c)

	if !approxEqual(c.Zoom, clampZoom(FocusZoomForZ(-3)), 1e-9) {
		t.Errorf("Zoom = %f, want focus zoom for z=-3", c.Zoom)
	}

	// The node's rendered center, not its naive world center, must land
	// at the viewport center.
	r := ProjectRect(n.Rect(), n.Z, c.Zoom, c.OffsetX, c.OffsetY)
	center := r.Center()
	if !approxEqual(center.X, vw/2, 1e-6) || !approxEqual(center.Y, vh/2, 1e-6) {
		t.Errorf("rendered center = (%f, %f), want (%f, %f)", center.X, center.Y, vw/2, vh/2)
	}
}

func TestCameraUnfocusRestores(t *testing.T) {
	scene := NewScene()
	n := &Node{ID: 1, X: 50, Y: 50, Width: 300, Height: 300, Z: 0}
	if err := scene.Add(n); err != nil {
		t.Fatalf("Add: %v", err)
	}

	c := NewCamera()
	c.PanBy(77, 88)
	before := c.State()

	c.FocusOnNode(n, 800, 600, NewObstructionPlanner(), scene, 0)
	settle(t, c)
	if _, ok := c.FocusedNode(); !ok {
		t.Fatal("camera should report focus")
	}

	c.Unfocus(0, nil)
	// Mid-flight the focus bookkeeping must survive.
	c.Tick(frameMs)
	if _, ok := c.FocusedNode(); !ok {
		t.Error("focus bookkeeping must clear only on completion")
	}
	settle(t, c)

	after := c.State()
	if after != before {
		t.Errorf("restored viewport = %+v, want %+v", after, before)
	}
	if _, ok := c.FocusedNode(); ok {
		t.Error("focus should be cleared after the restore completes")
	}
}

func TestCameraRefocusKeepsOriginalSave(t *testing.T) {
	scene := NewScene()
	a := &Node{ID: 1, X: 0, Y: 0, Width: 300, Height: 300, Z: 0}
	b := &Node{ID: 2, X: 5000, Y: 5000, Width: 300, Height: 300, Z: 0}
	for _, n := range []*Node{a, b} {
		if err := scene.Add(n); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	c := NewCamera()
	c.PanBy(11, 22)
	original := c.State()

	planner := NewObstructionPlanner()
	c.FocusOnNode(a, 800, 600, planner, scene, 0)
	settle(t, c)
	c.FocusOnNode(b, 800, 600, planner, scene, 0)
	settle(t, c)

	c.Unfocus(0, nil)
	settle(t, c)
	if got := c.State(); got != original {
		t.Errorf("unfocus after refocus restored %+v, want the original %+v", got, original)
	}
}
