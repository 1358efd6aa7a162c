package strata

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"
)

func newTestEngine() *Engine {
	return NewEngine(EngineConfig{Rand: rand.New(rand.NewSource(1))})
}

// run drives the engine until the camera settles.
func run(t *testing.T, e *Engine) {
	t.Helper()
	now := e.now
	for i := 0; i < 10000; i++ {
		now += frameMs
		e.Tick(now)
		if !e.camera.Converging() && e.QueuedNodes() == 0 {
			return
		}
	}
	t.Fatal("engine did not settle")
}

func TestEngineAddNodeValidation(t *testing.T) {
	e := newTestEngine()

	cases := []struct {
		name string
		spec NodeSpec
	}{
		{"negative id", NodeSpec{ID: -1, Width: 300, Height: 300}},
		{"zero width", NodeSpec{Width: 0, Height: 300}},
		{"NaN height", NodeSpec{Width: 300, Height: math.NaN()}},
		{"infinite position", NodeSpec{X: math.Inf(1), Width: 300, Height: 300}},
	}
	for _, tc := range cases {
		_, err := e.AddNode(tc.spec, false)
		var verr ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: err = %v, want ValidationError", tc.name, err)
		}
	}
	if e.scene.Len() != 0 {
		t.Error("rejected specs must not mutate the scene")
	}
}

func TestEngineAddNodeAssignsIDs(t *testing.T) {
	e := newTestEngine()
	a, err := e.AddNode(NodeSpec{Width: 300, Height: 300}, false)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	b, err := e.AddNode(NodeSpec{Width: 300, Height: 300}, false)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if a.ID == b.ID {
		t.Errorf("auto ids collide: %d", a.ID)
	}

	// Explicit ids advance the counter past themselves.
	if _, err := e.AddNode(NodeSpec{ID: 100, Width: 300, Height: 300}, false); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	c, err := e.AddNode(NodeSpec{Width: 300, Height: 300}, false)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if c.ID <= 100 {
		t.Errorf("auto id after explicit 100 = %d, want > 100", c.ID)
	}
}

func TestEngineAddNodeDuplicate(t *testing.T) {
	e := newTestEngine()
	if _, err := e.AddNode(NodeSpec{ID: 5, Width: 300, Height: 300}, false); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	_, err := e.AddNode(NodeSpec{ID: 5, Width: 300, Height: 300}, false)
	var dup DuplicateIDError
	if !errors.As(err, &dup) {
		t.Errorf("err = %v, want DuplicateIDError", err)
	}
}

func TestEngineAddNodePlacementScenario(t *testing.T) {
	// Empty scene: the preferred point wins exactly.
	e := newTestEngine()
	n, err := e.AddNode(NodeSpec{X: 500, Y: 500, Width: 150, Height: 150}, true)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if n.X != 500 || n.Y != 500 {
		t.Errorf("placement = (%f, %f), want (500, 500) exactly", n.X, n.Y)
	}
	if n.Width != MinNodeSize {
		t.Errorf("width = %f, want clamped to %f", n.Width, MinNodeSize)
	}

	// Occupied preferred point: result passes the padded overlap test
	// against all existing nodes.
	m, err := e.AddNode(NodeSpec{X: 500, Y: 500, Width: 150, Height: 150}, true)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	for _, other := range e.scene.Nodes() {
		if other.ID == m.ID {
			continue
		}
		a := m.Rect().Expand(PlacementPadding)
		b := other.Rect().Expand(PlacementPadding)
		if a.Intersects(b) {
			t.Errorf("node %d placed at (%f, %f) overlaps node %d (padded)", m.ID, m.X, m.Y, other.ID)
		}
	}
}

func TestEngineUpdateNodeClamp(t *testing.T) {
	e := newTestEngine()
	if _, err := e.AddNode(NodeSpec{ID: 1, Width: 300, Height: 300}, false); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	w := 50.0
	if !e.UpdateNode(1, Patch{Width: &w}) {
		t.Fatal("UpdateNode should succeed")
	}
	n, _ := e.scene.Get(1)
	if n.Width != 200 {
		t.Errorf("width = %f, want 200", n.Width)
	}
	if e.UpdateNode(999, Patch{Width: &w}) {
		t.Error("UpdateNode of missing id should return false")
	}
}

func TestEngineMoveDepthCapsAtSurface(t *testing.T) {
	e := newTestEngine()
	if _, err := e.AddNode(NodeSpec{ID: 1, Width: 300, Height: 300, Z: -2}, false); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	e.MoveDepth(1, +1)
	e.MoveDepth(1, +1)
	e.MoveDepth(1, +1) // would cross the screen surface
	n, _ := e.scene.Get(1)
	if n.Z != 0 {
		t.Errorf("z = %d, want capped at 0", n.Z)
	}

	e.MoveDepth(1, -1)
	if n.Z != -1 {
		t.Errorf("z = %d, want -1 (backward motion unbounded)", n.Z)
	}
	if e.MoveDepth(99, +1) {
		t.Error("MoveDepth of missing id should return false")
	}
}

func TestEngineDeleteNodeReleasesFocus(t *testing.T) {
	e := newTestEngine()
	if _, err := e.AddNode(NodeSpec{ID: 1, Width: 300, Height: 300}, false); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, ok := e.FocusOnNode(1, 800, 600); !ok {
		t.Fatal("FocusOnNode failed")
	}
	run(t, e)

	if !e.DeleteNode(1) {
		t.Fatal("DeleteNode should succeed")
	}
	run(t, e)
	if _, ok := e.camera.FocusedNode(); ok {
		t.Error("deleting the focused node must release focus")
	}
	if e.DeleteNode(1) {
		t.Error("second delete should be a no-op returning false")
	}
}

func TestEngineQueueBatchesAcrossFrames(t *testing.T) {
	e := newTestEngine()
	for i := 0; i < 10; i++ {
		spec := NodeSpec{X: float64(i) * 400, Width: 300, Height: 300}
		if err := e.QueueNode(spec); err != nil {
			t.Fatalf("QueueNode: %v", err)
		}
	}

	e.Tick(frameMs)
	if got := e.scene.Len(); got != maxPlacementsPerTick {
		t.Errorf("placed %d nodes in one tick, want %d", got, maxPlacementsPerTick)
	}
	if got := e.QueuedNodes(); got != 10-maxPlacementsPerTick {
		t.Errorf("queue = %d, want %d", got, 10-maxPlacementsPerTick)
	}

	e.Tick(2 * frameMs)
	e.Tick(3 * frameMs)
	if e.scene.Len() != 10 || e.QueuedNodes() != 0 {
		t.Errorf("after 3 ticks: %d placed, %d queued", e.scene.Len(), e.QueuedNodes())
	}
}

func TestEngineFullscreenRoundtrip(t *testing.T) {
	e := newTestEngine()
	if _, err := e.AddNode(NodeSpec{ID: 1, X: 100, Y: 100, Width: 300, Height: 250, Z: -1}, false); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	n, _ := e.scene.Get(1)
	original := n.Rect()

	const vw, vh = 800.0, 600.0
	if !e.EnterFullscreen(1, vw, vh) {
		t.Fatal("EnterFullscreen failed")
	}
	run(t, e)

	// The node fills the viewport at its depth's focal zoom.
	r := ProjectRect(n.Rect(), n.Z, e.camera.Zoom, e.camera.OffsetX, e.camera.OffsetY)
	if !approxEqual(r.Width, vw, 1e-6) || !approxEqual(r.Height, vh, 1e-6) {
		t.Errorf("projected size = %fx%f, want %fx%f", r.Width, r.Height, vw, vh)
	}
	if !approxEqual(r.X, 0, 1e-6) || !approxEqual(r.Y, 0, 1e-6) {
		t.Errorf("projected origin = (%f, %f), want (0, 0)", r.X, r.Y)
	}
	if id, ok := e.Fullscreen(); !ok || id != 1 {
		t.Error("engine should report fullscreen node 1")
	}

	if !e.ExitFullscreen() {
		t.Fatal("ExitFullscreen failed")
	}
	if n.Rect() != original {
		t.Errorf("geometry after exit = %+v, want restored %+v immediately", n.Rect(), original)
	}
	if _, ok := e.Fullscreen(); !ok {
		t.Error("fullscreen bookkeeping must survive until the restore completes")
	}
	run(t, e)
	if _, ok := e.Fullscreen(); ok {
		t.Error("fullscreen bookkeeping should clear on completion")
	}
}

func TestEngineFullscreenIgnoresObstruction(t *testing.T) {
	e := newTestEngine()
	if _, err := e.AddNode(NodeSpec{ID: 1, X: 100, Y: 100, Width: 300, Height: 250, Z: -1}, false); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	// A nearer node overlapping the fullscreen target. Avoidance would
	// shift the camera off-center and expose background.
	if _, err := e.AddNode(NodeSpec{ID: 2, X: 0, Y: 0, Width: 400, Height: 400, Z: 0}, false); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	const vw, vh = 800.0, 600.0
	if !e.EnterFullscreen(1, vw, vh) {
		t.Fatal("EnterFullscreen failed")
	}
	run(t, e)

	n, _ := e.scene.Get(1)
	r := ProjectRect(n.Rect(), n.Z, e.camera.Zoom, e.camera.OffsetX, e.camera.OffsetY)
	if !approxEqual(r.X, 0, 1e-6) || !approxEqual(r.Y, 0, 1e-6) {
		t.Errorf("projected origin = (%f, %f), want (0, 0) despite the occluder", r.X, r.Y)
	}
	if !approxEqual(r.Width, vw, 1e-6) || !approxEqual(r.Height, vh, 1e-6) {
		t.Errorf("projected size = %fx%f, want %fx%f", r.Width, r.Height, vw, vh)
	}
}

func TestEngineSnapshotRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.json")
	sink := &FileSink{Path: path}

	e := NewEngine(EngineConfig{Sink: sink, Rand: rand.New(rand.NewSource(1))})
	if _, err := e.AddNode(NodeSpec{ID: 1, X: 10, Y: 20, Width: 300, Height: 250, Z: -2, Type: "text"}, false); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	e.Pan(55, -44)
	e.ZoomAt(0, 0, 2)
	e.Flush()

	restored := NewEngine(EngineConfig{Sink: sink})
	if err := restored.LoadSnapshot(); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if restored.scene.Len() != 1 {
		t.Fatalf("restored %d nodes, want 1", restored.scene.Len())
	}
	n, _ := restored.scene.Get(1)
	if n.X != 10 || n.Y != 20 || n.Width != 300 || n.Height != 250 || n.Z != -2 || n.Type != "text" {
		t.Errorf("restored node = %+v", n)
	}
	if !approxEqual(restored.camera.Zoom, e.camera.Zoom, 1e-9) ||
		!approxEqual(restored.camera.OffsetX, e.camera.OffsetX, 1e-9) ||
		!approxEqual(restored.camera.OffsetY, e.camera.OffsetY, 1e-9) {
		t.Errorf("restored viewport = %+v, want %+v", restored.camera.State(), e.camera.State())
	}

	// New ids must not collide with restored ones.
	added, err := restored.AddNode(NodeSpec{Width: 300, Height: 300}, false)
	if err != nil {
		t.Fatalf("AddNode after load: %v", err)
	}
	if added.ID == 1 {
		t.Error("id counter did not advance past loaded ids")
	}
}

func TestEngineOnChange(t *testing.T) {
	e := newTestEngine()
	fired := 0
	e.OnChange(func() { fired++ })

	if _, err := e.AddNode(NodeSpec{Width: 300, Height: 300}, false); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	e.Pan(10, 10)
	if fired < 2 {
		t.Errorf("listener fired %d times, want one per mutation", fired)
	}
}

func TestEngineFocusMissingNode(t *testing.T) {
	e := newTestEngine()
	if _, ok := e.FocusOnNode(42, 800, 600); ok {
		t.Error("focusing a missing node must report false")
	}
}
