package strata

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// maxPlacementsPerTick caps how many queued nodes are placed per frame,
// so bulk creation spreads across frames instead of blowing the frame
// budget on the placement solver.
const maxPlacementsPerTick = 4

// FrameScheduler requests a future tick from the host's render loop.
// The engine re-requests ticks while an animation is converging. A nil
// scheduler means the host calls Tick unconditionally every frame.
type FrameScheduler interface {
	RequestTick(fn func(nowMs float64))
}

// EngineConfig configures a new Engine. The zero value is usable: no
// persistence, no scheduler, a no-op logger, and default tuning.
type EngineConfig struct {
	// Logger receives engine diagnostics. Defaults to zap.NewNop().
	Logger *zap.Logger
	// Sink, when set, receives debounced best-effort snapshots after
	// every mutation and serves LoadSnapshot.
	Sink PersistenceSink
	// SaveInterval is the debounce window for the sink. Values below
	// one second are raised to one second.
	SaveInterval time.Duration
	// Scheduler drives animation ticks. Optional.
	Scheduler FrameScheduler
	// Rand seeds the placement solver. Defaults to a time-seeded source.
	Rand *rand.Rand
	// PlacementPadding overrides the solver's node gap when positive.
	PlacementPadding float64
	// Debug enables per-tick timing logs and the frame-budget watchdog.
	Debug bool
}

// Engine composes the scene, camera, obstruction planner, and placement
// solver behind the command API a rendering layer consumes. One instance
// per session; all calls on one logical thread.
type Engine struct {
	scene   *Scene
	camera  *Camera
	planner *ObstructionPlanner
	solver  *PlacementSolver

	sink      PersistenceSink
	saver     *saver
	scheduler FrameScheduler
	log       *zap.Logger
	debug     bool

	now         float64 // most recent Tick timestamp, ms
	tickPending bool
	idCounter   int64

	queue []NodeSpec // deferred placements, drained by Tick

	hasFullscreen bool
	fullscreenID  int64
	savedNodeRect Rect

	listeners []func()
}

// NewEngine creates an engine from the given configuration.
func NewEngine(cfg EngineConfig) *Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	padding := cfg.PlacementPadding
	if padding <= 0 {
		padding = PlacementPadding
	}
	e := &Engine{
		scene:     NewScene(),
		camera:    NewCamera(),
		planner:   NewObstructionPlanner(),
		solver:    NewPlacementSolver(padding, cfg.Rand),
		sink:      cfg.Sink,
		scheduler: cfg.Scheduler,
		log:       log,
		debug:     cfg.Debug,
		idCounter: 1,
	}
	if cfg.Sink != nil {
		e.saver = newSaver(cfg.Sink, cfg.SaveInterval, log)
	}
	e.scene.OnChange(func() {
		e.scheduleSave()
		e.fireChange()
	})
	return e
}

// Scene returns the engine's scene model.
func (e *Engine) Scene() *Scene {
	return e.scene
}

// Camera returns the engine's camera.
func (e *Engine) Camera() *Camera {
	return e.camera
}

// OnChange registers a listener fired after every committed mutation,
// scene or viewport. Listeners must not call back into the engine.
func (e *Engine) OnChange(fn func()) {
	e.listeners = append(e.listeners, fn)
}

func (e *Engine) fireChange() {
	for _, fn := range e.listeners {
		fn()
	}
}

// --- Frame loop ---

// Tick advances the engine one frame: drains the deferred placement
// queue, steps the camera animation, and re-requests a tick while
// converging. nowMs is the host's monotonic clock in milliseconds.
func (e *Engine) Tick(nowMs float64) {
	start := time.Now()
	e.now = nowMs

	placed := e.drainQueue()

	wasConverging := e.camera.Converging()
	more := e.camera.Tick(nowMs)
	if wasConverging {
		e.viewportChanged()
	}
	if more {
		e.requestTick()
	}

	e.logTick(tickStats{
		placed:     placed,
		converging: more,
		elapsed:    time.Since(start),
	})
}

func (e *Engine) requestTick() {
	if e.scheduler == nil || e.tickPending {
		return
	}
	e.tickPending = true
	e.scheduler.RequestTick(func(nowMs float64) {
		e.tickPending = false
		e.Tick(nowMs)
	})
}

func (e *Engine) viewportChanged() {
	e.scheduleSave()
	e.fireChange()
}

// --- Camera commands ---

// Pan shifts the camera by a screen-space delta (direct manipulation).
func (e *Engine) Pan(dx, dy float64) {
	e.camera.PanBy(dx, dy)
	e.viewportChanged()
}

// ZoomAt scales the camera zoom by factor around the screen point
// (sx, sy), keeping the world point under it stationary.
func (e *Engine) ZoomAt(sx, sy, factor float64) {
	e.camera.ZoomAt(sx, sy, factor)
	e.viewportChanged()
}

// FocusOnNode animates the camera to center the node, corrected for
// obstruction by nearer layers. Returns the obstruction report and false
// when the id is unknown.
func (e *Engine) FocusOnNode(id int64, viewportW, viewportH float64) (ObstructionReport, bool) {
	n, ok := e.scene.Get(id)
	if !ok {
		return ObstructionReport{}, false
	}
	e.logSuperseded("focus")
	report := e.camera.FocusOnNode(n, viewportW, viewportH, e.planner, e.scene, e.now)
	e.requestTick()
	return report, true
}

// Unfocus animates the camera back to the viewport saved when focus was
// taken. No-op when nothing is focused.
func (e *Engine) Unfocus() {
	e.logSuperseded("unfocus")
	e.camera.Unfocus(e.now, nil)
	e.requestTick()
}

// EnterFullscreen saves the node's geometry, resizes it to exactly fill
// the viewport at its depth's focal zoom, and focuses it. Returns false
// when the id is unknown.
func (e *Engine) EnterFullscreen(id int64, viewportW, viewportH float64) bool {
	n, ok := e.scene.Get(id)
	if !ok {
		return false
	}
	if e.hasFullscreen && e.fullscreenID == id {
		return true
	}
	if e.hasFullscreen {
		e.restoreFullscreenRect()
	}
	e.savedNodeRect = n.Rect()
	e.fullscreenID = id
	e.hasFullscreen = true

	zoom := clampZoom(FocusZoomForZ(n.Z))
	eff := IntrinsicScale(n.Z) * zoom
	w := viewportW / eff
	h := viewportH / eff
	center := n.Center()
	x := center.X - w/2
	y := center.Y - h/2
	e.scene.Update(id, Patch{X: &x, Y: &y, Width: &w, Height: &h})

	e.logSuperseded("fullscreen")
	e.camera.CenterOnNode(n, viewportW, viewportH, e.now)
	e.requestTick()
	return true
}

// ExitFullscreen restores the node's saved geometry immediately and
// animates the camera back. The fullscreen bookkeeping clears when the
// restore animation completes, so an interrupted restore stays consistent
// with the camera's actual position. Returns false when not fullscreen.
func (e *Engine) ExitFullscreen() bool {
	if !e.hasFullscreen {
		return false
	}
	e.restoreFullscreenRect()
	e.logSuperseded("exit fullscreen")
	e.camera.Unfocus(e.now, func() {
		e.hasFullscreen = false
		e.fullscreenID = 0
	})
	e.requestTick()
	return true
}

// Fullscreen returns the fullscreen node id, if any.
func (e *Engine) Fullscreen() (int64, bool) {
	return e.fullscreenID, e.hasFullscreen
}

func (e *Engine) restoreFullscreenRect() {
	r := e.savedNodeRect
	e.scene.Update(e.fullscreenID, Patch{X: &r.X, Y: &r.Y, Width: &r.Width, Height: &r.Height})
}

func (e *Engine) logSuperseded(cmd string) {
	if e.camera.Converging() {
		e.log.Debug("camera animation superseded", zap.String("command", cmd))
	}
}

// --- Node commands ---

// AddNode validates and inserts a node. When avoidOverlap is set, the
// placement solver searches for a collision-free position starting at the
// spec's preferred (X, Y); otherwise the spec position is used as-is.
// A zero ID allocates the next free one.
func (e *Engine) AddNode(spec NodeSpec, avoidOverlap bool) (*Node, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	id := spec.ID
	if id == 0 {
		id = e.idCounter
	}
	w := math.Max(spec.Width, MinNodeSize)
	h := math.Max(spec.Height, MinNodeSize)
	x, y := spec.X, spec.Y
	if avoidOverlap {
		pl := e.solver.Find(w, h, Vec2{X: x, Y: y}, e.scene)
		x, y = pl.X, pl.Y
		if pl.Degraded {
			e.log.Warn("degraded placement, overlap possible",
				zap.Int64("id", id), zap.Float64("x", x), zap.Float64("y", y))
		}
	}
	n := &Node{
		ID: id, X: x, Y: y, Width: w, Height: h,
		Z: spec.Z, Type: spec.Type, Content: spec.Content,
	}
	if err := e.scene.Add(n); err != nil {
		return nil, err
	}
	if id >= e.idCounter {
		e.idCounter = id + 1
	}
	return n, nil
}

// QueueNode validates a spec and defers its placement: queued nodes are
// added (with overlap avoidance) a few per Tick, so bulk creation spreads
// across frames.
func (e *Engine) QueueNode(spec NodeSpec) error {
	if err := validateSpec(spec); err != nil {
		return err
	}
	e.queue = append(e.queue, spec)
	e.requestTick()
	return nil
}

// QueuedNodes returns how many deferred placements are waiting.
func (e *Engine) QueuedNodes() int {
	return len(e.queue)
}

func (e *Engine) drainQueue() int {
	placed := 0
	for placed < maxPlacementsPerTick && len(e.queue) > 0 {
		spec := e.queue[0]
		e.queue = e.queue[1:]
		if _, err := e.AddNode(spec, true); err != nil {
			e.log.Warn("queued node rejected", zap.Error(err))
		}
		placed++
	}
	if len(e.queue) > 0 {
		e.requestTick()
	}
	return placed
}

// UpdateNode merges a partial update into a node. Returns false when the
// id is unknown.
func (e *Engine) UpdateNode(id int64, patch Patch) bool {
	return e.scene.Update(id, patch)
}

// DeleteNode removes a node. Focus and fullscreen bookkeeping pointing at
// it are released. Returns false when the id is unknown.
func (e *Engine) DeleteNode(id int64) bool {
	if e.hasFullscreen && e.fullscreenID == id {
		e.hasFullscreen = false
		e.fullscreenID = 0
	}
	if fid, ok := e.camera.FocusedNode(); ok && fid == id {
		e.camera.Unfocus(e.now, nil)
		e.requestTick()
	}
	return e.scene.Remove(id)
}

// MoveDepth shifts a node one layer forward (+1) or backward (-1).
// Forward motion caps at z=0, the screen surface. Returns false when the
// id is unknown.
func (e *Engine) MoveDepth(id int64, delta int) bool {
	n, ok := e.scene.Get(id)
	if !ok {
		return false
	}
	z := n.Z + delta
	if z > 0 {
		z = 0
	}
	return e.scene.Update(id, Patch{Z: &z})
}

// --- Persistence ---

// Snapshot captures the current viewport and all nodes in the persisted
// shape.
func (e *Engine) Snapshot() *Snapshot {
	nodes := e.scene.Nodes()
	snap := &Snapshot{
		Zoom:    e.camera.Zoom,
		OffsetX: e.camera.OffsetX,
		OffsetY: e.camera.OffsetY,
		Nodes:   make([]NodeRecord, 0, len(nodes)),
	}
	for _, n := range nodes {
		snap.Nodes = append(snap.Nodes, NodeRecord{
			ID: n.ID, X: n.X, Y: n.Y, Width: n.Width, Height: n.Height,
			Z: n.Z, Type: n.Type, Content: n.Content,
		})
	}
	return snap
}

// LoadSnapshot restores nodes and the viewport from the configured sink.
// No-op without a sink or a stored snapshot. Individual duplicate nodes
// are skipped with a warning rather than failing the load.
func (e *Engine) LoadSnapshot() error {
	if e.sink == nil {
		return nil
	}
	snap, err := e.sink.Load()
	if err != nil {
		e.log.Warn("snapshot load failed", zap.Error(err))
		return err
	}
	if snap == nil {
		return nil
	}
	for _, rec := range snap.Nodes {
		n := &Node{
			ID: rec.ID, X: rec.X, Y: rec.Y, Width: rec.Width, Height: rec.Height,
			Z: rec.Z, Type: rec.Type, Content: rec.Content,
		}
		if err := e.scene.Add(n); err != nil {
			e.log.Warn("skipping snapshot node", zap.Int64("id", rec.ID), zap.Error(err))
			continue
		}
		if rec.ID >= e.idCounter {
			e.idCounter = rec.ID + 1
		}
	}
	zoom := snap.Zoom
	if zoom <= 0 {
		zoom = 1.0
	}
	e.camera.driver.Set(clampZoom(zoom), snap.OffsetX, snap.OffsetY)
	e.log.Info("snapshot loaded", zap.Int("nodes", len(snap.Nodes)))
	return nil
}

func (e *Engine) scheduleSave() {
	if e.saver == nil {
		return
	}
	e.saver.Schedule(e.Snapshot())
}

// Flush writes any pending snapshot immediately. Call on shutdown.
func (e *Engine) Flush() {
	if e.saver != nil {
		e.saver.Flush()
	}
}
