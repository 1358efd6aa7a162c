package strata

import (
	"math"
	"math/rand"
	"time"
)

// Placement solver tuning.
const (
	spiralRings      = 10
	spiralSamples    = 8
	gridCols         = 20
	gridRows         = 15
	gridCellSize     = 300.0
	gridJitterFrac   = 0.2
	randomSamples    = 100
	randomBaseExtent = 2000.0
	bestEffortTries  = 32
)

// PlacementTier identifies which search tier produced a placement.
type PlacementTier uint8

const (
	TierPreferred  PlacementTier = iota // caller's point was free
	TierSpiral                          // ring search around the preferred point
	TierGrid                            // jittered, shuffled grid probe
	TierRandom                          // bounded random sampling
	TierBestEffort                      // fewest-overlaps fallback, degraded
)

// Placement is a solver result. Degraded means every tier was exhausted
// and the position is merely the least-overlapping candidate seen.
type Placement struct {
	X, Y     float64
	Tier     PlacementTier
	Degraded bool
}

// PlacementSolver finds collision-free positions for new rectangles among
// the existing nodes, across all depth layers. Tiered: each tier is
// cheaper certainty traded for wider coverage, and the first free
// position wins. The solver never fails; the last tier always returns a
// best-effort position flagged Degraded.
type PlacementSolver struct {
	// Padding is the gap enforced around rectangles. Both the candidate
	// and every existing node are expanded by it before the overlap test.
	Padding float64

	rng *rand.Rand
}

// NewPlacementSolver creates a solver. A nil rng gets a time-seeded one;
// tests inject a fixed seed.
func NewPlacementSolver(padding float64, rng *rand.Rand) *PlacementSolver {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &PlacementSolver{Padding: padding, rng: rng}
}

// Find returns a position for a w x h rectangle near the preferred point.
// Tiers, in order: the preferred point itself, a spiral around it, a
// jittered grid, bounded random sampling, and a degraded best-effort
// fallback.
func (s *PlacementSolver) Find(w, h float64, preferred Vec2, scene *Scene) Placement {
	if s.isFree(preferred.X, preferred.Y, w, h, scene) {
		return Placement{X: preferred.X, Y: preferred.Y, Tier: TierPreferred}
	}
	if x, y, ok := s.spiral(w, h, preferred, scene); ok {
		return Placement{X: x, Y: y, Tier: TierSpiral}
	}
	if x, y, ok := s.grid(w, h, preferred, scene); ok {
		return Placement{X: x, Y: y, Tier: TierGrid}
	}
	if x, y, ok := s.random(w, h, preferred, scene); ok {
		return Placement{X: x, Y: y, Tier: TierRandom}
	}
	x, y := s.bestEffort(w, h, preferred, scene)
	return Placement{X: x, Y: y, Tier: TierBestEffort, Degraded: true}
}

// isFree reports whether a w x h rect at (x, y) passes the padded overlap
// test against every existing node, regardless of depth.
func (s *PlacementSolver) isFree(x, y, w, h float64, scene *Scene) bool {
	return s.countOverlaps(x, y, w, h, scene) == 0
}

// countOverlaps returns how many existing nodes the padded candidate rect
// overlaps. The spatial index narrows the test to nearby nodes.
func (s *PlacementSolver) countOverlaps(x, y, w, h float64, scene *Scene) int {
	candidate := Rect{X: x, Y: y, Width: w, Height: h}.Expand(s.Padding)
	count := 0
	for _, n := range scene.NodesIntersecting(candidate.Expand(s.Padding)) {
		if candidate.Intersects(n.Rect().Expand(s.Padding)) {
			count++
		}
	}
	return count
}

// spiral probes 8 evenly spaced samples per ring around the preferred
// point, stepping outward by max(w, h) + padding per ring.
func (s *PlacementSolver) spiral(w, h float64, preferred Vec2, scene *Scene) (float64, float64, bool) {
	step := math.Max(w, h) + s.Padding
	for ring := 1; ring <= spiralRings; ring++ {
		radius := float64(ring) * step
		for i := 0; i < spiralSamples; i++ {
			angle := float64(i) * 2 * math.Pi / spiralSamples
			x := preferred.X + math.Cos(angle)*radius
			y := preferred.Y + math.Sin(angle)*radius
			if s.isFree(x, y, w, h, scene) {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

// grid probes a fixed grid of cells centered on the preferred point.
// Cells are jittered and visited in shuffled order for variety; the
// first free cell wins.
func (s *PlacementSolver) grid(w, h float64, preferred Vec2, scene *Scene) (float64, float64, bool) {
	originX := preferred.X - gridCols*gridCellSize/2
	originY := preferred.Y - gridRows*gridCellSize/2
	jitter := gridCellSize * gridJitterFrac

	for _, idx := range s.rng.Perm(gridCols * gridRows) {
		col := idx % gridCols
		row := idx / gridCols
		x := originX + float64(col)*gridCellSize + (s.rng.Float64()*2-1)*jitter
		y := originY + float64(row)*gridCellSize + (s.rng.Float64()*2-1)*jitter
		if s.isFree(x, y, w, h, scene) {
			return x, y, true
		}
	}
	return 0, 0, false
}

// random samples points in a region that expands as attempts fail.
func (s *PlacementSolver) random(w, h float64, preferred Vec2, scene *Scene) (float64, float64, bool) {
	for i := 0; i < randomSamples; i++ {
		extent := randomBaseExtent * (1 + float64(i)/20)
		x := preferred.X + (s.rng.Float64()*2-1)*extent
		y := preferred.Y + (s.rng.Float64()*2-1)*extent
		if s.isFree(x, y, w, h, scene) {
			return x, y, true
		}
	}
	return 0, 0, false
}

// bestEffort samples a handful of random points and returns the one with
// the fewest padded overlaps. Only reached when the scene is saturated
// around the preferred point; the caller sees Degraded=true.
func (s *PlacementSolver) bestEffort(w, h float64, preferred Vec2, scene *Scene) (float64, float64) {
	bestX, bestY := preferred.X, preferred.Y
	bestCount := s.countOverlaps(bestX, bestY, w, h, scene)
	for i := 0; i < bestEffortTries; i++ {
		extent := randomBaseExtent * 4
		x := preferred.X + (s.rng.Float64()*2-1)*extent
		y := preferred.Y + (s.rng.Float64()*2-1)*extent
		if count := s.countOverlaps(x, y, w, h, scene); count < bestCount {
			bestX, bestY, bestCount = x, y, count
		}
	}
	return bestX, bestY
}
