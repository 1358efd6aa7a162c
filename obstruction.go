package strata

import (
	"math"
	"sort"
)

// ObstructionPlanner computes screen-space occlusion of a focus target by
// nodes on strictly nearer depth layers, and an avoidance correction that
// shifts the camera away from the occluders.
type ObstructionPlanner struct {
	// Threshold is the obstruction percentage above which the target
	// counts as obstructed.
	Threshold float64
	// AvoidanceGain scales the raw centroid-to-center vector into a
	// camera offset correction.
	AvoidanceGain float64
	// MaxAvoidanceFrac caps the correction magnitude as a fraction of
	// the viewport diagonal.
	MaxAvoidanceFrac float64
}

// NewObstructionPlanner creates a planner with the default tuning.
func NewObstructionPlanner() *ObstructionPlanner {
	return &ObstructionPlanner{
		Threshold:        ObstructionThreshold,
		AvoidanceGain:    1.5,
		MaxAvoidanceFrac: 0.35,
	}
}

// ObstructionReport is the planner's verdict on one candidate transform.
type ObstructionReport struct {
	// Obstructed is true when Percentage exceeds the threshold.
	Obstructed bool
	// Percentage is the share of the target's projected area covered by
	// nearer nodes, in [0, 100]. The union of overlaps is measured, so
	// stacked occluders never count twice.
	Percentage float64
	// Obstructing lists the ids of the occluding nodes.
	Obstructing []int64
	// Avoidance is the camera offset correction that moves the target
	// away from the occluders. Zero when not obstructed.
	Avoidance Vec2
}

// Detect projects the target and every node on a strictly greater depth
// layer under the candidate transform (zoom, offsetX, offsetY), each with
// its own layer's intrinsic scale and parallax, and measures how much of
// the target's rect the nearer rects cover. Total: a zero-area target or
// an empty nearer set yields an unobstructed report, never an error.
func (p *ObstructionPlanner) Detect(target *Node, scene *Scene, zoom, offsetX, offsetY, viewportW, viewportH float64) ObstructionReport {
	targetRect := ProjectRect(target.Rect(), target.Z, zoom, offsetX, offsetY)
	targetArea := targetRect.Area()
	if targetArea <= 0 {
		return ObstructionReport{}
	}

	var (
		overlaps  []Rect
		occluders []Rect
		ids       []int64
	)
	for _, n := range scene.Nodes() {
		if n.ID == target.ID || n.Z <= target.Z {
			continue
		}
		r := ProjectRect(n.Rect(), n.Z, zoom, offsetX, offsetY)
		inter, ok := targetRect.Intersection(r)
		if !ok || inter.Area() <= 0 {
			continue
		}
		overlaps = append(overlaps, inter)
		occluders = append(occluders, r)
		ids = append(ids, n.ID)
	}
	if len(overlaps) == 0 {
		return ObstructionReport{}
	}

	covered := math.Min(rectUnionArea(overlaps), targetArea)
	pct := clamp(covered/targetArea*100.0, 0, 100)

	report := ObstructionReport{
		Percentage:  pct,
		Obstructing: ids,
	}
	if pct <= p.Threshold {
		return report
	}
	report.Obstructed = true
	report.Avoidance = p.avoidance(targetRect, occluders, viewportW, viewportH)
	return report
}

// avoidance computes the offset correction: the vector from the centroid
// of the occluding rects to the target's center, scaled by the gain and
// capped against the viewport diagonal. A degenerate (concentric) layout
// falls back to a fixed diagonal push so the caller always gets a usable
// direction.
func (p *ObstructionPlanner) avoidance(targetRect Rect, occluders []Rect, viewportW, viewportH float64) Vec2 {
	var cx, cy float64
	for _, r := range occluders {
		c := r.Center()
		cx += c.X
		cy += c.Y
	}
	cx /= float64(len(occluders))
	cy /= float64(len(occluders))

	tc := targetRect.Center()
	v := Vec2{X: (tc.X - cx) * p.AvoidanceGain, Y: (tc.Y - cy) * p.AvoidanceGain}

	maxLen := math.Hypot(viewportW, viewportH) * p.MaxAvoidanceFrac
	length := v.Length()
	if length < 1e-9 {
		// Concentric occluder: push down-right by a quarter of the cap.
		return Vec2{X: maxLen / 4, Y: maxLen / 4}
	}
	if length > maxLen {
		scale := maxLen / length
		v.X *= scale
		v.Y *= scale
	}
	return v
}

// rectUnionArea returns the area of the union of the given rectangles,
// by coordinate compression: the plane is cut into the grid induced by
// all rect edges and each cell is counted once if any rect covers it.
func rectUnionArea(rects []Rect) float64 {
	if len(rects) == 0 {
		return 0
	}
	xs := make([]float64, 0, len(rects)*2)
	ys := make([]float64, 0, len(rects)*2)
	for _, r := range rects {
		if r.Area() <= 0 {
			continue
		}
		xs = append(xs, r.X, r.X+r.Width)
		ys = append(ys, r.Y, r.Y+r.Height)
	}
	xs = sortedUnique(xs)
	ys = sortedUnique(ys)

	var total float64
	for i := 0; i+1 < len(xs); i++ {
		for j := 0; j+1 < len(ys); j++ {
			cx := (xs[i] + xs[i+1]) / 2
			cy := (ys[j] + ys[j+1]) / 2
			for _, r := range rects {
				if r.Contains(cx, cy) {
					total += (xs[i+1] - xs[i]) * (ys[j+1] - ys[j])
					break
				}
			}
		}
	}
	return total
}

// sortedUnique sorts vs ascending and removes duplicates in place.
func sortedUnique(vs []float64) []float64 {
	sort.Float64s(vs)
	out := vs[:0]
	for _, v := range vs {
		if len(out) == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
