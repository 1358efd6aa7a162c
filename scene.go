package strata

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
)

// rtreeMinExtent keeps R-tree entries strictly positive-sized, which
// rtreego requires. Node sizes are clamped well above this anyway.
const rtreeMinExtent = 1e-6

// sceneItem wraps a node for the R-tree. Bounds are cached so the entry
// can be deleted with the geometry it was inserted under.
type sceneItem struct {
	node   *Node
	bounds rtreego.Rect
}

func (it *sceneItem) Bounds() rtreego.Rect {
	return it.bounds
}

// rtreeRect converts a world rectangle to an rtreego rect.
func rtreeRect(r Rect) rtreego.Rect {
	w := math.Max(r.Width, rtreeMinExtent)
	h := math.Max(r.Height, rtreeMinExtent)
	rect, err := rtreego.NewRect(rtreego.Point{r.X, r.Y}, []float64{w, h})
	if err != nil {
		// Lengths are forced positive above; this cannot fail.
		panic(err)
	}
	return rect
}

// Scene owns the node collection: CRUD, bounding-box queries, depth
// grouping, and a spatial index for region queries. All methods are
// single-threaded, like the rest of the engine.
type Scene struct {
	nodes     map[int64]*Node
	items     map[int64]*sceneItem
	order     []int64 // insertion order, for stable iteration
	index     *rtreego.Rtree
	listeners []func()
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{
		nodes: make(map[int64]*Node),
		items: make(map[int64]*sceneItem),
		index: rtreego.NewTree(2, 25, 50),
	}
}

// Len returns the number of nodes in the scene.
func (s *Scene) Len() int {
	return len(s.order)
}

// Get returns the node with the given id, if present.
func (s *Scene) Get(id int64) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order. The returned slice is
// owned by the caller; the nodes are not copies.
func (s *Scene) Nodes() []*Node {
	out := make([]*Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out
}

// Add inserts a node. Width and height are clamped to MinNodeSize.
// Returns DuplicateIDError if the id is already taken.
func (s *Scene) Add(n *Node) error {
	if _, exists := s.nodes[n.ID]; exists {
		return DuplicateIDError{ID: n.ID}
	}
	n.Width = math.Max(n.Width, MinNodeSize)
	n.Height = math.Max(n.Height, MinNodeSize)

	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)

	item := &sceneItem{node: n, bounds: rtreeRect(n.Rect())}
	s.items[n.ID] = item
	s.index.Insert(item)

	s.notify()
	return nil
}

// Update merges a partial update into the node with the given id. Width
// and height below MinNodeSize are silently clamped. Returns false when
// the id is missing; no error is raised.
func (s *Scene) Update(id int64, patch Patch) bool {
	n, ok := s.nodes[id]
	if !ok {
		return false
	}

	if patch.X != nil {
		n.X = *patch.X
	}
	if patch.Y != nil {
		n.Y = *patch.Y
	}
	if patch.Width != nil {
		n.Width = math.Max(*patch.Width, MinNodeSize)
	}
	if patch.Height != nil {
		n.Height = math.Max(*patch.Height, MinNodeSize)
	}
	if patch.Z != nil {
		n.Z = *patch.Z
	}
	if patch.Type != nil {
		n.Type = *patch.Type
	}
	if patch.Content != nil {
		n.Content = patch.Content
	}

	if patch.X != nil || patch.Y != nil || patch.Width != nil || patch.Height != nil {
		s.reindex(id)
	}

	s.notify()
	return true
}

// reindex refreshes the R-tree entry for a node whose geometry changed.
// The entry must be deleted under its old bounds before they are
// replaced.
func (s *Scene) reindex(id int64) {
	item := s.items[id]
	s.index.Delete(item)
	item.bounds = rtreeRect(item.node.Rect())
	s.index.Insert(item)
}

// Remove deletes the node with the given id. Returns false (no-op) when
// the id is missing.
func (s *Scene) Remove(id int64) bool {
	_, ok := s.nodes[id]
	if !ok {
		return false
	}
	s.index.Delete(s.items[id])
	delete(s.items, id)
	delete(s.nodes, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.notify()
	return true
}

// BoundingBox returns the world-space bounds of the whole scene. The
// second return value is false for an empty scene.
func (s *Scene) BoundingBox() (Rect, bool) {
	return BoundingBox(s.Nodes())
}

// DepthGroup is one depth layer's slice of nodes.
type DepthGroup struct {
	Z     int
	Nodes []*Node
}

// GroupByDepth returns the scene's nodes grouped by depth layer,
// ascending by z (background first). This is both the rendering order
// and the order the obstruction planner walks.
func (s *Scene) GroupByDepth() []DepthGroup {
	byZ := make(map[int][]*Node)
	for _, id := range s.order {
		n := s.nodes[id]
		byZ[n.Z] = append(byZ[n.Z], n)
	}
	zs := make([]int, 0, len(byZ))
	for z := range byZ {
		zs = append(zs, z)
	}
	sort.Ints(zs)

	groups := make([]DepthGroup, 0, len(zs))
	for _, z := range zs {
		groups = append(groups, DepthGroup{Z: z, Nodes: byZ[z]})
	}
	return groups
}

// NodesIntersecting returns all nodes whose world rect intersects the
// query rect, across every depth layer. Backed by the spatial index.
func (s *Scene) NodesIntersecting(r Rect) []*Node {
	hits := s.index.SearchIntersect(rtreeRect(r))
	out := make([]*Node, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*sceneItem).node)
	}
	return out
}

// OnChange registers a listener fired after every committed mutation.
// Listeners must not mutate the scene reentrantly.
func (s *Scene) OnChange(fn func()) {
	s.listeners = append(s.listeners, fn)
}

func (s *Scene) notify() {
	for _, fn := range s.listeners {
		fn()
	}
}
