// Package strata is the spatial engine for an infinite, depth-layered 2D
// canvas of rectangular nodes ("boxes"), viewed through a pannable and
// zoomable camera.
//
// Strata contains no rendering code. It owns the math and state a canvas
// UI needs: depth/parallax projection, camera animation with cancellation
// semantics, obstruction-aware focus planning, and collision-free node
// placement. A rendering layer (DOM, canvas, [Ebitengine], ...) consumes
// the engine's state and drives it once per frame.
//
// # Quick start
//
//	engine := strata.NewEngine(strata.EngineConfig{})
//	node, err := engine.AddNode(strata.NodeSpec{
//		X: 500, Y: 500, Width: 300, Height: 200, Z: 0,
//	}, true)
//	engine.FocusOnNode(node.ID, 800, 600)
//	// host render loop:
//	engine.Tick(nowMs)
//
// # Depth model
//
// Every node lives on an integer depth layer. z=0 is the screen surface;
// negative layers recede into the background, shrinking
// ([IntrinsicScale]) and panning more slowly ([ParallaxFactor]) than the
// reference plane. The shared projection used by the camera, the
// obstruction planner, and any renderer is [ProjectRect].
//
// # Concurrency
//
// Strata is single-threaded by design: all mutation and Tick calls happen
// on one logical thread (the host's render loop). No locks, no atomics.
// The only goroutine the package owns is the debounced persistence
// saver's timer, which never touches engine state.
//
// See examples/viewer for a minimal [Ebitengine] front end.
//
// [Ebitengine]: https://ebitengine.org
package strata
