package strata

import (
	"fmt"
	"math"
)

// Node is a rectangular scene entity: a box with a world-space position,
// a size, and an integer depth layer. Type and Content are opaque to the
// engine and pass through untouched to persistence and renderers.
type Node struct {
	ID     int64
	X, Y   float64
	Width  float64
	Height float64
	Z      int
	Type   string
	Content any
}

// Rect returns the node's world-space rectangle.
func (n *Node) Rect() Rect {
	return Rect{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height}
}

// Center returns the node's world-space center point.
func (n *Node) Center() Vec2 {
	return n.Rect().Center()
}

// NodeSpec describes a node to create. A zero ID asks the engine to
// assign the next free one. X and Y are the preferred position; when
// placement is requested they are the starting point for the search.
type NodeSpec struct {
	ID      int64
	X, Y    float64
	Width   float64
	Height  float64
	Z       int
	Type    string
	Content any
}

// Patch is a partial node update. Nil fields are left unchanged. Content
// replaces the node's content when non-nil.
type Patch struct {
	X, Y    *float64
	Width   *float64
	Height  *float64
	Z       *int
	Type    *string
	Content any
}

// DuplicateIDError is returned when adding a node whose ID already exists
// in the scene.
type DuplicateIDError struct {
	ID int64
}

func (e DuplicateIDError) Error() string {
	return fmt.Sprintf("strata: node id %d already exists", e.ID)
}

// ValidationError is returned when a node spec is rejected outright
// (invalid id or non-finite/non-positive dimensions). Nothing is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("strata: invalid %s: %s", e.Field, e.Reason)
}

// validateSpec rejects specs the engine must not accept. Undersized but
// otherwise valid dimensions are not an error; they clamp later.
func validateSpec(spec NodeSpec) error {
	if spec.ID < 0 {
		return ValidationError{Field: "id", Reason: "must not be negative"}
	}
	if !isFiniteSize(spec.Width) {
		return ValidationError{Field: "width", Reason: "must be finite and positive"}
	}
	if !isFiniteSize(spec.Height) {
		return ValidationError{Field: "height", Reason: "must be finite and positive"}
	}
	if math.IsNaN(spec.X) || math.IsInf(spec.X, 0) || math.IsNaN(spec.Y) || math.IsInf(spec.Y, 0) {
		return ValidationError{Field: "position", Reason: "must be finite"}
	}
	return nil
}

func isFiniteSize(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
