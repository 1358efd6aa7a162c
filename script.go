package strata

import (
	"encoding/json"
	"fmt"
)

// scriptStep represents a single command in a script.
type scriptStep struct {
	Action string `json:"action"`

	ID      int64   `json:"id,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Width   float64 `json:"width,omitempty"`
	Height  float64 `json:"height,omitempty"`
	Z       int     `json:"z,omitempty"`
	Type    string  `json:"type,omitempty"`
	DX      float64 `json:"dx,omitempty"`
	DY      float64 `json:"dy,omitempty"`
	Factor  float64 `json:"factor,omitempty"`
	Delta   int     `json:"delta,omitempty"`
	Frames  int     `json:"frames,omitempty"`
	Avoid   bool    `json:"avoid,omitempty"`
}

// commandScript is the top-level JSON structure.
type commandScript struct {
	Steps []scriptStep `json:"steps"`
}

// CommandScript replays a JSON sequence of engine commands frame by
// frame, driving the engine headlessly for integration tests and tooling.
//
// Supported actions: addNode, queueNode, pan, zoomAt, focus, unfocus,
// fullscreen, exitFullscreen, moveDepth, delete, tick.
type CommandScript struct {
	steps []scriptStep
}

// LoadCommandScript parses a JSON command script.
func LoadCommandScript(jsonData []byte) (*CommandScript, error) {
	var script commandScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse command script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse command script: no steps")
	}
	return &CommandScript{steps: script.Steps}, nil
}

// Run executes the script against an engine, using the given viewport
// size for focus commands. "tick" steps advance the clock at 60 Hz for
// the requested number of frames (default 1). The first failing step
// aborts the run.
func (cs *CommandScript) Run(e *Engine, viewportW, viewportH float64) error {
	const frameMs = 1000.0 / 60.0
	nowMs := 0.0

	for i, step := range cs.steps {
		switch step.Action {
		case "addNode":
			spec := NodeSpec{
				ID: step.ID, X: step.X, Y: step.Y,
				Width: step.Width, Height: step.Height,
				Z: step.Z, Type: step.Type,
			}
			if _, err := e.AddNode(spec, step.Avoid); err != nil {
				return fmt.Errorf("step %d addNode: %w", i, err)
			}
		case "queueNode":
			spec := NodeSpec{
				ID: step.ID, X: step.X, Y: step.Y,
				Width: step.Width, Height: step.Height,
				Z: step.Z, Type: step.Type,
			}
			if err := e.QueueNode(spec); err != nil {
				return fmt.Errorf("step %d queueNode: %w", i, err)
			}
		case "pan":
			e.Pan(step.DX, step.DY)
		case "zoomAt":
			e.ZoomAt(step.X, step.Y, step.Factor)
		case "focus":
			if _, ok := e.FocusOnNode(step.ID, viewportW, viewportH); !ok {
				return fmt.Errorf("step %d focus: node %d not found", i, step.ID)
			}
		case "unfocus":
			e.Unfocus()
		case "fullscreen":
			if !e.EnterFullscreen(step.ID, viewportW, viewportH) {
				return fmt.Errorf("step %d fullscreen: node %d not found", i, step.ID)
			}
		case "exitFullscreen":
			e.ExitFullscreen()
		case "moveDepth":
			if !e.MoveDepth(step.ID, step.Delta) {
				return fmt.Errorf("step %d moveDepth: node %d not found", i, step.ID)
			}
		case "delete":
			if !e.DeleteNode(step.ID) {
				return fmt.Errorf("step %d delete: node %d not found", i, step.ID)
			}
		case "tick":
			frames := step.Frames
			if frames <= 0 {
				frames = 1
			}
			for f := 0; f < frames; f++ {
				nowMs += frameMs
				e.Tick(nowMs)
			}
		default:
			return fmt.Errorf("step %d: unknown action %q", i, step.Action)
		}
	}
	return nil
}
