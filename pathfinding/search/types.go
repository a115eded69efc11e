package search

import (
	"errors"

	"github.com/wricardo/gridpath/pathfinding/grid"
)

// Action names the kind of event a trace step records
type Action string

const (
	ActionVisiting         Action = "visiting"
	ActionUpdatingDistance Action = "updating_distance"
	ActionPathFound        Action = "path_found"
)

var (
	// ErrObstacleEndpoint is returned when start or end lands on an obstacle.
	ErrObstacleEndpoint = errors.New("endpoint is an obstacle")
	// ErrBrokenChain means predecessor links did not lead back to the start.
	ErrBrokenChain = errors.New("predecessor chain does not reach start")
)

// DistanceUpdate records a new tentative distance for one cell
type DistanceUpdate struct {
	grid.CellView
	Distance float64 `json:"distance"`
}

// Step is one entry of the visualization trace
type Step struct {
	Action  Action           `json:"action"`
	Visited []grid.CellView  `json:"visitedNodes"`
	Updated []DistanceUpdate `json:"updatedDistances"`
}

// Result is the outcome of one search
type Result struct {
	// Path runs from start to end inclusive; empty when Found is false.
	Path  []grid.Coord
	Trace []Step
	Found bool
	// Distance is the path cost, or grid.Infinity when no path exists.
	Distance float64
	// Finalized counts cells whose distance became final.
	Finalized int
}

// PathLength returns the number of moves along the path
func (r *Result) PathLength() int {
	if len(r.Path) == 0 {
		return 0
	}
	return len(r.Path) - 1
}

// Count returns how many trace steps carry the given action.
func (r *Result) Count(action Action) int {
	n := 0
	for _, s := range r.Trace {
		if s.Action == action {
			n++
		}
	}
	return n
}
