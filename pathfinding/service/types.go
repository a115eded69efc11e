package service

import (
	"github.com/wricardo/gridpath/pathfinding/grid"
	"github.com/wricardo/gridpath/pathfinding/search"
)

const (
	MessagePathFound = "Path found successfully!"
	MessageNoPath    = "No path found."
)

// FindPathRequest carries a grid either as cells or as a text layout
type FindPathRequest struct {
	Grid   [][]grid.CellView `json:"grid,omitempty"`
	Layout []string          `json:"layout,omitempty"`
	Start  *grid.Coord       `json:"start,omitempty"`
	End    *grid.Coord       `json:"end,omitempty"`
	// Channel names the websocket channel the trace is broadcast on.
	Channel string `json:"channel,omitempty"`
}

// FindPathResult is the response envelope for a search
type FindPathResult struct {
	ShortestPath       []grid.CellView `json:"shortestPath"`
	VisualizationSteps []search.Step   `json:"visualizationSteps"`
	Message            string          `json:"message"`
	PathFound          bool            `json:"pathFound"`
	Distance           *int            `json:"distance,omitempty"` // nil when no path exists
	FinalizedCells     int             `json:"finalizedCells"`
	Rows               int             `json:"rows"`
	Cols               int             `json:"cols"`
	Start              grid.Coord      `json:"start"`
	End                grid.Coord      `json:"end"`
	Preset             string          `json:"preset,omitempty"`
	Channel            string          `json:"channel,omitempty"`

	// Rendered is the grid drawn as layout rows with the path marked.
	Rendered []string `json:"rendered,omitempty"`
}

// Path returns the coordinates of the shortest path
func (r *FindPathResult) Path() []grid.Coord {
	out := make([]grid.Coord, len(r.ShortestPath))
	for i, v := range r.ShortestPath {
		out[i] = v.Coord()
	}
	return out
}

// PresetDetail is a preset expanded into cells for clients that draw it
type PresetDetail struct {
	PresetID    string            `json:"preset_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Layout      []string          `json:"layout"`
	Grid        [][]grid.CellView `json:"grid"`
	Start       grid.Coord        `json:"start"`
	End         grid.Coord        `json:"end"`
	Rows        int               `json:"rows"`
	Cols        int               `json:"cols"`
}
