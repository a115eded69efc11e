package grid

import (
	"errors"
	"math"
)

// State represents the traversal state of a grid cell
type State string

const (
	Empty    State = "EMPTY"
	Obstacle State = "OBSTACLE"
	Start    State = "START"
	End      State = "END"
	Visited  State = "VISITED"
	Path     State = "PATH"
)

var (
	ErrMalformedGrid = errors.New("malformed grid")
	ErrOutOfBounds   = errors.New("coordinate out of bounds")
)

// Infinity is the distance of a cell no path has reached yet.
var Infinity = math.Inf(1)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case Empty, Obstacle, Start, End, Visited, Path:
		return true
	}
	return false
}

// Passable reports whether a search may enter a cell in this state.
func (s State) Passable() bool {
	return s != Obstacle
}

// Coord identifies a cell by row and column
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// CellView is the algorithm-free snapshot of a cell exchanged with callers
type CellView struct {
	Row  int   `json:"row"`
	Col  int   `json:"col"`
	Type State `json:"type"`
}

// Coord returns the identity of the viewed cell.
func (v CellView) Coord() Coord {
	return Coord{Row: v.Row, Col: v.Col}
}

// Cell is a working cell owned by one search. Identity is Coord only;
// the remaining fields are scratch state reset by Load.
type Cell struct {
	Coord
	State     State
	Distance  float64
	Finalized bool

	predecessor    Coord
	hasPredecessor bool
}

// Predecessor returns the coordinate this cell was last relaxed from.
func (c *Cell) Predecessor() (Coord, bool) {
	return c.predecessor, c.hasPredecessor
}

// SetPredecessor records the cell a shorter path arrived from.
func (c *Cell) SetPredecessor(from Coord) {
	c.predecessor = from
	c.hasPredecessor = true
}

// View returns the cell's identity tagged with the given state.
func (c *Cell) View(state State) CellView {
	return CellView{Row: c.Row, Col: c.Col, Type: state}
}

func (c *Cell) reset() {
	c.Distance = Infinity
	c.Finalized = false
	c.predecessor = Coord{}
	c.hasPredecessor = false
}
