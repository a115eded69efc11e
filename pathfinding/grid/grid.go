package grid

import (
	"fmt"
	"iter"
)

// Neighbor order is north, south, west, east. It decides frontier
// tie-breaks and therefore the exact trace; do not reorder.
var directions = [4]struct{ dr, dc int }{
	{-1, 0}, // North
	{1, 0},  // South
	{0, -1}, // West
	{0, 1},  // East
}

// Grid is a rectangular working copy of a problem instance
type Grid struct {
	cells [][]*Cell
	rows  int
	cols  int
}

// Load builds a grid from caller cell views. Each view's row and col must
// match its slice position. Only the state is kept and every algorithm
// field starts reset.
func Load(rows [][]CellView) (*Grid, error) {
	states := make([][]State, len(rows))
	for r, row := range rows {
		states[r] = make([]State, len(row))
		for c, v := range row {
			if v.Row != r || v.Col != c {
				return nil, fmt.Errorf("%w: cell at (%d,%d) claims to be (%d,%d)", ErrMalformedGrid, r, c, v.Row, v.Col)
			}
			states[r][c] = v.Type
		}
	}
	return FromStates(states)
}

// FromStates builds a grid from a rectangular matrix of states.
func FromStates(states [][]State) (*Grid, error) {
	if len(states) == 0 || len(states[0]) == 0 {
		return nil, fmt.Errorf("%w: grid must have at least one row and one column", ErrMalformedGrid)
	}
	rows, cols := len(states), len(states[0])
	for r, row := range states {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrMalformedGrid, r, len(row), cols)
		}
	}

	g := &Grid{
		cells: make([][]*Cell, rows),
		rows:  rows,
		cols:  cols,
	}
	for r := 0; r < rows; r++ {
		g.cells[r] = make([]*Cell, cols)
		for c := 0; c < cols; c++ {
			state := states[r][c]
			if state == "" {
				state = Empty
			}
			if !state.Valid() {
				return nil, fmt.Errorf("%w: unknown cell type %q at (%d,%d)", ErrMalformedGrid, state, r, c)
			}
			cell := &Cell{Coord: Coord{Row: r, Col: c}, State: state}
			cell.reset()
			g.cells[r][c] = cell
		}
	}
	return g, nil
}

// Clone returns a deep copy with all algorithm fields reset.
func (g *Grid) Clone() *Grid {
	out := &Grid{
		cells: make([][]*Cell, g.rows),
		rows:  g.rows,
		cols:  g.cols,
	}
	for r, row := range g.cells {
		out.cells[r] = make([]*Cell, g.cols)
		for c, cell := range row {
			cp := &Cell{Coord: cell.Coord, State: cell.State}
			cp.reset()
			out.cells[r][c] = cp
		}
	}
	return out
}

// Rows returns the number of rows
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns
func (g *Grid) Cols() int { return g.cols }

// Size returns the total number of cells
func (g *Grid) Size() int { return g.rows * g.cols }

// InBounds reports whether c lies inside [0,Rows)x[0,Cols).
func (g *Grid) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < g.rows && c.Col >= 0 && c.Col < g.cols
}

// Locate resolves a coordinate to the grid's own live cell.
func (g *Grid) Locate(c Coord) (*Cell, error) {
	if !g.InBounds(c) {
		return nil, fmt.Errorf("%w: (%d,%d) outside %dx%d grid", ErrOutOfBounds, c.Row, c.Col, g.rows, g.cols)
	}
	return g.cells[c.Row][c.Col], nil
}

// Neighbors yields up to four orthogonal neighbors of c, skipping
// positions outside the grid.
func (g *Grid) Neighbors(c *Cell) iter.Seq[*Cell] {
	return func(yield func(*Cell) bool) {
		for _, d := range directions {
			n := Coord{Row: c.Row + d.dr, Col: c.Col + d.dc}
			if !g.InBounds(n) {
				continue
			}
			if !yield(g.cells[n.Row][n.Col]) {
				return
			}
		}
	}
}

// Views snapshots the grid as caller-facing cell views.
func (g *Grid) Views() [][]CellView {
	out := make([][]CellView, g.rows)
	for r, row := range g.cells {
		out[r] = make([]CellView, g.cols)
		for c, cell := range row {
			out[r][c] = cell.View(cell.State)
		}
	}
	return out
}

// Count returns how many cells are in the given state.
func (g *Grid) Count(state State) int {
	n := 0
	for _, row := range g.cells {
		for _, cell := range row {
			if cell.State == state {
				n++
			}
		}
	}
	return n
}

// Find returns the coordinates of every cell in the given state, row-major.
func (g *Grid) Find(state State) []Coord {
	var out []Coord
	for _, row := range g.cells {
		for _, cell := range row {
			if cell.State == state {
				out = append(out, cell.Coord)
			}
		}
	}
	return out
}

// ManhattanDistance calculates the Manhattan distance between two coordinates
func ManhattanDistance(from, to Coord) int {
	dr := from.Row - to.Row
	if dr < 0 {
		dr = -dr
	}
	dc := from.Col - to.Col
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}
