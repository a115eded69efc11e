package search

import (
	"fmt"
	"slices"

	"github.com/wricardo/gridpath/pathfinding/grid"
)

// reconstructPath follows predecessor coordinates from end back to start
// and returns the path in start-to-end order. The start appears exactly
// once, at index 0; any other shape is reported as ErrBrokenChain.
func reconstructPath(g *grid.Grid, start, end grid.Coord) ([]grid.Coord, error) {
	path := []grid.Coord{end}
	current := end

	// A simple path visits each cell at most once.
	for hops := 0; current != start; hops++ {
		if hops >= g.Size() {
			return nil, fmt.Errorf("%w: cycle after %d hops", ErrBrokenChain, hops)
		}
		cell, err := g.Locate(current)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBrokenChain, err)
		}
		prev, ok := cell.Predecessor()
		if !ok {
			return nil, fmt.Errorf("%w: (%d,%d) has no predecessor", ErrBrokenChain, current.Row, current.Col)
		}
		path = append(path, prev)
		current = prev
	}

	slices.Reverse(path)

	if path[0] != start || slices.Index(path[1:], start) >= 0 {
		return nil, fmt.Errorf("%w: start must appear once at the head of the path", ErrBrokenChain)
	}
	return path, nil
}
