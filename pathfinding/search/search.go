package search

import (
	"fmt"

	"github.com/wricardo/gridpath/pathfinding/grid"
)

// edgeCost is the uniform cost of one orthogonal move.
const edgeCost = 1.0

// FindShortestPath runs Dijkstra's algorithm from start to end over a
// private copy of g and records a visualization trace. g is not modified.
//
// Failing to reach end is reported through Result.Found, not an error.
// Errors are returned only for coordinates outside the grid
// (grid.ErrOutOfBounds) or endpoints on obstacles (ErrObstacleEndpoint).
func FindShortestPath(g *grid.Grid, start, end grid.Coord) (*Result, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: grid is nil", grid.ErrMalformedGrid)
	}
	work := g.Clone()

	source, err := work.Locate(start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	target, err := work.Locate(end)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	if !source.State.Passable() {
		return nil, fmt.Errorf("%w: start (%d,%d)", ErrObstacleEndpoint, start.Row, start.Col)
	}
	if !target.State.Passable() {
		return nil, fmt.Errorf("%w: end (%d,%d)", ErrObstacleEndpoint, end.Row, end.Col)
	}

	result := &Result{
		Path:     []grid.Coord{},
		Trace:    []Step{},
		Distance: grid.Infinity,
	}

	source.Distance = 0
	var open frontier
	open.push(source.Coord, source.Distance)

	for open.len() > 0 {
		at, _ := open.pop()
		current, _ := work.Locate(at)

		// Stale entry left behind by a later, shorter relaxation.
		if current.Finalized {
			continue
		}
		current.Finalized = true
		result.Finalized++
		result.Trace = append(result.Trace, visitingStep(current))

		if current.Coord == target.Coord {
			path, err := reconstructPath(work, source.Coord, target.Coord)
			if err != nil {
				return nil, err
			}
			result.Path = path
			result.Found = true
			result.Distance = current.Distance
			result.Trace = append(result.Trace, pathFoundStep(path))
			return result, nil
		}

		for neighbor := range work.Neighbors(current) {
			if !neighbor.State.Passable() || neighbor.Finalized {
				continue
			}
			candidate := current.Distance + edgeCost
			if candidate >= neighbor.Distance {
				continue
			}
			neighbor.Distance = candidate
			neighbor.SetPredecessor(current.Coord)
			open.push(neighbor.Coord, candidate)
			result.Trace = append(result.Trace, updateStep(neighbor))
		}
	}

	return result, nil
}

func visitingStep(c *grid.Cell) Step {
	return Step{
		Action:  ActionVisiting,
		Visited: []grid.CellView{c.View(grid.Visited)},
		Updated: []DistanceUpdate{},
	}
}

func updateStep(c *grid.Cell) Step {
	return Step{
		Action:  ActionUpdatingDistance,
		Visited: []grid.CellView{},
		Updated: []DistanceUpdate{{CellView: c.View(c.State), Distance: c.Distance}},
	}
}

func pathFoundStep(path []grid.Coord) Step {
	cells := make([]grid.CellView, len(path))
	for i, c := range path {
		cells[i] = grid.CellView{Row: c.Row, Col: c.Col, Type: grid.Path}
	}
	return Step{
		Action:  ActionPathFound,
		Visited: cells,
		Updated: []DistanceUpdate{},
	}
}
