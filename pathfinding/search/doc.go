// Package search implements the shortest-path engine for grids.
//
// FindShortestPath runs Dijkstra's algorithm with a uniform edge cost of 1
// over a private copy of the caller's grid. Cells are finalized in
// non-decreasing distance order; the frontier is a binary heap without
// decrease-key, so a relaxation always pushes a new entry and stale entries
// for already finalized cells are skipped when popped. Ties between equal
// distances are served in insertion order, which together with the fixed
// neighbor order (north, south, west, east) makes every path and trace
// reproducible.
//
// Trace:
//
// Every observable event is appended to Result.Trace:
//   - visiting: a cell was finalized (tagged VISITED)
//   - updating_distance: a neighbor received a shorter tentative distance
//   - path_found: the full path, each cell tagged PATH
//
// Usage:
//
//	layout, _ := grid.ParseLayout([]string{"S.#", "..E"})
//	res, err := search.FindShortestPath(layout.Grid, layout.Start, layout.End)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if res.Found {
//		fmt.Println(res.Path, len(res.Trace))
//	}
//
// The function keeps no state between calls and is safe to run from many
// goroutines at once.
package search
