// Package grid provides the problem model for grid shortest-path searches.
//
// The grid package implements:
//   - Cell states (EMPTY, OBSTACLE, START, END, VISITED, PATH)
//   - Coordinate identity and bounds checks
//   - Fixed-order orthogonal neighbor iteration
//   - Text layout parsing and rendering
//
// Core Types:
//
// Coord is the (row, col) identity of a cell and the only basis of
// equality. Cell carries the per-search scratch fields (distance,
// finalized flag, predecessor coordinate). Grid owns a rectangular
// matrix of cells; it is built fresh for every search and never shared.
//
// Usage:
//
//	layout, err := grid.ParseLayout([]string{
//		"S..",
//		".#.",
//		"..E",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cell, err := layout.Grid.Locate(grid.Coord{Row: 1, Col: 2})
//	for n := range layout.Grid.Neighbors(cell) {
//		fmt.Println(n.Coord, n.State)
//	}
//
// Errors:
//
// Construction fails with ErrMalformedGrid when the grid is empty, rows
// differ in length, or a cell type is unknown. Locate fails with
// ErrOutOfBounds. Both are wrapped with detail; match them with errors.Is.
package grid
