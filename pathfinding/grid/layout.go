package grid

import (
	"fmt"
	"unicode/utf8"
)

// DefaultLegend maps layout characters to cell states
var DefaultLegend = map[string]State{
	".": Empty,
	"#": Obstacle,
	"S": Start,
	"E": End,
}

// PathMarker is drawn over path cells by Render.
const PathMarker = '*'

// Layout is a grid parsed from text rows together with its endpoints
type Layout struct {
	Grid  *Grid
	Start Coord
	End   Coord
}

// ParseLayout parses rows of layout characters using DefaultLegend.
func ParseLayout(lines []string) (*Layout, error) {
	return ParseLayoutWithLegend(lines, nil)
}

// ParseLayoutWithLegend parses rows of layout characters. Entries in legend
// override DefaultLegend. The layout must contain exactly one start and one end.
func ParseLayoutWithLegend(lines []string, legend map[string]State) (*Layout, error) {
	chars := make(map[string]State, len(DefaultLegend)+len(legend))
	for k, v := range DefaultLegend {
		chars[k] = v
	}
	for k, v := range legend {
		if !v.Valid() {
			return nil, fmt.Errorf("%w: legend[%q] has unknown type %q", ErrMalformedGrid, k, v)
		}
		chars[k] = v
	}

	states := make([][]State, len(lines))
	var starts, ends []Coord
	for r, line := range lines {
		states[r] = make([]State, 0, utf8.RuneCountInString(line))
		c := 0
		for _, ch := range line {
			state, ok := chars[string(ch)]
			if !ok {
				return nil, fmt.Errorf("%w: invalid character '%c' at row %d, col %d", ErrMalformedGrid, ch, r, c)
			}
			switch state {
			case Start:
				starts = append(starts, Coord{Row: r, Col: c})
			case End:
				ends = append(ends, Coord{Row: r, Col: c})
			}
			states[r] = append(states[r], state)
			c++
		}
	}

	g, err := FromStates(states)
	if err != nil {
		return nil, err
	}
	if len(starts) != 1 {
		return nil, fmt.Errorf("%w: layout must contain exactly one start, got %d", ErrMalformedGrid, len(starts))
	}
	if len(ends) != 1 {
		return nil, fmt.Errorf("%w: layout must contain exactly one end, got %d", ErrMalformedGrid, len(ends))
	}

	return &Layout{Grid: g, Start: starts[0], End: ends[0]}, nil
}

// Render draws the layout with path cells marked.
func (l *Layout) Render(path []Coord) []string {
	return Render(l.Grid, path)
}

// Render draws g as layout rows, marking path cells that are not
// endpoints with PathMarker.
func Render(g *Grid, path []Coord) []string {
	onPath := make(map[Coord]bool, len(path))
	for _, c := range path {
		onPath[c] = true
	}

	out := make([]string, g.rows)
	for r, row := range g.cells {
		buf := make([]rune, 0, g.cols)
		for _, cell := range row {
			ch := stateChar(cell.State)
			if onPath[cell.Coord] && cell.State != Start && cell.State != End {
				ch = PathMarker
			}
			buf = append(buf, ch)
		}
		out[r] = string(buf)
	}
	return out
}

func stateChar(s State) rune {
	switch s {
	case Obstacle:
		return '#'
	case Start:
		return 'S'
	case End:
		return 'E'
	case Path:
		return PathMarker
	}
	return '.'
}
