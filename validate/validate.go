// Package validate checks preset JSON files before they are served. It
// checks:
//   - JSON structure and required fields
//   - Grid consistency and allowed characters (default legend plus overrides)
//   - Exactly one start and one end
//   - Solvability: whether the end is reachable from the start
//
// An unsolvable preset is still valid; it gets a warning, since grids with no
// path are useful for showing the "No path found." outcome.
package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/wricardo/gridpath/pathfinding/grid"
	"github.com/wricardo/gridpath/pathfinding/preset"
	"github.com/wricardo/gridpath/pathfinding/search"
)

// ValidationResult captures the outcome of validating a single file.
// Errors make the file invalid; Warnings and Info never do.
type ValidationResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Solvable bool     `json:"solvable"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
	Info     []string `json:"info,omitempty"`
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// ValidateFile loads and validates a single preset file.
func ValidateFile(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var p preset.Preset
	if err := json.Unmarshal(data, &p); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	Preset(&p, &result)
	return result
}

// Preset validates an already decoded preset into result.
func Preset(p *preset.Preset, result *ValidationResult) {
	if strings.TrimSpace(p.Name) == "" {
		result.fail("Name is required")
	}
	if len(p.Layout) == 0 {
		result.fail("Layout is empty")
		return
	}

	chars := make(map[rune]grid.State, len(grid.DefaultLegend)+len(p.Legend))
	for k, v := range grid.DefaultLegend {
		r, _ := utf8.DecodeRuneInString(k)
		chars[r] = v
	}
	for k, v := range p.Legend {
		if utf8.RuneCountInString(k) != 1 {
			result.fail("Legend key %q must be a single character", k)
			continue
		}
		if !v.Valid() {
			result.fail("Legend entry %q has unknown type %q", k, v)
			continue
		}
		r, _ := utf8.DecodeRuneInString(k)
		chars[r] = v
	}

	width := -1
	counts := map[grid.State]int{}
	for i, row := range p.Layout {
		n := utf8.RuneCountInString(row)
		if width == -1 {
			width = n
		} else if n != width {
			result.fail("Inconsistent grid width at row %d: expected %d, got %d", i, width, n)
		}

		j := 0
		for _, ch := range row {
			state, ok := chars[ch]
			if !ok {
				result.fail("Invalid character '%c' at position [%d,%d]", ch, i, j)
			} else {
				counts[state]++
			}
			j++
		}
	}

	if counts[grid.Start] != 1 {
		result.fail("Must have exactly 1 start, got %d", counts[grid.Start])
	}
	if counts[grid.End] != 1 {
		result.fail("Must have exactly 1 end, got %d", counts[grid.End])
	}

	if !result.Valid {
		return
	}

	// Anything the checks above missed surfaces here.
	if err := preset.Validate(p); err != nil {
		result.fail("%v", err)
		return
	}

	checkSolvable(p, result)

	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", p.Name),
		fmt.Sprintf("✓ Grid: %dx%d", len(p.Layout), width),
		fmt.Sprintf("✓ Obstacles: %d", counts[grid.Obstacle]),
	)
}

// checkSolvable runs the search and records the path length, or a warning
// when the end cannot be reached.
func checkSolvable(p *preset.Preset, result *ValidationResult) {
	layout, err := p.Parse()
	if err != nil {
		result.fail("%v", err)
		return
	}

	res, err := search.FindShortestPath(layout.Grid, layout.Start, layout.End)
	if err != nil {
		result.fail("Search failed: %v", err)
		return
	}

	if !res.Found {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("No path from start (%d,%d) to end (%d,%d); %d cells reachable",
				layout.Start.Row, layout.Start.Col, layout.End.Row, layout.End.Col, res.Finalized))
		return
	}

	result.Solvable = true
	result.Info = append(result.Info, fmt.Sprintf("✓ Shortest path: %d moves", res.PathLength()))
}

// ValidateDir validates every *.json file in dir, sorted by file name.
func ValidateDir(dir string) ([]ValidationResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("preset directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("finding preset files: %w", err)
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, ValidateFile(file))
	}
	return results, nil
}

// Report prints a concise report of results to w and reports whether every
// file was valid.
func Report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
			for _, warning := range result.Warnings {
				fmt.Fprintln(w, "  ⚠️  "+warning)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "⚠️  No preset files found")
	case allValid:
		fmt.Fprintln(w, "✅ All presets are valid!")
	default:
		fmt.Fprintln(w, "❌ Some presets have errors")
	}
	return allValid
}
