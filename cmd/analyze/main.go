// Command analyze prints quick, human-readable statistics about the preset
// grids in a directory. For each preset it runs the search and summarizes
// dimensions, obstacle density, path length and how much of the grid the
// search had to explore before reaching the end.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/gridpath/pathfinding/grid"
	"github.com/wricardo/gridpath/pathfinding/preset"
	"github.com/wricardo/gridpath/pathfinding/search"
)

// Analysis holds the statistics reported for a single preset.
type Analysis struct {
	ID         string
	Name       string
	Rows, Cols int
	Obstacles  int
	Open       int
	Start, End grid.Coord
	Found      bool
	PathLength int
	Finalized  int
	Visiting   int
	Updates    int
	Manhattan  int
	Drawing    []string // layout rows with the path marked
}

// Explored is the share of open cells finalized by the search.
func (a *Analysis) Explored() float64 {
	if a.Open == 0 {
		return 0
	}
	return float64(a.Finalized) / float64(a.Open)
}

// Detour is how many moves the path needs beyond the Manhattan distance.
func (a *Analysis) Detour() int {
	if !a.Found {
		return 0
	}
	return a.PathLength - a.Manhattan
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Print search statistics for preset grids",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "presets",
				Usage:   "Directory containing preset JSON files",
				Sources: cli.EnvVars("PRESET_DIR"),
			},
		},
		ArgsUsage: "[preset...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(os.Stdout, cmd.String("dir"), cmd.Args().Slice())
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// run analyzes the named presets, or every valid preset in dir when names is
// empty.
func run(w io.Writer, dir string, names []string) error {
	manager, err := preset.NewManager(dir)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		infos, err := manager.ListPresets()
		if err != nil {
			return err
		}
		for _, info := range infos {
			names = append(names, info.PresetID)
		}
	}

	for _, name := range names {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", name)

		p, err := manager.LoadPreset(name)
		if err != nil {
			log.WithError(err).WithField("preset", name).Warn("skipping preset")
			fmt.Fprintf(w, "Error loading preset: %v\n", err)
			continue
		}

		a, err := analyzePreset(name, p)
		if err != nil {
			fmt.Fprintf(w, "Error analyzing preset: %v\n", err)
			continue
		}
		printAnalysis(w, a)
	}
	return nil
}

func analyzePreset(id string, p *preset.Preset) (*Analysis, error) {
	layout, err := p.Parse()
	if err != nil {
		return nil, err
	}

	res, err := search.FindShortestPath(layout.Grid, layout.Start, layout.End)
	if err != nil {
		return nil, err
	}

	g := layout.Grid
	obstacles := g.Count(grid.Obstacle)
	return &Analysis{
		ID:         id,
		Name:       p.Name,
		Rows:       g.Rows(),
		Cols:       g.Cols(),
		Obstacles:  obstacles,
		Open:       g.Size() - obstacles,
		Start:      layout.Start,
		End:        layout.End,
		Found:      res.Found,
		PathLength: res.PathLength(),
		Finalized:  res.Finalized,
		Visiting:   res.Count(search.ActionVisiting),
		Updates:    res.Count(search.ActionUpdatingDistance),
		Manhattan:  grid.ManhattanDistance(layout.Start, layout.End),
		Drawing:    layout.Render(res.Path),
	}, nil
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.Rows, a.Cols)
	fmt.Fprintf(w, "Obstacles: %d (%.0f%%)\n", a.Obstacles, 100*float64(a.Obstacles)/float64(a.Rows*a.Cols))
	fmt.Fprintf(w, "Start: (%d, %d)  End: (%d, %d)  Manhattan: %d\n",
		a.Start.Row, a.Start.Col, a.End.Row, a.End.Col, a.Manhattan)
	fmt.Fprintf(w, "Trace: %d visiting, %d updating_distance\n", a.Visiting, a.Updates)
	fmt.Fprintf(w, "Explored: %d/%d open cells (%.0f%%)\n", a.Finalized, a.Open, 100*a.Explored())

	if !a.Found {
		fmt.Fprintf(w, "⚠️  No path: only %d cells reachable from the start\n", a.Finalized)
		return
	}

	fmt.Fprintf(w, "✅ Shortest path: %d moves", a.PathLength)
	if d := a.Detour(); d > 0 {
		fmt.Fprintf(w, " (%d over Manhattan)", d)
	}
	fmt.Fprintln(w)
	for _, row := range a.Drawing {
		fmt.Fprintf(w, "   %s\n", row)
	}
	if a.Explored() > 0.9 {
		fmt.Fprintln(w, "   Search explored nearly the whole grid")
	}
}
