package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/gridpath/pathfinding/grid"
	"github.com/wricardo/gridpath/pathfinding/preset"
)

func TestAnalyzePreset(t *testing.T) {
	p := &preset.Preset{
		Name:   "Center Block",
		Layout: []string{"S..", ".#.", "..E"},
	}

	a, err := analyzePreset("center_block", p)
	require.NoError(t, err)

	assert.Equal(t, "center_block", a.ID)
	assert.Equal(t, 3, a.Rows)
	assert.Equal(t, 3, a.Cols)
	assert.Equal(t, 1, a.Obstacles)
	assert.Equal(t, 8, a.Open)
	assert.Equal(t, grid.Coord{Row: 2, Col: 2}, a.End)
	assert.True(t, a.Found)
	assert.Equal(t, 4, a.PathLength)
	assert.Equal(t, 4, a.Manhattan)
	assert.Equal(t, 0, a.Detour())
	assert.Equal(t, 8, a.Finalized)
	assert.Equal(t, 8, a.Visiting)
	assert.Equal(t, 7, a.Updates)
	assert.InDelta(t, 1.0, a.Explored(), 1e-9)
	assert.Equal(t, []string{"S..", "*#.", "**E"}, a.Drawing)
}

func TestAnalyzePreset_Detour(t *testing.T) {
	p := &preset.Preset{
		Name: "Wall",
		Layout: []string{
			"S#E",
			".#.",
			"...",
		},
	}

	a, err := analyzePreset("wall", p)
	require.NoError(t, err)
	assert.Equal(t, 6, a.PathLength)
	assert.Equal(t, 2, a.Manhattan)
	assert.Equal(t, 4, a.Detour())
}

func TestAnalyzePreset_NoPath(t *testing.T) {
	a, err := analyzePreset("blocked", &preset.Preset{Name: "Blocked", Layout: []string{"S.#E"}})
	require.NoError(t, err)

	assert.False(t, a.Found)
	assert.Equal(t, 0, a.PathLength)
	assert.Equal(t, 0, a.Detour())
	assert.Equal(t, 2, a.Finalized)

	var buf bytes.Buffer
	printAnalysis(&buf, a)
	assert.Contains(t, buf.String(), "No path: only 2 cells reachable")
}

func TestAnalyzePreset_Invalid(t *testing.T) {
	_, err := analyzePreset("bad", &preset.Preset{Name: "Bad", Layout: []string{"S.."}})
	assert.ErrorIs(t, err, grid.ErrMalformedGrid)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "line.json"),
		[]byte(`{"name": "Line", "layout": ["S...E"]}`), 0644))

	var buf bytes.Buffer
	require.NoError(t, run(&buf, dir, nil))

	out := buf.String()
	assert.Contains(t, out, "=== Analyzing line ===")
	assert.Contains(t, out, "Grid Size: 1 x 5")
	assert.Contains(t, out, "✅ Shortest path: 4 moves")
	assert.Contains(t, out, "Explored: 5/5 open cells (100%)")
	assert.Contains(t, out, "   S***E\n")

	buf.Reset()
	require.NoError(t, run(&buf, dir, []string{"missing"}))
	assert.Contains(t, buf.String(), "Error loading preset")
}

func TestRun_MissingDir(t *testing.T) {
	err := run(&bytes.Buffer{}, filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}
