package validate

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/gridpath/pathfinding/grid"
	"github.com/wricardo/gridpath/pathfinding/preset"
)

func writePreset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write preset: %v", err)
	}
	return path
}

func hasMessage(messages []string, substr string) bool {
	for _, m := range messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestValidateFile_ValidPreset(t *testing.T) {
	path := writePreset(t, t.TempDir(), "center.json", `{
		"name": "Center Block",
		"description": "Test preset",
		"layout": ["S..", ".#.", "..E"]
	}`)

	result := ValidateFile(path)
	if !result.Valid {
		t.Fatalf("Expected valid preset, but got errors: %v", result.Errors)
	}
	if !result.Solvable {
		t.Error("Expected preset to be solvable")
	}
	if result.File != "center.json" {
		t.Errorf("Expected file name center.json, got %s", result.File)
	}
	if !hasMessage(result.Info, "✓ Shortest path: 4 moves") {
		t.Errorf("Expected path length in info, got %v", result.Info)
	}
	if !hasMessage(result.Info, "✓ Grid: 3x3") {
		t.Errorf("Expected grid size in info, got %v", result.Info)
	}
	if !hasMessage(result.Info, "✓ Obstacles: 1") {
		t.Errorf("Expected obstacle count in info, got %v", result.Info)
	}
}

func TestValidateFile_InvalidJSON(t *testing.T) {
	path := writePreset(t, t.TempDir(), "broken.json", `{"name": "test", invalid json}`)

	result := ValidateFile(path)
	if result.Valid {
		t.Error("Expected invalid JSON to fail validation")
	}
	if !hasMessage(result.Errors, "Invalid JSON") {
		t.Errorf("Expected 'Invalid JSON' error, got %v", result.Errors)
	}
}

func TestValidateFile_MissingFile(t *testing.T) {
	result := ValidateFile(filepath.Join(t.TempDir(), "missing.json"))
	if result.Valid {
		t.Error("Expected missing file to fail validation")
	}
	if !hasMessage(result.Errors, "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}
}

func TestPreset_Errors(t *testing.T) {
	tests := []struct {
		name   string
		preset preset.Preset
		want   string
	}{
		{
			name:   "missing name",
			preset: preset.Preset{Layout: []string{"SE"}},
			want:   "Name is required",
		},
		{
			name:   "empty layout",
			preset: preset.Preset{Name: "Empty"},
			want:   "Layout is empty",
		},
		{
			name:   "ragged rows",
			preset: preset.Preset{Name: "Ragged", Layout: []string{"S..", ".E"}},
			want:   "Inconsistent grid width at row 1: expected 3, got 2",
		},
		{
			name:   "unknown character",
			preset: preset.Preset{Name: "Bad", Layout: []string{"S?E"}},
			want:   "Invalid character '?' at position [0,1]",
		},
		{
			name:   "two starts",
			preset: preset.Preset{Name: "Two", Layout: []string{"S.S", "..E"}},
			want:   "Must have exactly 1 start, got 2",
		},
		{
			name:   "no end",
			preset: preset.Preset{Name: "Open", Layout: []string{"S.."}},
			want:   "Must have exactly 1 end, got 0",
		},
		{
			name:   "unknown legend type",
			preset: preset.Preset{Name: "Legend", Layout: []string{"SWE"}, Legend: map[string]grid.State{"W": "WATER"}},
			want:   `Legend entry "W" has unknown type "WATER"`,
		},
		{
			name:   "multi-character legend key",
			preset: preset.Preset{Name: "Legend", Layout: []string{"S.E"}, Legend: map[string]grid.State{"WW": grid.Obstacle}},
			want:   "must be a single character",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidationResult{Valid: true, Errors: []string{}}
			Preset(&tt.preset, &result)

			if result.Valid {
				t.Fatal("Expected preset to be invalid")
			}
			if !hasMessage(result.Errors, tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, result.Errors)
			}
		})
	}
}

func TestPreset_UnsolvableIsWarning(t *testing.T) {
	p := preset.Preset{
		Name:   "Walled",
		Layout: []string{"S.W.E"},
		Legend: map[string]grid.State{"W": grid.Obstacle},
	}
	result := ValidationResult{Valid: true, Errors: []string{}}
	Preset(&p, &result)

	if !result.Valid {
		t.Fatalf("Expected unsolvable preset to stay valid, got errors: %v", result.Errors)
	}
	if result.Solvable {
		t.Error("Expected preset to be unsolvable")
	}
	if !hasMessage(result.Warnings, "No path from start (0,0) to end (0,4); 2 cells reachable") {
		t.Errorf("Expected unreachable warning, got %v", result.Warnings)
	}
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "b_valid.json", `{"name": "B", "layout": ["S.E"]}`)
	writePreset(t, dir, "a_invalid.json", `{"name": "A", "layout": ["S.."]}`)
	writePreset(t, dir, "notes.txt", `not a preset`)

	results, err := ValidateDir(dir)
	if err != nil {
		t.Fatalf("ValidateDir failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].File != "a_invalid.json" || results[0].Valid {
		t.Errorf("Expected a_invalid.json to be first and invalid, got %+v", results[0])
	}
	if results[1].File != "b_valid.json" || !results[1].Valid {
		t.Errorf("Expected b_valid.json to be second and valid, got %+v", results[1])
	}
}

func TestValidateDir_Missing(t *testing.T) {
	if _, err := ValidateDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Expected error for missing directory")
	}

	file := writePreset(t, t.TempDir(), "file.json", `{}`)
	if _, err := ValidateDir(file); err == nil {
		t.Error("Expected error when path is a file")
	}
}

func TestValidateDir_ShippedPresets(t *testing.T) {
	results, err := ValidateDir("../presets")
	if err != nil {
		t.Fatalf("ValidateDir failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Expected shipped presets")
	}
	for _, result := range results {
		if !result.Valid {
			t.Errorf("%s: %v", result.File, result.Errors)
		}
	}
}

func TestReport(t *testing.T) {
	results := []ValidationResult{
		{File: "good.json", Valid: true, Solvable: true, Info: []string{"✓ Name: Good"}},
		{File: "walled.json", Valid: true, Warnings: []string{"No path"}},
		{File: "bad.json", Valid: false, Errors: []string{"Layout is empty"}},
	}

	var buf bytes.Buffer
	if Report(&buf, results) {
		t.Error("Expected report to flag invalid presets")
	}

	out := buf.String()
	for _, want := range []string{
		"==================== good.json",
		"✅ VALID",
		"  ✓ Name: Good",
		"  ⚠️  No path",
		"❌ INVALID",
		"  ❌ Layout is empty",
		"❌ Some presets have errors",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected report to contain %q, got:\n%s", want, out)
		}
	}

	buf.Reset()
	if !Report(&buf, results[:2]) {
		t.Error("Expected all-valid report")
	}
	if !strings.Contains(buf.String(), "✅ All presets are valid!") {
		t.Errorf("Expected success line, got:\n%s", buf.String())
	}

	buf.Reset()
	Report(&buf, nil)
	if !strings.Contains(buf.String(), "No preset files found") {
		t.Errorf("Expected empty notice, got:\n%s", buf.String())
	}
}
