// Package preset provides the sample grid library for the pathfinding service.
//
// Presets are JSON files in a directory (presets/ by default). Each file
// holds a name, a description and a text layout:
//
//	{
//	  "name": "Center Block",
//	  "description": "3x3 grid with a single obstacle in the middle",
//	  "layout": ["S..", ".#.", "..E"],
//	  "legend": {"W": "OBSTACLE"}
//	}
//
// The layout uses grid.DefaultLegend ('.' empty, '#' obstacle, 'S' start,
// 'E' end); the optional legend adds or overrides characters. A preset must
// contain exactly one start and one end.
//
// Usage:
//
//	manager, err := preset.NewManager("presets")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	p, err := manager.LoadPreset("classic")
//	layout, err := p.Parse()
//
//	infos, err := manager.ListPresets()
//
// Loaded presets are cached; ReloadPreset and RefreshCache re-read them from
// disk. When no "classic" preset exists the first valid file becomes the
// default, and an empty directory falls back to a built-in 5x5 maze.
package preset
