package preset

import (
	"errors"
	"fmt"

	"github.com/wricardo/gridpath/pathfinding/grid"
)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrInvalidPreset  = errors.New("invalid preset")
)

// Preset is a named sample grid stored as a JSON file
type Preset struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Layout      []string              `json:"layout"`
	Legend      map[string]grid.State `json:"legend,omitempty"`
}

// Info summarizes a preset for listings
type Info struct {
	Filename    string `json:"filename"`
	PresetID    string `json:"preset_id"` // identifier used in /api/presets/{name}
	Name        string `json:"name"`
	Description string `json:"description"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
}

// Parse builds the preset's grid and endpoints.
func (p *Preset) Parse() (*grid.Layout, error) {
	return grid.ParseLayoutWithLegend(p.Layout, p.Legend)
}

// Validate checks the preset for required fields and a well-formed layout
func Validate(p *Preset) error {
	if p == nil {
		return fmt.Errorf("%w: preset is nil", ErrInvalidPreset)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPreset)
	}
	if _, err := p.Parse(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	return nil
}
