package service

import (
	"context"
	"errors"

	"github.com/wricardo/gridpath/pathfinding/preset"
)

var (
	// ErrInvalidRequest covers requests missing a grid or endpoints.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrGridTooLarge is returned when a grid exceeds the configured cell cap.
	ErrGridTooLarge = errors.New("grid too large")
	// ErrSearchTimeout is returned when a search outlives its deadline.
	ErrSearchTimeout = errors.New("search timed out")
)

// PathService defines all pathfinding operations
type PathService interface {
	// Searches
	FindPath(ctx context.Context, req *FindPathRequest) (*FindPathResult, error)
	SolvePreset(ctx context.Context, name string) (*FindPathResult, error)

	// Presets
	ListPresets(ctx context.Context) ([]*preset.Info, error)
	GetPreset(ctx context.Context, name string) (*PresetDetail, error)
}

// PresetStore provides named sample grids
type PresetStore interface {
	LoadPreset(name string) (*preset.Preset, error)
	ListPresets() ([]*preset.Info, error)
	GetDefault() *preset.Preset
}
