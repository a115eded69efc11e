package preset

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultPresetName is loaded as the default preset when present.
const DefaultPresetName = "classic"

// Manager handles preset loading and caching
type Manager struct {
	presetDir     string
	defaultName   string // set by SetDefault, survives RefreshCache
	defaultPreset *Preset
	presets       map[string]*Preset
	mu            sync.RWMutex
}

// NewManager creates a new preset manager
func NewManager(presetDir string) (*Manager, error) {
	// Ensure preset directory exists
	if _, err := os.Stat(presetDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("preset directory does not exist: %s", presetDir)
	}

	m := &Manager{
		presetDir: presetDir,
		presets:   make(map[string]*Preset),
	}

	if err := m.loadDefaultPreset(); err != nil {
		return nil, fmt.Errorf("failed to load default preset: %w", err)
	}

	return m, nil
}

// Dir returns the directory presets are read from
func (m *Manager) Dir() string {
	return m.presetDir
}

// LoadPreset loads a preset by name
func (m *Manager) LoadPreset(name string) (*Preset, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if p, exists := m.presets[name]; exists {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if p, exists := m.presets[name]; exists {
		return p, nil
	}

	// Names are file stems inside presetDir only.
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, ErrPresetNotFound
	}

	p, err := ReadFile(filepath.Join(m.presetDir, name+".json"))
	if err != nil {
		return nil, err
	}

	m.presets[name] = p
	return p, nil
}

// ReadFile reads and validates a single preset file.
func ReadFile(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPresetNotFound
		}
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}

	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: failed to parse preset: %v", ErrInvalidPreset, err)
	}

	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPresets returns information about all valid presets in the directory
func (m *Manager) ListPresets() ([]*Info, error) {
	entries, err := os.ReadDir(m.presetDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset directory: %w", err)
	}

	var infos []*Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		p, err := m.LoadPreset(id)
		if err != nil {
			// Skip invalid presets
			continue
		}

		info := &Info{
			Filename:    entry.Name(),
			PresetID:    id,
			Name:        p.Name,
			Description: p.Description,
		}
		if layout, err := p.Parse(); err == nil {
			info.Rows = layout.Grid.Rows()
			info.Cols = layout.Grid.Cols()
		}
		infos = append(infos, info)
	}

	return infos, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPreset
}

// SetDefault sets the default preset by name
func (m *Manager) SetDefault(name string) error {
	name = strings.TrimSuffix(name, ".json")
	p, err := m.LoadPreset(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultName = name
	m.defaultPreset = p
	return nil
}

// ReloadPreset forces a reload of a preset from disk
func (m *Manager) ReloadPreset(name string) error {
	name = strings.TrimSuffix(name, ".json")

	m.mu.Lock()
	delete(m.presets, name)
	m.mu.Unlock()

	p, err := m.LoadPreset(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if name == m.defaultName {
		m.defaultPreset = p
	}
	m.mu.Unlock()
	return nil
}

// RefreshCache drops cached presets and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.presets = make(map[string]*Preset)
	m.mu.Unlock()

	return m.loadDefaultPreset()
}

func (m *Manager) loadDefaultPreset() error {
	m.mu.RLock()
	name := cmp.Or(m.defaultName, DefaultPresetName)
	m.mu.RUnlock()

	p, err := m.LoadPreset(name)
	if err != nil {
		// Fall back to the first valid preset on disk
		infos, listErr := m.ListPresets()
		if listErr != nil || len(infos) == 0 {
			m.setDefault(minimalPreset())
			return nil
		}

		p, err = m.LoadPreset(infos[0].PresetID)
		if err != nil {
			m.setDefault(minimalPreset())
			return nil
		}
	}

	m.setDefault(p)
	return nil
}

func (m *Manager) setDefault(p *Preset) {
	m.mu.Lock()
	m.defaultPreset = p
	m.mu.Unlock()
}

func minimalPreset() *Preset {
	return &Preset{
		Name:        "default",
		Description: "Default minimal preset",
		Layout: []string{
			"S....",
			".###.",
			".#...",
			".#.#.",
			"...#E",
		},
	}
}
