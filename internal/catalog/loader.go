// Package catalog is the registry of mental-state presets: the built-in
// relaxed, focused and stressed states plus any defined in YAML.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/synheart/synheart-physio/internal/physio"
)

//go:embed presets/*.yaml
var embedded embed.FS

var ErrNotFound = errors.New("preset not found")

// Registry holds all available presets
type Registry struct {
	presets map[string]*Preset
	mu      sync.RWMutex
}

// NewRegistry returns a registry holding the built-in presets.
func NewRegistry() *Registry {
	r := &Registry{presets: make(map[string]*Preset)}
	for _, p := range physio.Presets() {
		r.presets[p.String()] = fromBuiltin(p)
	}
	return r
}

// Default returns a registry with the built-ins and the bundled example
// presets.
func Default() (*Registry, error) {
	r := NewRegistry()
	if err := r.LoadFromEmbedded(embedded, "presets"); err != nil {
		return nil, err
	}
	return r, nil
}

func parse(data []byte, source string) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse preset YAML from %s: %w", source, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	p.Name = strings.ToLower(p.Name)
	return &p, nil
}

func (r *Registry) add(p *Preset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.presets[p.Name]; ok && existing.Builtin {
		return fmt.Errorf("preset %q is built in and cannot be redefined", p.Name)
	}
	r.presets[p.Name] = p
	return nil
}

// LoadFromFile loads a preset from a YAML file
func (r *Registry) LoadFromFile(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read preset file: %w", err)
	}
	p, err := parse(data, file)
	if err != nil {
		return err
	}
	return r.add(p)
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// LoadFromDir loads every *.yaml and *.yml file in dir.
func (r *Registry) LoadFromDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read presets directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		if err := r.LoadFromFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// LoadFromEmbedded loads presets from a directory of an fs.FS such as an
// embed.FS.
func (r *Registry) LoadFromEmbedded(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read embedded presets: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		// fs paths are always slash separated.
		name := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read embedded file %s: %w", name, err)
		}
		p, err := parse(data, name)
		if err != nil {
			return err
		}
		if err := r.add(p); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves a preset by case-insensitive name.
func (r *Registry) Get(name string) (*Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// List returns the built-in names in order of increasing arousal followed
// by custom names sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.presets))
	for _, p := range physio.Presets() {
		names = append(names, p.String())
	}
	var custom []string
	for name, p := range r.presets {
		if !p.Builtin {
			custom = append(custom, name)
		}
	}
	sort.Strings(custom)
	return append(names, custom...)
}

// ListWithDescriptions returns all presets with their descriptions
func (r *Registry) ListWithDescriptions() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]string, len(r.presets))
	for name, p := range r.presets {
		result[name] = p.Description
	}
	return result
}
