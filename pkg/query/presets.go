package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset is a named query declared in the queries file.
type Preset struct {
	Name     string `json:"name" yaml:"name"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Enabled  *bool  `json:"enabled" yaml:"enabled"`
	Params   Params `json:"params" yaml:"params"`
}

// EnabledValue returns the enabled flag, defaulting to true.
func (p Preset) EnabledValue() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// Request builds the request described by the preset.
func (p Preset) Request() (Request, error) {
	return p.Params.Request(p.Endpoint)
}

type presetsFile struct {
	Queries []Preset `json:"queries" yaml:"queries"`
}

// PresetRegistry holds the presets loaded from a file, in file order.
type PresetRegistry struct {
	presets []Preset
	idx     map[string]Preset
}

// LoadPresets loads the preset registry from a YAML/JSON file.
func LoadPresets(path string) (*PresetRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("queries file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open queries file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read queries file: %w", err)
	}

	parsed, err := parsePresets(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Queries) == 0 {
		return nil, errors.New("queries file contains no queries entries")
	}

	reg := &PresetRegistry{
		presets: make([]Preset, 0, len(parsed.Queries)),
		idx:     make(map[string]Preset, len(parsed.Queries)),
	}
	for i := range parsed.Queries {
		p := sanitizePreset(parsed.Queries[i])
		if err := validatePreset(p); err != nil {
			return nil, fmt.Errorf("queries[%d]: %w", i, err)
		}
		if _, exists := reg.idx[p.Name]; exists {
			return nil, fmt.Errorf("duplicate query name %q", p.Name)
		}
		reg.presets = append(reg.presets, p)
		reg.idx[p.Name] = p
	}
	return reg, nil
}

type unmarshalFn func([]byte, any) error

func parsePresets(data []byte, ext string) (presetsFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var out presetsFile
		if err := d.fn(data, &out); err != nil {
			lastErr = fmt.Errorf("decode %s queries: %w", d.name, err)
			continue
		}
		return out, nil
	}
	if lastErr != nil {
		return presetsFile{}, lastErr
	}
	return presetsFile{}, errors.New("queries file format not recognized (expected YAML or JSON)")
}

func sanitizePreset(p Preset) Preset {
	p.Name = strings.TrimSpace(p.Name)
	p.Endpoint = strings.TrimSpace(p.Endpoint)
	p.Params.SearchQuery = strings.TrimSpace(p.Params.SearchQuery)
	p.Params.QueryMode = QueryMode(strings.TrimSpace(string(p.Params.QueryMode)))
	p.Params.SortOrder = SortOrder(strings.ToLower(strings.TrimSpace(string(p.Params.SortOrder))))
	return p
}

func validatePreset(p Preset) error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Endpoint == "" {
		return fmt.Errorf("endpoint is required for query %q", p.Name)
	}
	if err := p.Params.Validate(); err != nil {
		return fmt.Errorf("query %q: %w", p.Name, err)
	}
	if _, err := p.Request(); err != nil {
		return fmt.Errorf("query %q: %w", p.Name, err)
	}
	return nil
}

// All returns the presets in file order.
func (r *PresetRegistry) All() []Preset {
	if r == nil {
		return nil
	}
	out := make([]Preset, len(r.presets))
	copy(out, r.presets)
	return out
}

// Enabled returns the presets that are enabled, in file order.
func (r *PresetRegistry) Enabled() []Preset {
	var out []Preset
	for _, p := range r.All() {
		if p.EnabledValue() {
			out = append(out, p)
		}
	}
	return out
}

// ByName returns the preset with the given name.
func (r *PresetRegistry) ByName(name string) (Preset, bool) {
	if r == nil {
		return Preset{}, false
	}
	p, ok := r.idx[strings.TrimSpace(name)]
	return p, ok
}

// Select resolves names to presets. An empty list selects every enabled preset.
func (r *PresetRegistry) Select(names []string) ([]Preset, error) {
	if len(names) == 0 {
		return r.Enabled(), nil
	}
	out := make([]Preset, 0, len(names))
	for _, n := range names {
		p, ok := r.ByName(n)
		if !ok {
			return nil, fmt.Errorf("unknown query preset %q", n)
		}
		out = append(out, p)
	}
	return out, nil
}
