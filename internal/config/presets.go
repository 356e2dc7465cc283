package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset is a named retrieval profile: a strategy plus its tunables.
// Presets let operators switch between tuned configurations (fast,
// balanced, research) without spelling tunables out per request.
type Preset struct {
	Strategy string         `yaml:"strategy"`
	Tunables map[string]any `yaml:"tunables"`
}

type Presets map[string]Preset

// LoadPresets reads the YAML preset file at path. An empty path yields an
// empty preset set, not an error.
func LoadPresets(path string) (Presets, error) {
	if strings.TrimSpace(path) == "" {
		return Presets{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}

	var decoded map[string]Preset
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}

	out := make(Presets, len(decoded))
	for name, preset := range decoded {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || strings.TrimSpace(preset.Strategy) == "" {
			return nil, fmt.Errorf("preset %q: strategy is required", name)
		}
		out[name] = preset
	}
	return out, nil
}

// Lookup resolves a preset by case-insensitive name.
func (p Presets) Lookup(name string) (Preset, bool) {
	preset, ok := p[strings.ToLower(strings.TrimSpace(name))]
	return preset, ok
}
