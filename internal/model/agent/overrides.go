package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type overrideFile struct {
	Agents []Descriptor `yaml:"agents"`
}

// LoadOverrides reads a YAML file of agents and applies it on top of base.
// Entries with a known key replace the non-empty fields of that agent; new keys
// are appended. An empty path returns base unchanged.
func LoadOverrides(path string, base []Descriptor) ([]Descriptor, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents file: %w", err)
	}
	return ApplyOverrides(data, base)
}

// ApplyOverrides applies YAML-encoded agent overrides on top of base.
func ApplyOverrides(data []byte, base []Descriptor) ([]Descriptor, error) {
	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse agents file: %w", err)
	}

	out := append([]Descriptor(nil), base...)
	index := make(map[Key]int, len(out))
	for i, d := range out {
		index[d.Key] = i
	}

	for _, o := range file.Agents {
		if o.Key == "" {
			return nil, fmt.Errorf("agents file: entry without key")
		}
		i, ok := index[o.Key]
		if !ok {
			index[o.Key] = len(out)
			out = append(out, o)
			continue
		}
		if o.Label != "" {
			out[i].Label = o.Label
		}
		if o.Summary != "" {
			out[i].Summary = o.Summary
		}
		if o.Instructions != "" {
			out[i].Instructions = o.Instructions
		}
	}
	return out, nil
}
