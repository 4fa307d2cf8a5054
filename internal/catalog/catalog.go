// Package catalog loads the challenge definitions shipped with the
// application or provided as a YAML file.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"ecotrack/internal/core"

	"gopkg.in/yaml.v3"
)

//go:embed challenges.yaml
var defaultCatalog []byte

type file struct {
	Challenges []core.Challenge `yaml:"challenges"`
}

// Default returns the embedded catalog.
func Default() ([]core.Challenge, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog at path, or the embedded one when path is empty.
func Load(path string) ([]core.Challenge, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read challenge catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog. Duplicate ids are rejected.
func Parse(data []byte) ([]core.Challenge, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse challenge catalog: %w", err)
	}
	seen := make(map[string]bool, len(f.Challenges))
	for _, c := range f.Challenges {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("challenge %q: %w", c.ID, err)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate challenge id %q", c.ID)
		}
		seen[c.ID] = true
	}
	return f.Challenges, nil
}
