package region

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a regions.yaml document. A missing file yields an empty set,
// so a fresh run directory is usable before any regions were drawn.
func Load(path string) ([]Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read regions: %w", err)
	}

	var regions []Region
	if err := yaml.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("parse regions: %w", err)
	}

	for i := range regions {
		if regions[i].Type == "" {
			regions[i].Type = TypeButton
		}
	}
	return regions, nil
}

// Save writes the region set back to disk.
func Save(path string, regions []Region) error {
	data, err := yaml.Marshal(regions)
	if err != nil {
		return fmt.Errorf("encode regions: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write regions: %w", err)
	}
	return nil
}
