package classifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mkarlsen/switchboard/pkg/models"
)

// patternFile is the YAML layout of a user-provided patterns file.
type patternFile struct {
	Patterns []patternSpec `yaml:"patterns"`
}

// patternSpec is one pattern definition in a patterns file.
type patternSpec struct {
	ID         string   `yaml:"id"`
	Specialist string   `yaml:"specialist"`
	Keywords   []string `yaml:"keywords"`
	Triggers   []string `yaml:"triggers"`
	Confidence float64  `yaml:"confidence"`
}

// LoadPatternsFile parses a YAML patterns file into domain patterns.
// Confidence defaults to the seed value when omitted.
func LoadPatternsFile(path string) ([]*models.DomainPattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns file: %w", err)
	}

	var file patternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse patterns file %s: %w", path, err)
	}

	patterns := make([]*models.DomainPattern, 0, len(file.Patterns))
	for i, spec := range file.Patterns {
		if spec.ID == "" {
			return nil, fmt.Errorf("patterns file %s: entry %d has no id", path, i)
		}
		if spec.Specialist == "" {
			return nil, fmt.Errorf("patterns file %s: pattern %q has no specialist", path, spec.ID)
		}
		confidence := spec.Confidence
		if confidence == 0 {
			confidence = seedConfidence
		}
		patterns = append(patterns, &models.DomainPattern{
			ID:           spec.ID,
			SpecialistID: models.SpecialistID(spec.Specialist),
			Keywords:     spec.Keywords,
			Triggers:     spec.Triggers,
			Confidence:   confidence,
		})
	}
	return patterns, nil
}
