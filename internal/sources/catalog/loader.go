package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of indicators.yaml
type Loader struct {
	filePath string
}

// NewLoader creates a new catalog loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the indicators file. An empty path yields the
// built-in default catalog.
func (l *Loader) Load() (*Catalog, error) {
	if l.filePath == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read indicators file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse indicators yaml: %w", err)
	}

	if len(file.Indicators) == 0 {
		return nil, fmt.Errorf("indicators file %s defines no indicators", l.filePath)
	}

	seen := make(map[string]bool, len(file.Indicators))
	for i, ind := range file.Indicators {
		if ind.ID == "" || ind.Key == "" {
			return nil, fmt.Errorf("indicator %d is missing id or key", i)
		}
		if seen[ind.ID] {
			return nil, fmt.Errorf("duplicate indicator id %q", ind.ID)
		}
		seen[ind.ID] = true
		if ind.Name == "" {
			file.Indicators[i].Name = ind.ID
		}
	}

	return &Catalog{Indicators: file.Indicators}, nil
}
