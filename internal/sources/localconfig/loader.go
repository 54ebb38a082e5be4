package localconfig

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader reads an endpoint configuration document from disk.
type Loader struct {
	filePath string
}

// NewLoader creates a loader for the given file.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.filePath
}

// Load reads and parses the configuration file.
func (l *Loader) Load() (*Table, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoint config: %w", err)
	}

	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.filePath, err)
	}
	return table, nil
}

// Parse decodes a YAML or JSON document. Empty input yields an empty table.
func Parse(data []byte) (*Table, error) {
	var doc Document
	if len(bytes.TrimSpace(data)) == 0 {
		return NewTable(doc), nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse endpoint config: %w", err)
	}
	return NewTable(doc), nil
}
