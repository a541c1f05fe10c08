package registry

import (
	"fmt"
	"os"
)

// LoadFile builds a Registry from a YAML schema file. Falls back to the
// built-in default schema when path is empty.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read columns file: %w", err)
	}
	return Parse(data)
}
