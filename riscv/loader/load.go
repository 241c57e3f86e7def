package loader

import (
	"fmt"
	"os"
)

// Load reads the ELF file at path and parses it into a Program, following
// the same open-then-parse shape as loader.Load in the teacher repo.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: failed to read %q: %w", path, err)
	}
	return LoadBytes(data)
}
