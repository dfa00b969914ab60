package lexicon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadExtension reads an extension dataset from a YAML file. A missing
// file is not an error: the dataset is optional and may not have been
// generated yet, so absence yields an empty extension and base-only
// behavior. Malformed YAML or an uncompilable exclusion pattern is an
// error; bad extension data must be caught at startup, not at match time.
func LoadExtension(path string) (*Extension, error) {
	if path == "" {
		return &Extension{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Extension{}, nil
		}
		return nil, fmt.Errorf("read lexicon extension %s: %w", path, err)
	}

	var ext Extension
	if err := yaml.Unmarshal(data, &ext); err != nil {
		return nil, fmt.Errorf("parse lexicon extension %s: %w", path, err)
	}

	return &ext, nil
}
