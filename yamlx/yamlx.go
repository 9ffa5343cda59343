// Package yamlx loads and saves YAML documents with human-friendly
// formatting: block-style collections and literal block scalars for
// multiline strings, so long text fields stay readable and diffable.
package yamlx

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// LoadString parses a YAML document from a string.
func LoadString(s string) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Load parses the YAML document at path.
func Load(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := LoadString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Save writes v to path as YAML. Multiline strings are emitted as
// literal block scalars; collections use block style, one item per line.
// Pass a yaml.MapSlice to control key order.
func Save(path string, v any) error {
	b, err := Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Marshal renders v with the same formatting Save uses.
func Marshal(v any) ([]byte, error) {
	return yaml.MarshalWithOptions(v,
		yaml.UseLiteralStyleIfMultiline(true),
	)
}
