package parsers

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLParser parses seed documents from YAML.
type YAMLParser struct{}

// Parse reads one YAML document from the reader. An empty document yields
// an empty SeedDocument.
func (p *YAMLParser) Parse(r io.Reader) (*SeedDocument, error) {
	var doc SeedDocument

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	return &doc, nil
}
