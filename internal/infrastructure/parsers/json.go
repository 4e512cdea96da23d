package parsers

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONParser parses seed documents from JSON.
type JSONParser struct{}

// Parse reads one JSON object from the reader. Unknown sections are
// rejected so typos do not silently drop data.
func (p *JSONParser) Parse(r io.Reader) (*SeedDocument, error) {
	var doc SeedDocument

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	return &doc, nil
}
