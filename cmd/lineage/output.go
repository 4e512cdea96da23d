package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	lerrors "github.com/ersonp/lineage/internal/errors"
)

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseID parses a positive numeric id argument.
func parseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, lerrors.New(lerrors.CodeRequestFlagInvalid, fmt.Sprintf("%s must be a positive integer", field),
			lerrors.Field(field, raw))
	}
	return id, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yearsSuffix(years *int) string {
	if years == nil {
		return ""
	}
	return fmt.Sprintf(" (%d years)", *years)
}
