package handlers

import (
	"strings"
	"time"

	"github.com/ersonp/lineage/internal/domain/entities"
	lerrors "github.com/ersonp/lineage/internal/errors"
)

// ParseIncludeInactive parses the include_inactive flag. Empty means false.
func ParseIncludeInactive(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	default:
		return false, lerrors.New(lerrors.CodeRequestFlagInvalid, "include_inactive must be a boolean",
			lerrors.Field("include_inactive", raw))
	}
}

// ParseDate parses a required YYYY-MM-DD value.
func ParseDate(field, raw string) (time.Time, error) {
	d, err := entities.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, lerrors.Wrap(err, lerrors.CodeRequestDateInvalid, field+" must be a YYYY-MM-DD date",
			lerrors.Field(field, raw))
	}
	return d, nil
}

// ParseOptionalDate parses a YYYY-MM-DD value, returning nil when raw is
// empty.
func ParseOptionalDate(field, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := ParseDate(field, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
