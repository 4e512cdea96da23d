// Package errors provides coded errors for the lineage domain.
//
// Codes follow <area>.<object>.<verb>.<reason>; the trailing reason segment
// drives classification (IsNotFound, IsConflict, IsInvalidInput) and the
// HTTP status the server returns.
package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeFamilyNotFound           Code = "family.get.not_found"
	CodePersonNotFound           Code = "person.get.not_found"
	CodeRelationshipNotFound     Code = "relationship.get.not_found"
	CodeMarriageNotFound         Code = "marriage.get.not_found"
	CodeRelationshipTypeNotFound Code = "relationship_type.get.not_found"
	CodeFamilyRoleNotFound       Code = "family_role.get.not_found"

	CodeRelationshipCreateInvalid Code = "relationship.create.invalid_input"
	CodeRelationshipEndInvalid    Code = "relationship.end.invalid_input"
	CodeMarriageCreateInvalid     Code = "marriage.create.invalid_input"
	CodeMarriageEndInvalid        Code = "marriage.end.invalid_input"
	CodeRequestFlagInvalid        Code = "request.flag.invalid_input"
	CodeRequestDateInvalid        Code = "request.date.invalid_input"
	CodeImportDocumentInvalid     Code = "import.document.invalid_input"

	CodeRelationshipConflictActive Code = "relationship.create.conflict_active"
	CodeMarriageConflictActive     Code = "marriage.create.conflict_active"
	CodePersonReferenced           Code = "person.delete.conflict_referenced"

	CodeFamilyTreeTruncated Code = "family.tree.truncated"

	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"
	CodeServerInternalFailure Code = "server.internal.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldFamilyID(id int64) Attr {
	return Field("family_id", id)
}

func FieldPersonID(id int64) Attr {
	return Field("person_id", id)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain, keeping its code.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

// IsConflict reports conflict_* reasons, such as an active relationship
// already holding the slot being written.
func IsConflict(err error) bool {
	return strings.HasPrefix(reason(CodeOf(err)), "conflict")
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
