package services

import (
	"errors"
	"fmt"

	lerrors "github.com/ersonp/lineage/internal/errors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tag validation and reports the first failing
// field under code.
func validateInput(code lerrors.Code, input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return lerrors.New(code, fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag()),
			lerrors.Field("field", fe.Field()),
			lerrors.Field("value", fe.Value()),
		)
	}
	return lerrors.Wrap(err, code, "validating input")
}
