package debts

import (
	"errors"
	"reflect"
	"strings"

	"gold_debts/internal/ledger"
	"gold_debts/internal/models"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return models.NewValidationError(ve[0].Field(), validationMessage(ve[0]))
	}
	return models.NewValidationError("", err.Error())
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "max":
		return "must be at most " + e.Param() + " characters"
	default:
		return "is invalid"
	}
}

// positiveAmount is the strict boundary for monetary input: the value must
// parse and be greater than zero.
func positiveAmount(field string, v any) (float64, error) {
	amount, ok := ledger.ParseAmount(v)
	if !ok {
		return 0, models.NewValidationError(field, "must be a number")
	}
	if amount <= 0 {
		return 0, models.NewValidationError(field, "must be greater than 0")
	}
	return amount, nil
}

// blank reports whether an optional amount was left out.
func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
