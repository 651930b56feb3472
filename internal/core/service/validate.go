package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tumme/course-system/internal/core/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their json names, as the API does.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	// Empty values pass; presence is enforced by required/required_if.
	_ = v.RegisterValidation("level", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || domain.Level(s).Valid()
	})
	_ = v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		switch domain.Gender(fl.Field().String()) {
		case "", domain.GenderMale, domain.GenderFemale, domain.GenderNeutral:
			return true
		}
		return false
	})
	return v
}

// validateInput runs struct validation and folds failures into a
// *domain.ValidationError.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	problems := make([]string, 0, len(ve))
	for _, fe := range ve {
		problems = append(problems, describe(fe))
	}
	return domain.NewValidationError(problems...)
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "level":
		return field + " must be a known study level"
	case "gender":
		return field + " must be one of: M F N"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
