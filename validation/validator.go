// Package validation wraps a shared go-playground validator configured with
// the venue-specific tags (hhmm, venuecategory) and reports failures as
// apperrors validation errors naming the offending parameter.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"venues-server/apperrors"
	"venues-server/models/venue"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report query parameter or JSON names instead of Go field names.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, key := range []string{"query", "json"} {
				name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})

		_ = validate.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			_, err := venue.ParseClock(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("venuecategory", func(fl validator.FieldLevel) bool {
			return venue.Category(fl.Field().String()).IsKnown()
		})
	})

	return validate
}

// ValidateStruct validates s and returns nil or an *apperrors.AppError
// describing the first failing field.
func ValidateStruct(s interface{}) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.NewValidationError("", err.Error())
	}

	fe := fieldErrs[0]
	field := fieldPath(fe)
	return apperrors.NewValidationError(field, fmt.Sprintf("%s %s", field, describe(fe)))
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "max":
		return "must be at most " + fe.Param() + " long"
	case "hhmm":
		return "must be a 24-hour HH:MM time"
	case "venuecategory":
		return fmt.Sprintf("has unknown category %q", fe.Value())
	case "url":
		return "must be a valid URL"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
