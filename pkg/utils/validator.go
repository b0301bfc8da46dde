package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate

	// Accepts everything SanitizePhone keeps.
	phonePattern = regexp.MustCompile(`^\+?[0-9(][0-9 ()\-]{5,18}$`)
	imeiPattern  = regexp.MustCompile(`^[0-9]{14,17}$`)
)

func init() {
	validate = validator.New()

	// Field names in errors come from the `label` tag, falling back to json.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = validate.RegisterValidation("phone", validatePhone)
	_ = validate.RegisterValidation("imei", validateIMEI)
}

func validatePhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

func validateIMEI(fl validator.FieldLevel) bool {
	return imeiPattern.MatchString(fl.Field().String())
}

// FirstValidationMessage validates s and turns the first failing field into a
// single sentence, e.g. "First name is required". Fields are checked in
// declaration order, so struct layout decides which error wins.
func FirstValidationMessage(s interface{}) (string, bool) {
	err := validate.Struct(s)
	if err == nil {
		return "", true
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error(), false
	}

	return describeFieldError(fieldErrs[0]), false
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "phone":
		return fmt.Sprintf("%s must be a valid phone number", field)
	case "imei":
		return fmt.Sprintf("%s must be a 14-17 digit IMEI", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
