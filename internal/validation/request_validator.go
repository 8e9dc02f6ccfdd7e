package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var spreadsheetIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{20,100}$`)

// RequestValidator validates request structs by their `validate` tags.
// Field names in errors follow the json tags.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator registers the custom rules used by the API contracts.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterValidation("nocontrol", noControlChars)
	v.RegisterValidation("spreadsheetid", isSpreadsheetID)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{validate: v}
}

// Struct validates v and returns validator.ValidationErrors on failure.
func (rv *RequestValidator) Struct(v interface{}) error {
	return rv.validate.Struct(v)
}

// Var validates a single value against a tag.
func (rv *RequestValidator) Var(field interface{}, tag string) error {
	return rv.validate.Var(field, tag)
}

// FieldMessage turns a field error into a readable sentence.
func FieldMessage(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "nocontrol":
		return fmt.Sprintf("%s must not contain control characters", field)
	case "spreadsheetid":
		return fmt.Sprintf("%s must be a Google Sheets spreadsheet ID", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// noControlChars rejects values with control characters.
func noControlChars(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

func isSpreadsheetID(fl validator.FieldLevel) bool {
	return spreadsheetIDPattern.MatchString(fl.Field().String())
}
