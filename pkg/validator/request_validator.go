package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	zipCodeRegex     = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	phoneNumberRegex = regexp.MustCompile(`^\d{10}$`)
)

// FieldError describes one rejected field using its JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil functions.
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("zipcode", func(fl validator.FieldLevel) bool {
		return zipCodeRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneNumberRegex.MatchString(fl.Field().String())
	})

	return &RequestValidator{validate: validate}
}

// Validate returns nil when obj passes every rule, otherwise one entry per
// failing field in declaration order.
func (v *RequestValidator) Validate(obj any) []FieldError {
	err := v.validate.Struct(obj)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "", Message: err.Error(), Type: "invalid"}}
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Type:    fe.Tag(),
		})
	}
	return fieldErrors
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return requiredMessage(fe.Field())
	case "zipcode":
		return "Invalid zip code format"
	case "phone":
		return "Phone number must be 10 digits"
	case "gte", "min":
		if fe.Field() == "age" {
			return "Must be at least 18 years old"
		}
		return "Value must be greater than or equal to " + fe.Param()
	case "max":
		return "Value is too long"
	default:
		return "Invalid value"
	}
}

func requiredMessage(field string) string {
	switch field {
	case "name":
		return "Name is required"
	case "zipCode":
		return "Zip code is required"
	case "age":
		return "Age is required"
	case "phoneNumber":
		return "Phone number is required"
	default:
		return "This field is required"
	}
}
