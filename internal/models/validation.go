package models

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON name so clients can map errors to inputs.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs the validator and flattens failures into field -> message.
func validateStruct(s interface{}) map[string]string {
	out := make(map[string]string)

	err := validate.Struct(s)
	if err == nil {
		return out
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		out["_"] = err.Error()
		return out
	}
	for _, fe := range ve {
		if _, exists := out[fe.Field()]; exists {
			continue
		}
		out[fe.Field()] = messageFor(fe)
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	field := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " is invalid"
	case "min":
		if fe.Kind() == reflect.String {
			return field + " must be at least " + fe.Param() + " characters"
		}
		return field + " must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return field + " must be at most " + fe.Param() + " characters"
		}
		return field + " is too long"
	case "alphanum":
		return field + " may only contain letters and digits"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "latitude", "longitude":
		return field + " is out of range"
	case "gtfield":
		return field + " must be after " + humanize(fe.Param())
	case "dive":
		return field + " contains an invalid value"
	default:
		return field + " is invalid"
	}
}

func humanize(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
