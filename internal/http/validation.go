package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/nurpe/freelancehub/internal/service"
)

// RegisterValidators installs the custom binding rules and reports fields by
// their JSON names.
func RegisterValidators() error {
	engine, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	engine.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return field.Name
	})
	return engine.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return service.ValidPhone(strings.TrimSpace(fl.Field().String()))
	})
}

func validationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "phone":
		return "phone must have the format +7XXXXXXXXXX"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "ensure this value has at most " + fe.Param() + " characters"
	default:
		return "invalid value"
	}
}
