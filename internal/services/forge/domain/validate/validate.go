// Package validate runs struct-tag validation for entity records and
// converts failures into domain validation issues.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
		if err := v.RegisterValidation("notblank", notBlank); err != nil {
			panic(fmt.Sprintf("register notblank: %v", err))
		}
		instance = v
	})
	return instance
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(field.String()) != ""
}

// Struct validates s and returns a domain validation error listing every
// failing field. Labels override the generated message per field path.
func Struct(s any, labels map[string]string) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domainerr.Validation(err.Error())
	}
	issues := make([]domainerr.Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		path := fe.Field()
		issues = append(issues, domainerr.Issue{Path: path, Message: message(fe, labels[path])})
	}
	return domainerr.Validation("", issues...)
}

// Var validates a single value against tag, reporting failures under path.
func Var(path, label string, value any, tag string) error {
	err := get().Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domainerr.Invalid(path, err.Error())
	}
	return domainerr.Invalid(path, message(fieldErrs[0], label))
}

func message(fe validator.FieldError, label string) string {
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required", "notblank":
		return label + " is required"
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return "Invalid email format"
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
