package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"anoa.com/fandomspace/pkg/apperror"
	"github.com/go-playground/validator/v10"
)

var (
	instance *validator.Validate
	once     sync.Once
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
	})
	return instance
}

// Struct validates input and wraps failures as ErrInvalidInput with a
// readable message.
func Struct(input interface{}) error {
	if err := get().Struct(input); err != nil {
		return fmt.Errorf("%s: %w", FormatValidationError(err), apperror.ErrInvalidInput)
	}
	return nil
}

func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"Username":        "Username",
		"Password":        "Password",
		"DisplayName":     "Display name",
		"Content":         "Content",
		"Name":            "Product name",
		"Price":           "Price",
		"Stock":           "Stock",
		"Quantity":        "Quantity",
		"ShippingAddress": "Shipping address",
		"PaymentMethod":   "Payment method",
		"Reason":          "Reason",
		"Type":            "Report type",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
