// Package validation provides request-shape validation for paycore's
// HTTP layer, following the teacher's shared/validator/validator.go.
// It sits above internal/transfer's own charset/range checks: this
// package validates that a request is well-formed; internal/transfer
// validates that it is a legal transfer.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nivocore/paycore/internal/apperr"
)

// Validator wraps go-playground/validator with paycore's custom rules.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with custom validation rules registered.
func New() *Validator {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate}
	v.registerCustomValidators()
	return v
}

// Validate validates a struct's tags, returning a *apperr.Error with one
// detail entry per failing field.
func (v *Validator) Validate(s interface{}) *apperr.Error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation("validation failed")
	}
	return v.formatValidationErrors(validationErrors)
}

func (v *Validator) formatValidationErrors(validationErrors validator.ValidationErrors) *apperr.Error {
	details := make(map[string]interface{})
	for _, err := range validationErrors {
		fieldName := err.Field()
		if fieldName == "" {
			fieldName = err.StructField()
		}
		details[fieldName] = v.getErrorMessage(err)
	}
	return apperr.Validation("validation failed").WithDetails(details)
}

func (v *Validator) getErrorMessage(err validator.FieldError) string {
	field := err.Field()
	tag := err.Tag()
	param := err.Param()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if err.Type().Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", param)
		}
		return fmt.Sprintf("must be at least %s", param)
	case "max":
		if err.Type().Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", param)
		}
		return fmt.Sprintf("must be at most %s", param)
	case "len":
		return fmt.Sprintf("must be exactly %s characters", param)
	case "oneof":
		return fmt.Sprintf("must be one of: %s", param)
	case "uuid":
		return "must be a valid UUID"
	case "idempotency_key":
		return "must be 1-255 characters of letters, digits, underscore, or hyphen"
	case "wallet_currency":
		return "must be three uppercase letters"
	case "money_amount":
		return "must be an unsigned decimal amount with at most two fractional digits"
	default:
		return fmt.Sprintf("validation failed on '%s' tag", tag)
	}
}

var (
	idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,255}$`)
	currencyPattern       = regexp.MustCompile(`^[A-Z]{3}$`)
	moneyAmountPattern    = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

// registerCustomValidators registers paycore's domain-specific tags,
// mirroring the shape the charset/range checks take in the DTO layer.
func (v *Validator) registerCustomValidators() {
	v.validate.RegisterValidation("idempotency_key", func(fl validator.FieldLevel) bool {
		return idempotencyKeyPattern.MatchString(fl.Field().String())
	})

	v.validate.RegisterValidation("wallet_currency", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || currencyPattern.MatchString(s)
	})

	v.validate.RegisterValidation("money_amount", func(fl validator.FieldLevel) bool {
		return moneyAmountPattern.MatchString(fl.Field().String())
	})
}
