// Package validator provides struct validation utilities with custom
// validators for the case-access domain.
package validator

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/google/uuid"
)

// laaContractRegex validates Legal Aid Agency contract numbers: upper-case
// alphanumeric, 4 to 12 characters.
var laaContractRegex = regexp.MustCompile(`^[0-9A-Z]{4,12}$`)

// representationTypes are the accepted funding arrangements for a defence
// association.
var representationTypes = map[string]bool{
	"REPRESENTATION_ORDER":             true,
	"REPRESENTATION_ORDER_APPLIED_FOR": true,
	"PRIVATE":                          true,
	"COURT_APPOINTED":                  true,
}

// Validator wraps the go-playground validator with custom validations.
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a single field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range v {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return sb.String()
}

// New creates a new Validator with custom validators registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("case_uuid", validateUUID)
	_ = v.RegisterValidation("laa_contract_number", validateLAAContractNumber)
	_ = v.RegisterValidation("representation_type", validateRepresentationType)

	return &Validator{validate: v}
}

// Validate validates a struct and returns ValidationErrors if validation fails.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return err
	}

	result := make(ValidationErrors, 0, len(validationErrors))
	for _, e := range validationErrors {
		result = append(result, ValidationError{
			Field:   toSnakeCase(e.Field()),
			Message: formatErrorMessage(e),
		})
	}

	return result
}

// validateUUID validates that a string parses as a UUID.
func validateUUID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	_, err := uuid.Parse(value)
	return err == nil
}

// validateLAAContractNumber validates a Legal Aid Agency contract number.
func validateLAAContractNumber(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return laaContractRegex.MatchString(value)
}

// validateRepresentationType validates a defence-association funding type.
func validateRepresentationType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return representationTypes[value]
}

// formatErrorMessage renders a human-readable message for a failed tag.
func formatErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "case_uuid":
		return "must be a valid UUID"
	case "laa_contract_number":
		return "must be an upper-case alphanumeric LAA contract number"
	case "representation_type":
		return "must be a known representation type"
	default:
		return fmt.Sprintf("failed validation: %s", e.Tag())
	}
}

// toSnakeCase converts a Go field name to snake_case for API responses.
// Acronym runs stay together: "LAAContractNumber" becomes
// "laa_contract_number".
func toSnakeCase(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				sb.WriteRune('_')
			}
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
