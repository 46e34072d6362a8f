package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	MinStudyDuration = 1
	MaxStudyDuration = 180
)

// ValidationError represents a single field failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator handles request and business rule validation
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the business rules registered
func New() *Validator {
	validate := validator.New()

	// report json names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	bv := &Validator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates a struct. It returns nil, not an empty ValidationErrors, when the struct is valid.
func (bv *Validator) Validate(s interface{}) error {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateStudyDuration checks a session length in minutes
func (bv *Validator) ValidateStudyDuration(minutes int) error {
	if minutes < MinStudyDuration || minutes > MaxStudyDuration {
		return ValidationErrors{{
			Field:   "duration",
			Message: getErrorMessage("study_duration", ""),
			Value:   minutes,
			Rule:    "study_duration",
		}}
	}
	return nil
}

// registerBusinessRules registers custom business rule validators
func (bv *Validator) registerBusinessRules() {
	// Study session length (1-180 minutes)
	bv.validate.RegisterValidation("study_duration", func(fl validator.FieldLevel) bool {
		d := fl.Field().Int()
		return d >= MinStudyDuration && d <= MaxStudyDuration
	})

	bv.validate.RegisterValidation("not_blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	// Usernames end up inside storage keys, so ':' and whitespace are rejected
	bv.validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if name == "" {
			return false
		}
		for _, r := range name {
			if r == ':' || unicode.IsSpace(r) || unicode.IsControl(r) {
				return false
			}
		}
		return true
	})
}

// ToValidationErrors converts validator output into ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: getErrorMessage(fe.Tag(), fe.Param()),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

// getErrorMessage returns user-friendly error messages
func getErrorMessage(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", param)
	case "max":
		return fmt.Sprintf("must be at most %s", param)
	case "len":
		return fmt.Sprintf("must be exactly %s characters", param)
	case "alphanum":
		return "must contain only letters and digits"
	case "not_blank":
		return "must not be blank"
	case "study_duration":
		return fmt.Sprintf("must be between %d and %d minutes", MinStudyDuration, MaxStudyDuration)
	case "username":
		return "must not contain whitespace or ':'"
	default:
		return fmt.Sprintf("failed on %s validation", tag)
	}
}
