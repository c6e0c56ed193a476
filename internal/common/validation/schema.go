// Package validation checks raw job variables against JSON schemas before
// they are decoded into worker inputs.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"hostel-admissions/internal/common/errors"
)

// Schema is a compiled JSON schema.
type Schema struct {
	schema *gojsonschema.Schema
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const (
	CodeRequired = "REQUIRED_FIELD_MISSING"
	CodeInvalid  = "INVALID_VALUE"
)

func Compile(schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompile panics on a malformed schema. Use for package-level schemas.
func MustCompile(schemaJSON string) *Schema {
	s, err := Compile(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a raw JSON document. Errors are sorted by field so the
// first one reported is stable.
func (s *Schema) Validate(document string) (*ValidationResult, error) {
	if strings.TrimSpace(document) == "" {
		document = "{}"
	}
	res, err := s.schema.Validate(gojsonschema.NewStringLoader(document))
	if err != nil {
		return nil, errors.NewInvalidFieldError("variables", err.Error())
	}

	out := &ValidationResult{Valid: res.Valid()}
	for _, re := range res.Errors() {
		out.Errors = append(out.Errors, toValidationError(re))
	}
	sort.SliceStable(out.Errors, func(i, j int) bool {
		if out.Errors[i].Code != out.Errors[j].Code {
			return out.Errors[i].Code == CodeRequired
		}
		return out.Errors[i].Field < out.Errors[j].Field
	})
	return out, nil
}

// Check validates document and returns a MISSING_FIELD error naming the
// first offending field.
func (s *Schema) Check(document string) error {
	res, err := s.Validate(document)
	if err != nil {
		return err
	}
	return res.Err()
}

// Err converts the first validation error into a coded error.
func (vr *ValidationResult) Err() error {
	if vr.Valid || len(vr.Errors) == 0 {
		return nil
	}
	first := vr.Errors[0]
	if first.Code == CodeRequired {
		return errors.NewMissingFieldError(first.Field)
	}
	return errors.NewInvalidFieldError(first.Field, first.Message)
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

func toValidationError(re gojsonschema.ResultError) ValidationError {
	field := re.Field()
	if field == "(root)" {
		field = ""
	}
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok {
			if field == "" {
				field = prop
			} else {
				field = field + "." + prop
			}
		}
		return ValidationError{Field: field, Message: re.Description(), Code: CodeRequired}
	}
	if field == "" {
		field = "variables"
	}
	return ValidationError{Field: field, Message: re.Description(), Code: CodeInvalid}
}
