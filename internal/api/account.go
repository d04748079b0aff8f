package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// AccountConfig is the server-side behavior of an account's capture
// endpoint: the body it answers with and the simulated latency range.
type AccountConfig struct {
	Username        string          `json:"username,omitempty"`
	DefaultResponse json.RawMessage `json:"default_response" validate:"required,json"`
	ResponseTimeMin int             `json:"response_time_min" validate:"gte=0"`
	ResponseTimeMax int             `json:"response_time_max" validate:"gte=0,gtefield=ResponseTimeMin"`
}

// ValidationError lists the fields of a configuration that failed local
// checks.
type ValidationError struct {
	Fields []FieldError
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "invalid account config: " + strings.Join(msgs, "; ")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration without contacting the server.
func (c AccountConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, FieldError{Field: jsonName(fe.Field()), Message: describe(fe)})
	}
	return ve
}

func jsonName(field string) string {
	switch field {
	case "DefaultResponse":
		return "default_response"
	case "ResponseTimeMin":
		return "response_time_min"
	case "ResponseTimeMax":
		return "response_time_max"
	}
	return field
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "json":
		return "must be valid JSON"
	case "gte":
		return "must not be negative"
	case "gtefield":
		return "must be greater than or equal to response_time_min"
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}
