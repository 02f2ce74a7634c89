// Package validation collects per-field form errors so a handler can report
// all of them in one response.
package validation

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned by services when a form fails validation. The zero
// value holds no failures.
type Error struct {
	Fields []FieldError `json:"errors"`
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Add records a failure for field.
func (e *Error) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Required adds "<label> is required" when value is blank.
func (e *Error) Required(field, label, value string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, label+" is required")
	}
}

// Has reports whether field failed at least one rule.
func (e *Error) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Err returns e when it holds failures and nil otherwise.
func (e *Error) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// HTTPError maps a validation failure to 422 with the field list, and
// reports false for any other error.
func HTTPError(err error) (*echo.HTTPError, bool) {
	var ve *Error
	if !errors.As(err, &ve) {
		return nil, false
	}
	return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
		"message": ve.Error(),
		"errors":  ve.Fields,
	}), true
}
