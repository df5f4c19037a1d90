package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Request errors
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"

	// Generation pipeline errors
	CodeBackend = "BACKEND_ERROR"
	CodeParse   = "PARSE_ERROR"
	CodeSchema  = "SCHEMA_ERROR"

	// Internal errors
	CodeInternalError = "INTERNAL_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// HTTPStatus returns the HTTP status code
func (e *AppError) HTTPStatus() int {
	return e.Status
}

// Validation errors are raised before any backend call.
func Validation(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func MissingField(field string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("missing required field: %s", field),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

func InvalidField(field, reason string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("invalid value for '%s': %s", field, reason),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

// Backend wraps a failure of the generative backend (transport, fault,
// empty output, open circuit).
func Backend(stage string, err error) *AppError {
	return &AppError{
		Code:    CodeBackend,
		Message: fmt.Sprintf("generation backend failed during %s", stage),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"stage": stage},
		Err:     err,
	}
}

// Parse reports backend output that is not JSON. The raw output is kept
// only in Err so that it can be logged, never rendered.
func Parse(err error) *AppError {
	return &AppError{
		Code:    CodeParse,
		Message: "backend output could not be parsed as JSON",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Schema reports JSON output that does not normalize into an Email.
func Schema(field, reason string) *AppError {
	return &AppError{
		Code:    CodeSchema,
		Message: fmt.Sprintf("backend output failed schema validation: %s %s", field, reason),
		Status:  http.StatusInternalServerError,
		Details: map[string]any{"field": field},
	}
}

// Internal errors
func InternalWithError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// ConfigError reports settings the server cannot start with.
func ConfigError(message string) *AppError {
	return &AppError{
		Code:    CodeConfigError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// IsCode reports whether err is an AppError carrying code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalWithError(err)
}
