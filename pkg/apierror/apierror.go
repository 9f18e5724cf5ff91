package apierror

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeAuthentication = "AUTHENTICATION_FAILED"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeInvalidToken   = "INVALID_TOKEN"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeBadRequest     = "BAD_REQUEST"
	CodeInternal       = "INTERNAL_ERROR"
)

type APIError struct {
	Code       string              `json:"code"`
	Message    string              `json:"message"`
	Details    string              `json:"details,omitempty"`
	Fields     map[string][]string `json:"fields,omitempty"`
	HTTPStatus int                 `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for key := range e.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return fmt.Sprintf("%s: %s [%s]", e.Code, e.Message, strings.Join(keys, ","))
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Validation builds a 422 carrying one or more messages per offending field.
func Validation(fields map[string][]string) *APIError {
	return &APIError{
		Code:       CodeValidation,
		Message:    "validation failed",
		Fields:     fields,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func NotFound(message string, details string) *APIError {
	return New(CodeNotFound, message, details, http.StatusNotFound)
}

func Unauthorized(message string) *APIError {
	return New(CodeUnauthorized, message, "", http.StatusUnauthorized)
}

// FieldErrors accumulates per-field messages in declaration order.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field string, message string) {
	f[field] = append(f[field], message)
}

func (f FieldErrors) Has(field string) bool {
	return len(f[field]) > 0
}

func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Err returns nil when no field failed.
func (f FieldErrors) Err() error {
	if f.Empty() {
		return nil
	}

	return Validation(f)
}
