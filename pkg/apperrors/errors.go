package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failure by who has to fix it.
type Kind string

const (
	KindConfiguration Kind = "CONFIGURATION_ERROR"
	KindClient        Kind = "CLIENT_ERROR"
	KindNotFound      Kind = "NOT_FOUND"
	KindUpstream      Kind = "UPSTREAM_ERROR"
	KindValidation    Kind = "VALIDATION_ERROR"
)

// Error is the application error carried across package boundaries.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
	// Status overrides the default HTTP status of Kind when non-zero.
	Status int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to a response status.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindConfiguration:
		return http.StatusInternalServerError
	case KindClient, KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func Configuration(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func Client(format string, args ...interface{}) *Error {
	return &Error{Kind: KindClient, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps a failure reported by the store or a third-party API.
func Upstream(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation builds a field-level validation error. The message lists the offending fields.
func Validation(fields map[string]string) *Error {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+": "+fields[n])
	}
	return &Error{Kind: KindValidation, Message: "invalid input (" + strings.Join(parts, "; ") + ")", Fields: fields}
}

// WithStatus returns the error with an explicit HTTP status.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// As extracts an *Error from the chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == kind
}

// StatusOf returns the HTTP status for err, 500 when err is not an *Error.
func StatusOf(err error) int {
	if ae, ok := As(err); ok {
		return ae.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Body returns the status and JSON body describing err to an HTTP caller.
// Errors that are not *Error are reported without their text.
func Body(err error) (int, map[string]interface{}) {
	ae, ok := As(err)
	if !ok {
		return http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "internal server error"}
	}
	body := map[string]interface{}{"success": false, "error": ae.Message}
	if len(ae.Fields) > 0 {
		body["fields"] = ae.Fields
	}
	return ae.HTTPStatus(), body
}
