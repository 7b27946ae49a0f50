package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeSchema       ErrorType = "schema"
	ErrorTypeMissingField ErrorType = "missing_field"
	ErrorTypeUnavailable  ErrorType = "unavailable"
	ErrorTypeDownload     ErrorType = "download"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeAuth         ErrorType = "auth"
	ErrorTypeParsing      ErrorType = "parsing"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeServerError  ErrorType = "server_error"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Error is the single error value used across the module. Type selects the
// taxonomy entry; URL names the post or media URL the failure belongs to.
type Error struct {
	Type    ErrorType
	Message string
	URL     string
	Field   string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	b.WriteString(" error")
	if e.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}
	if e.URL != "" {
		fmt.Fprintf(&b, " [%s]", e.URL)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by type, so errors.Is(err, &Error{Type: ...}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Message == "" && t.URL == "" && t.Field == ""
}

// UnrecognizedSchema reports a payload that matches no known upstream shape.
func UnrecognizedSchema(message string) error {
	return &Error{Type: ErrorTypeSchema, Message: message}
}

// MissingField reports a required attribute absent under every known alias.
func MissingField(field string) error {
	return &Error{
		Type:    ErrorTypeMissingField,
		Message: fmt.Sprintf("required field %q not found", field),
		Field:   field,
	}
}

// Unavailable reports that the upstream says the post is gone or private.
func Unavailable(url string) error {
	return &Error{
		Type:    ErrorTypeUnavailable,
		Message: "post is not available",
		URL:     url,
	}
}

// Download wraps a transport or filesystem failure for one media item.
func Download(url string, err error) error {
	return &Error{
		Type:    ErrorTypeDownload,
		Message: "media download failed",
		URL:     url,
		Err:     err,
	}
}

// Validation reports a post that violates the model invariants.
func Validation(field, message string) error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Field:   field,
	}
}

// New creates an error of the given type.
func New(errorType ErrorType, code int, message string) error {
	return &Error{Type: errorType, Code: code, Message: message}
}

// Wrap creates an error of the given type around err.
func Wrap(errorType ErrorType, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Type: errorType, Message: message, Err: err}
}

// WithURL stamps url onto err. Typed errors without a URL get it set on a
// copy; anything else is wrapped as unknown.
func WithURL(err error, url string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.URL == url {
			return err
		}
		if e.URL == "" && err == error(e) {
			cp := *e
			cp.URL = url
			return &cp
		}
	}
	return &Error{
		Type:    TypeOf(err),
		Message: "request failed",
		URL:     url,
		Err:     err,
	}
}

// TypeOf returns the type of the first *Error in the chain.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// URLOf returns the first URL found in the error chain.
func URLOf(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok && e.URL != "" {
			return e.URL
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// IsUnrecognizedSchema reports whether err is an unrecognized schema error.
func IsUnrecognizedSchema(err error) bool {
	return TypeOf(err) == ErrorTypeSchema
}

// IsMissingField reports whether err is a missing field error.
func IsMissingField(err error) bool {
	return TypeOf(err) == ErrorTypeMissingField
}

// IsUnavailable reports whether err says the post is unavailable.
func IsUnavailable(err error) bool {
	return TypeOf(err) == ErrorTypeUnavailable
}

// IsDownload reports whether err is a media download error.
func IsDownload(err error) bool {
	return TypeOf(err) == ErrorTypeDownload
}

// IsValidation reports whether err is a post validation error.
func IsValidation(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
