package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Every typed error below unwraps to exactly one of these, so
// callers branch with errors.Is and never need the concrete type.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrRateLimited    = errors.New("rate limited")
	ErrNetwork        = errors.New("network error")
	ErrTimeout        = errors.New("timeout")
	ErrHTTPStatus     = errors.New("unexpected http status")
	ErrParse          = errors.New("parse error")
	ErrSourceDisabled = errors.New("source disabled")
)

// ValidationError rejects one field of a request or record.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NotFoundError reports a catalog identifier a source does not know.
type NotFoundError struct {
	Kind string
	ID   string
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RateLimitError is a source that kept throttling after every retry.
// RetryAfter is the last delay the source asked for, zero if none.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

func NewRateLimitError(source string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Source: source, RetryAfter: retryAfter}
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s is throttling requests, retry in %s", e.Source, e.RetryAfter)
	}
	return e.Source + " is throttling requests"
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// NetworkError is a fetch-level failure talking to a source.
type NetworkError struct {
	Source string
	Cause  error
}

func NewNetworkError(source string, cause error) *NetworkError {
	return &NetworkError{Source: source, Cause: cause}
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s network error: %v", e.Source, e.Cause)
}

func (e *NetworkError) Unwrap() []error { return []error{ErrNetwork, e.Cause} }

// TimeoutError is an exceeded request deadline.
type TimeoutError struct {
	Source  string
	Timeout time.Duration
	Cause   error
}

func NewTimeoutError(source string, timeout time.Duration, cause error) *TimeoutError {
	return &TimeoutError{Source: source, Timeout: timeout, Cause: cause}
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("%s request timed out after %s", e.Source, e.Timeout)
	}
	return e.Source + " request timed out"
}

func (e *TimeoutError) Unwrap() []error { return []error{ErrTimeout, e.Cause} }

// HTTPError is a non-2xx answer. Message holds a trimmed body snippet.
type HTTPError struct {
	Source     string
	StatusCode int
	Message    string
}

func NewHTTPError(source string, statusCode int, message string) *HTTPError {
	return &HTTPError{Source: source, StatusCode: statusCode, Message: message}
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s answered %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s answered %d: %s", e.Source, e.StatusCode, e.Message)
}

func (e *HTTPError) Unwrap() error { return ErrHTTPStatus }

// ParseError is a malformed JSON or text payload.
type ParseError struct {
	Source string
	Cause  error
}

func NewParseError(source string, cause error) *ParseError {
	return &ParseError{Source: source, Cause: cause}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s response could not be parsed: %v", e.Source, e.Cause)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Cause} }

// ErrorKind returns a short label for an error, suitable for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrHTTPStatus):
		return "http_status"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}
