package visualping

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error types attached to APIError.Type.
const (
	ErrorTypeNetwork    = "NetworkError"
	ErrorTypeTimeout    = "TimeoutError"
	ErrorTypeServer     = "ServerError"
	ErrorTypeRateLimit  = "RateLimitError"
	ErrorTypeClient     = "ClientError"
	ErrorTypeParse      = "ParseError"
	ErrorTypeAuth       = "AuthError"
	ErrorTypeValidation = "ValidationError"
)

// Sentinel errors for common failure scenarios. An *APIError matches the
// sentinel for its status code under errors.Is.
var (
	ErrUnauthorized    = errors.New("visualping: unauthorized")
	ErrForbidden       = errors.New("visualping: forbidden")
	ErrNotFound        = errors.New("visualping: not found")
	ErrRateLimited     = errors.New("visualping: rate limited")
	ErrTimeout         = errors.New("visualping: request timeout")
	ErrSessionNotFound = errors.New("visualping: session not found")
	ErrInvalidConfig   = errors.New("visualping: invalid configuration")
)

// APIError is the classified error produced by the transport. StatusCode is
// zero when the failure happened before any HTTP response was obtained.
type APIError struct {
	Type       string
	StatusCode int
	Message    string
	// Payload is the parsed JSON error body, nil when the body was not JSON.
	Payload any
	Cause   error

	RequestID  string
	Method     string
	URL        string
	Endpoint   string
	Attempt    int
	MaxRetries int
	Timestamp  time.Time
	Duration   time.Duration
}

// Error implements error interface.
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s: %d %s", e.Type, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries+1)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another *APIError by Type, or a status sentinel by StatusCode.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*APIError); ok {
		return e.Type == targetErr.Type
	}
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrTimeout:
		return e.StatusCode == http.StatusRequestTimeout
	}
	return false
}

// HasStatus reports whether an HTTP response was obtained.
func (e *APIError) HasStatus() bool {
	return e != nil && e.StatusCode > 0
}

// IsTransient reports whether the failure is expected to clear on retry.
func (e *APIError) IsTransient() bool {
	if e == nil {
		return false
	}
	if !e.HasStatus() {
		return e.Type == ErrorTypeNetwork
	}
	return isTransientStatus(e.StatusCode)
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *APIError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.Endpoint != "" {
		info += fmt.Sprintf("Endpoint: %s\n", e.Endpoint)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if e.Attempt > 0 {
		info += fmt.Sprintf("Attempt: %d/%d\n", e.Attempt, e.MaxRetries+1)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

// IsTransient determines if an error represents a transient failure that might
// succeed on retry: network failures without a response, 429 and 5xx.
// Timeouts (408), other 4xx, parse errors and context cancellation are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsTransient()
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0 if there is none.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// errorTypeForStatus maps a non-success status to an error type.
func errorTypeForStatus(code int) string {
	switch {
	case code == http.StatusRequestTimeout:
		return ErrorTypeTimeout
	case code == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case code >= 500:
		return ErrorTypeServer
	default:
		return ErrorTypeClient
	}
}
