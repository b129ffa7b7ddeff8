package visualping

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// Option represents a configuration option
type Option func(*Client)

// RequestOptions describes one API call passed through the request pipeline.
type RequestOptions struct {
	// Method defaults to GET.
	Method string
	// Headers are merged over Content-Type: application/json. Authorization is
	// always replaced by the session's bearer token when one is held.
	Headers map[string]string
	Query   url.Values
	// Body is sent as JSON. []byte and json.RawMessage are sent verbatim.
	Body any
}

// Middleware wraps every outgoing HTTP round trip, auth calls included.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Logger is the structured logger the client writes debug output to.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// DebugConfig selects which client events are logged.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogRetries   bool
	LogAuth      bool
	RequestIDGen func() string
}

// DefaultDebugConfig returns a disabled config that logs everything once enabled.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogRetries:   true,
		LogAuth:      true,
		RequestIDGen: uuid.NewString,
	}
}

// SessionStore persists credentials between Client instances.
type SessionStore interface {
	// Load returns ErrSessionNotFound when nothing has been saved.
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, creds Credentials) error
}
