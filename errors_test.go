package visualping

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAPIErrorError(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{"status", &APIError{Type: ErrorTypeClient, StatusCode: 404, Message: "Job not found"}, "ClientError: 404 Job not found"},
		{"no status", &APIError{Type: ErrorTypeNetwork, Message: "network request failed", Cause: errors.New("dial tcp")}, "NetworkError: network request failed (dial tcp)"},
		{"attempt", &APIError{Type: ErrorTypeServer, StatusCode: 500, Message: "boom", RequestID: "r1", Attempt: 3, MaxRetries: 2}, "[r1] ServerError: 500 boom (attempt 3/3)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	var nilErr *APIError
	if nilErr.Error() != "<nil>" {
		t.Errorf("nil Error() = %q", nilErr.Error())
	}
}

func TestAPIErrorIs(t *testing.T) {
	tests := []struct {
		status int
		target error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusRequestTimeout, ErrTimeout},
	}
	for _, tt := range tests {
		err := fmt.Errorf("wrapped: %w", newStatusError(tt.status, nil))
		if !errors.Is(err, tt.target) {
			t.Errorf("status %d should match %v", tt.status, tt.target)
		}
		if errors.Is(err, ErrSessionNotFound) {
			t.Errorf("status %d should not match ErrSessionNotFound", tt.status)
		}
	}

	if !errors.Is(&APIError{Type: ErrorTypeParse}, &APIError{Type: ErrorTypeParse}) {
		t.Error("APIErrors of the same type should match")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", &APIError{Type: ErrorTypeNetwork}, true},
		{"timeout 408", &APIError{Type: ErrorTypeTimeout, StatusCode: 408}, false},
		{"429", &APIError{Type: ErrorTypeRateLimit, StatusCode: 429}, true},
		{"500", &APIError{Type: ErrorTypeServer, StatusCode: 500}, true},
		{"599", &APIError{Type: ErrorTypeServer, StatusCode: 599}, true},
		{"400", &APIError{Type: ErrorTypeClient, StatusCode: 400}, false},
		{"401", &APIError{Type: ErrorTypeClient, StatusCode: 401}, false},
		{"parse", &APIError{Type: ErrorTypeParse, StatusCode: 200}, false},
		{"auth no status", &APIError{Type: ErrorTypeAuth}, false},
		{"wrapped 503", fmt.Errorf("outer: %w", &APIError{Type: ErrorTypeServer, StatusCode: 503}), true},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"plain", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		wantType string
		wantMsg  string
	}{
		{401, `{"message":"Unauthorized"}`, ErrorTypeClient, "Unauthorized"},
		{408, ``, ErrorTypeTimeout, "Request Timeout"},
		{429, `{"code":"TOO_MANY"}`, ErrorTypeRateLimit, "TOO_MANY"},
		{503, `  `, ErrorTypeServer, "Service Unavailable"},
		{500, `{"message":null,"code":false,"detail":1}`, ErrorTypeServer, `{"code":false,"detail":1,"message":null}`},
		{400, `[1,2]`, ErrorTypeClient, `[1,2]`},
		{400, `"quoted"`, ErrorTypeClient, `"quoted"`},
	}
	for _, tt := range tests {
		err := newStatusError(tt.status, []byte(tt.body))
		if err.Type != tt.wantType || err.Message != tt.wantMsg || err.StatusCode != tt.status {
			t.Errorf("newStatusError(%d, %q) = %s/%q, want %s/%q", tt.status, tt.body, err.Type, err.Message, tt.wantType, tt.wantMsg)
		}
	}
}

func TestStatusCode(t *testing.T) {
	if StatusCode(nil) != 0 {
		t.Error("nil error has no status")
	}
	if StatusCode(errors.New("x")) != 0 {
		t.Error("plain error has no status")
	}
	if StatusCode(fmt.Errorf("w: %w", &APIError{StatusCode: 418})) != 418 {
		t.Error("wrapped status not found")
	}
}

func TestDebugInfo(t *testing.T) {
	err := &APIError{
		Type:       ErrorTypeServer,
		StatusCode: 502,
		Message:    "bad gateway",
		RequestID:  "req-1",
		Method:     "GET",
		URL:        "https://job.api.visualping.io/v2/jobs",
		Attempt:    2,
		MaxRetries: 2,
		Timestamp:  time.Now(),
		Duration:   time.Second,
		Cause:      errors.New("upstream"),
	}
	info := err.DebugInfo()
	for _, want := range []string{"Error Type: ServerError", "Request ID: req-1", "Status Code: 502", "Attempt: 2/3", "Cause: upstream"} {
		if !strings.Contains(info, want) {
			t.Errorf("DebugInfo() missing %q:\n%s", want, info)
		}
	}
}
