package visualping

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ambiyansyah-risyal/visualping/internal/singleflight"
)

const (
	DefaultTokenURL       = "https://account.api.visualping.io/v2/token"
	DefaultAccountBaseURL = "https://account.api.visualping.io"
	DefaultJobsBaseURL    = "https://job.api.visualping.io"

	DefaultTimeout        = 30000 * time.Millisecond
	DefaultMaxRetries     = 2
	DefaultInitialBackoff = 200 * time.Millisecond
)

// Client is an authenticated Visualping API client. It keeps one session per
// instance, shares logins between concurrent requests and retries transient
// failures. It is safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	email          string
	password       *secret
	tokenURL       string
	accountBaseURL string
	jobsBaseURL    string
	userAgent      string
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	retryPolicy    RetryPolicy
	middleware     []Middleware
	rateLimiter    *rate.Limiter
	metrics        *MetricsCollector
	debug          *DebugConfig
	logger         Logger
	store          SessionStore
	now            func() time.Time

	session     *Session
	authFlight  *singleflight.Group
	restoreOnce sync.Once

	validationError error
}

// New constructs a Client for the given account using the provided functional
// options. A best effort validation is performed; call IsValid /
// ValidationError for errors.
func New(email, password string, options ...Option) *Client {
	client := &Client{
		httpClient:     &http.Client{},
		email:          email,
		password:       newSecret(password),
		tokenURL:       DefaultTokenURL,
		accountBaseURL: DefaultAccountBaseURL,
		jobsBaseURL:    DefaultJobsBaseURL,
		userAgent:      "visualping-go/" + Version,
		timeout:        DefaultTimeout,
		maxRetries:     DefaultMaxRetries,
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     0,
		retryPolicy:    nil, // built from the backoff settings below
		middleware:     []Middleware{},
		rateLimiter:    nil,
		metrics:        nil,
		debug:          DefaultDebugConfig(),
		logger:         nil,
		store:          nil,
		now:            time.Now,
		authFlight:     singleflight.New(),
	}

	for _, option := range options {
		option(client)
	}

	if client.retryPolicy == nil {
		client.retryPolicy = NewDefaultRetryPolicy(client.initialBackoff, client.maxBackoff)
	}
	client.session = newSession(client.now)

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// AuthenticatedRequest sends one logical API call with the client's default
// retry budget. See AuthenticatedRequestWithRetries.
func (c *Client) AuthenticatedRequest(ctx context.Context, endpoint string, opts RequestOptions, out any) error {
	return c.AuthenticatedRequestWithRetries(ctx, endpoint, opts, c.maxRetries, out)
}

// AuthenticatedRequestWithRetries ensures the session is authenticated, then
// sends the request with a bearer token, retrying transient failures up to
// maxRetries times. Authentication failures are returned without retry. The
// 2xx JSON response is decoded into out when out is non-nil.
func (c *Client) AuthenticatedRequestWithRetries(ctx context.Context, endpoint string, opts RequestOptions, maxRetries int, out any) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	start := time.Now()
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	label := endpointLabel(endpoint)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}

	if c.logEnabled(logRequests) {
		c.logger.Debug("Starting request", "requestID", requestID, "method", method, "endpoint", label)
	}

	c.metrics.RecordRequestStart(method, label)
	defer c.metrics.RecordRequestEnd(method, label)

	if err := c.EnsureAuthenticated(ctx); err != nil {
		c.metrics.RecordError(authErrorType(err), method, label)
		c.metrics.RecordRequest(method, label, StatusCode(err), time.Since(start))
		return err
	}

	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			if c.logEnabled(logRetries) {
				c.logger.Info("Retry attempt", "requestID", requestID, "attempt", attempt, "maxRetries", maxRetries, "endpoint", label)
			}
			c.metrics.RecordRetry(method, label, attempt-1)
		}

		attemptOpts := opts
		attemptOpts.Headers = c.requestHeaders(opts.Headers)

		status, err := c.send(ctx, endpoint, attemptOpts, out)
		if err == nil {
			c.metrics.RecordRequest(method, label, status, time.Since(start))
			if c.logEnabled(logRequests) {
				c.logger.Debug("Request completed", "requestID", requestID, "status", status, "attempts", attempt, "duration", time.Since(start))
			}
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			apiErr.RequestID = requestID
			apiErr.Attempt = attempt
			apiErr.MaxRetries = maxRetries
			c.metrics.RecordError(apiErr.Type, method, label)
		}

		delay, retry := c.retryPolicy.ShouldRetry(err, attempt, maxRetries)
		if !retry {
			c.metrics.RecordRequest(method, label, status, time.Since(start))
			if c.logEnabled(logRequests) {
				c.logger.Warn("Request failed", "requestID", requestID, "status", status, "attempts", attempt, "error", err.Error())
			}
			return err
		}

		if c.logEnabled(logRetries) {
			c.logger.Info("Scheduling retry", "requestID", requestID, "attempt", attempt+1, "backoff", delay, "status", status, "endpoint", label)
		}

		if err := sleepContext(ctx, delay); err != nil {
			c.metrics.RecordRequest(method, label, status, time.Since(start))
			return err
		}
	}
}

// requestHeaders merges caller headers over the JSON content type and puts
// the bearer token last so it always wins.
func (c *Client) requestHeaders(callerHeaders map[string]string) map[string]string {
	headers := make(map[string]string, len(callerHeaders)+2)
	headers["Content-Type"] = contentTypeJSON
	for key, value := range callerHeaders {
		if strings.EqualFold(key, "Content-Type") {
			key = "Content-Type"
		}
		headers[key] = value
	}

	if token := c.session.AccessToken(); token != "" {
		for key := range headers {
			if strings.EqualFold(key, "Authorization") {
				delete(headers, key)
			}
		}
		headers["Authorization"] = "Bearer " + token
	}
	return headers
}

// authErrorType labels a failed login. Rejections stay auth errors; an
// unreachable or failing token endpoint keeps its transport type.
func authErrorType(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeServer, ErrorTypeRateLimit:
			return apiErr.Type
		}
	}
	return ErrorTypeAuth
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// MustValidateConfiguration panics if configuration is invalid.
func (c *Client) MustValidateConfiguration() {
	if err := c.ValidateConfiguration(); err != nil {
		panic(fmt.Sprintf("invalid client configuration: %v", err))
	}
}

// Email returns the account the client logs in as.
func (c *Client) Email() string {
	return c.email
}
