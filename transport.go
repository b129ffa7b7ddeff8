package visualping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	contentTypeJSON = "application/json"
	timeoutMessage  = "Request timeout"
)

// send performs exactly one HTTP exchange bounded by the client timeout and
// decodes a 2xx JSON body into out. It returns the response status, 0 when
// none was obtained. Every failure is an *APIError except cancellation of ctx
// by the caller, which is returned as ctx.Err().
func (c *Client) send(ctx context.Context, endpoint string, opts RequestOptions, out any) (int, error) {
	start := time.Now()

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(callCtx, endpoint, opts)
	if err != nil {
		return 0, err
	}

	resp, err := c.executeMiddleware(req)
	if err != nil {
		return 0, c.transportFailure(ctx, callCtx, req, err, start)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		failure := c.transportFailure(ctx, callCtx, req, err, start)
		return StatusCode(failure), failure
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newStatusError(resp.StatusCode, body)
		annotate(apiErr, req, time.Since(start))
		return resp.StatusCode, apiErr
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return resp.StatusCode, nil
	}
	if out == nil {
		if !json.Valid(body) {
			return resp.StatusCode, parseFailure(req, resp.StatusCode, errors.New("invalid JSON in response body"), start)
		}
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, parseFailure(req, resp.StatusCode, err, start)
	}
	return resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, endpoint string, opts RequestOptions) (*http.Request, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := withQuery(endpoint, opts.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if opts.Body != nil {
		encoded, err := encodeBody(opts.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", contentTypeJSON)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

func withQuery(endpoint string, query url.Values) (string, error) {
	if len(query) == 0 {
		return endpoint, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	values := u.Query()
	for key, vals := range query {
		for _, v := range vals {
			values.Add(key, v)
		}
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return encoded, nil
}

// transportFailure classifies an error raised before a complete response was read.
func (c *Client) transportFailure(parent, callCtx context.Context, req *http.Request, err error, start time.Time) error {
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}
	var apiErr *APIError
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		apiErr = &APIError{
			Type:       ErrorTypeTimeout,
			StatusCode: http.StatusRequestTimeout,
			Message:    timeoutMessage,
		}
	} else {
		apiErr = &APIError{
			Type:    ErrorTypeNetwork,
			Message: "network request failed",
			Cause:   err,
		}
	}
	annotate(apiErr, req, time.Since(start))
	return apiErr
}

func parseFailure(req *http.Request, status int, err error, start time.Time) error {
	apiErr := &APIError{
		Type:       ErrorTypeParse,
		StatusCode: status,
		Message:    "decode response",
		Cause:      err,
	}
	annotate(apiErr, req, time.Since(start))
	return apiErr
}

// newStatusError builds the classified error for a non-2xx response. The
// message comes from the JSON payload's message, then code, then the whole
// payload; a non-JSON body falls back to its text, then the status text.
func newStatusError(status int, body []byte) *APIError {
	apiErr := &APIError{
		Type:       errorTypeForStatus(status),
		StatusCode: status,
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Payload = payload
		apiErr.Message = payloadMessage(payload)
		return apiErr
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(status)
	}
	apiErr.Message = text
	return apiErr
}

func payloadMessage(payload any) string {
	if fields, ok := payload.(map[string]any); ok {
		if msg := scalarText(fields["message"]); msg != "" {
			return msg
		}
		if code := scalarText(fields["code"]); code != "" {
			return code
		}
	}
	serialized, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprint(payload)
	}
	return string(serialized)
}

// scalarText renders a non-empty JSON value as text; empty, zero, false and
// null values yield "".
func scalarText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return ""
	case float64:
		if val == 0 {
			return ""
		}
		return fmt.Sprint(val)
	default:
		serialized, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(serialized)
	}
}

func annotate(apiErr *APIError, req *http.Request, duration time.Duration) {
	apiErr.Method = req.Method
	apiErr.URL = req.URL.String()
	apiErr.Endpoint = getEndpointFromRequest(req)
	apiErr.Timestamp = time.Now()
	apiErr.Duration = duration
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

func getEndpointFromRequest(req *http.Request) string {
	return endpointFromURL(req.URL)
}

// endpointLabel reduces a raw endpoint to host+path for metrics and logs.
func endpointLabel(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "unknown"
	}
	return endpointFromURL(u)
}

func endpointFromURL(u *url.URL) string {
	if u == nil {
		return "unknown"
	}

	host := u.Host
	path := u.Path

	var builder strings.Builder
	builder.WriteString(host)

	if path != "" && path != "/" {
		builder.WriteString(path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
