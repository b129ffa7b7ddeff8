package visualping

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ambiyansyah-risyal/visualping/internal/singleflight"
)

// Login methods accepted by the token endpoint.
const (
	FlowPassword = "PASSWORD"
	FlowRefresh  = "REFRESH_TOKEN"
)

const authFlightKey = "authenticate"

type passwordLogin struct {
	Method   string `json:"method"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshLogin struct {
	Method       string `json:"method"`
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

// EnsureAuthenticated makes sure the session holds a usable access token,
// logging in with the password or renewing with the refresh token as needed.
// Concurrent callers share a single in-flight login and all observe its
// outcome. On failure the session is left as it was.
//
// A caller whose ctx ends returns ctx.Err() at once. The login itself keeps
// running, bounded by the transport timeout, and still updates the session.
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	_, err, shared := c.authFlight.Do(ctx, authFlightKey, func() (interface{}, error) {
		return nil, c.authenticate(context.WithoutCancel(ctx))
	})
	left := ctx.Err() != nil && err == ctx.Err()
	if shared && !left {
		c.metrics.RecordAuthShared()
	}

	var panicErr *singleflight.PanicError
	if errors.As(err, &panicErr) {
		c.warn("Login panicked", "panic", fmt.Sprint(panicErr.Value), "stack", string(panicErr.Stack))
		return &APIError{
			Type:    ErrorTypeAuth,
			Message: "login did not complete",
			Method:  http.MethodPost,
			URL:     c.tokenURL,
			Cause:   fmt.Errorf("login panicked: %v", panicErr.Value),
		}
	}
	return err
}

func (c *Client) authenticate(ctx context.Context) error {
	c.restoreOnce.Do(func() { c.restoreFromStore(ctx) })

	switch {
	case !c.session.IsRenewalValid():
		return c.passwordFlow(ctx)
	case !c.session.IsAccessValid():
		return c.refreshFlow(ctx)
	default:
		return nil
	}
}

func (c *Client) passwordFlow(ctx context.Context) error {
	start := time.Now()
	if c.logEnabled(logAuth) {
		c.logger.Debug("Authenticating with password", "email", c.email)
	}

	var resp tokenResponse
	err := c.password.with(func(plain []byte) error {
		body := passwordLogin{Method: FlowPassword, Email: c.email, Password: string(plain)}
		_, err := c.send(ctx, c.tokenURL, RequestOptions{Method: http.MethodPost, Body: body}, &resp)
		return err
	})
	if err == nil && (resp.IDToken == "" || resp.RefreshToken == "") {
		err = &APIError{
			Type:     ErrorTypeAuth,
			Message:  "token response is missing id_token or refresh_token",
			Method:   http.MethodPost,
			URL:      c.tokenURL,
			Duration: time.Since(start),
		}
	}
	if err != nil {
		c.authFailed(FlowPassword, err)
		return err
	}

	creds := c.session.setAll(resp.IDToken, resp.RefreshToken)
	c.authSucceeded(ctx, FlowPassword, creds, time.Since(start))
	return nil
}

func (c *Client) refreshFlow(ctx context.Context) error {
	start := time.Now()
	if c.logEnabled(logAuth) {
		c.logger.Debug("Renewing access token")
	}

	var resp tokenResponse
	body := refreshLogin{Method: FlowRefresh, RefreshToken: c.session.Snapshot().RefreshToken}
	_, err := c.send(ctx, c.tokenURL, RequestOptions{Method: http.MethodPost, Body: body}, &resp)
	if err == nil && resp.IDToken == "" {
		err = &APIError{
			Type:     ErrorTypeAuth,
			Message:  "token response is missing id_token",
			Method:   http.MethodPost,
			URL:      c.tokenURL,
			Duration: time.Since(start),
		}
	}
	if err != nil {
		c.authFailed(FlowRefresh, err)
		return err
	}

	creds := c.session.setAccess(resp.IDToken)
	c.authSucceeded(ctx, FlowRefresh, creds, time.Since(start))
	return nil
}

func (c *Client) authSucceeded(ctx context.Context, flow string, creds Credentials, duration time.Duration) {
	c.metrics.RecordAuth(flow, "success", duration)
	if c.logEnabled(logAuth) {
		kv := []any{"flow", flow, "duration", duration}
		if info, err := ParseTokenInfo(creds.AccessToken); err == nil && !info.ExpiresAt.IsZero() {
			kv = append(kv, "serverExpiry", info.ExpiresAt)
		}
		c.logger.Info("Authenticated", kv...)
	}

	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, creds); err != nil {
		c.warn("Failed to persist session", "error", err.Error())
	}
}

func (c *Client) authFailed(flow string, err error) {
	c.metrics.RecordAuth(flow, "failure", 0)
	if c.logEnabled(logAuth) {
		c.logger.Warn("Authentication failed", "flow", flow, "status", StatusCode(err), "error", err.Error())
	}
}

// restoreFromStore seeds an empty session from the configured store once.
func (c *Client) restoreFromStore(ctx context.Context) {
	if c.store == nil || !c.session.Snapshot().IsZero() {
		return
	}
	creds, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			c.warn("Failed to load stored session", "error", err.Error())
		}
		return
	}
	c.session.replace(creds)
	if c.logEnabled(logAuth) {
		c.logger.Debug("Restored stored session", "accessValid", c.session.IsAccessValid(), "refreshValid", c.session.IsRenewalValid())
	}
}

// Session returns a snapshot of the client's current credentials.
func (c *Client) Session() Credentials {
	return c.session.Snapshot()
}

// RestoreSession replaces the in-memory credentials, e.g. with tokens saved
// by the caller from an earlier process.
func (c *Client) RestoreSession(creds Credentials) {
	c.session.replace(creds)
}

// Logout forgets all credentials held in memory. A configured store is not
// touched.
func (c *Client) Logout() {
	c.session.replace(Credentials{})
}
