package visualping

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testEmail    = "user@example.com"
	testPassword = "correct horse"
	tokenPath    = "/v2/token"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// loginRequest is the decoded body of a token call.
type loginRequest struct {
	Method       string `json:"method"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refreshToken"`
	Authorized   bool   `json:"-"`
}

// testAPI serves the token endpoint and a catch-all API handler.
type testAPI struct {
	server *httptest.Server

	tokenCalls atomic.Int32
	apiCalls   atomic.Int32

	mu     sync.Mutex
	logins []loginRequest

	// tokenHandler answers the n-th (1-indexed) token call. The default
	// returns id-n / refresh-n.
	tokenHandler func(w http.ResponseWriter, r *http.Request, n int)
	// apiHandler answers the n-th (1-indexed) non-token call. The default
	// returns {"ok":true}.
	apiHandler func(w http.ResponseWriter, r *http.Request, n int)
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	api := &testAPI{}
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenPath {
			n := int(api.tokenCalls.Add(1))
			var login loginRequest
			if err := json.NewDecoder(r.Body).Decode(&login); err != nil {
				t.Errorf("Failed to decode login body: %v", err)
			}
			login.Authorized = r.Header.Get("Authorization") != ""
			api.mu.Lock()
			api.logins = append(api.logins, login)
			api.mu.Unlock()

			if api.tokenHandler != nil {
				api.tokenHandler(w, r, n)
				return
			}
			writeJSON(w, http.StatusOK, fmt.Sprintf(`{"id_token":"id-%d","refresh_token":"refresh-%d"}`, n, n))
			return
		}

		n := int(api.apiCalls.Add(1))
		if api.apiHandler != nil {
			api.apiHandler(w, r, n)
			return
		}
		writeJSON(w, http.StatusOK, `{"ok":true}`)
	}))
	t.Cleanup(api.server.Close)
	return api
}

func (api *testAPI) URL(path string) string {
	return api.server.URL + path
}

func (api *testAPI) Logins() []loginRequest {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]loginRequest(nil), api.logins...)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// statusSequence answers the n-th call with statuses[n-1], repeating the last one.
func statusSequence(statuses ...int) func(w http.ResponseWriter, r *http.Request, n int) {
	return func(w http.ResponseWriter, r *http.Request, n int) {
		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		if status >= 200 && status < 300 {
			writeJSON(w, status, `{"ok":true}`)
			return
		}
		writeJSON(w, status, fmt.Sprintf(`{"message":"status %d"}`, status))
	}
}

func newTestClient(t *testing.T, api *testAPI, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithTokenURL(api.URL(tokenPath)),
		WithAccountBaseURL(api.server.URL),
		WithJobsBaseURL(api.server.URL),
		WithInitialBackoff(time.Millisecond),
	}
	client := New(testEmail, testPassword, append(base, opts...)...)
	if err := client.ValidationError(); err != nil {
		t.Fatalf("Client configuration invalid: %v", err)
	}
	return client
}
