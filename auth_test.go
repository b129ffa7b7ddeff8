package visualping

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEnsureAuthenticatedEmptySessionUsesPassword(t *testing.T) {
	api := newTestAPI(t)
	clock := newFakeClock()
	client := newTestClient(t, api, WithClock(clock.Now))

	if err := client.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated() returned error: %v", err)
	}

	logins := api.Logins()
	if len(logins) != 1 {
		t.Fatalf("Expected 1 token call, got %d", len(logins))
	}
	if logins[0].Method != FlowPassword || logins[0].Email != testEmail || logins[0].Password != testPassword {
		t.Errorf("Unexpected login body: %+v", logins[0])
	}
	if logins[0].Authorized {
		t.Error("Token call must not carry an Authorization header")
	}

	creds := client.Session()
	if creds.AccessToken != "id-1" || creds.RefreshToken != "refresh-1" {
		t.Errorf("Unexpected tokens: %+v", creds)
	}
	if !creds.AccessIssuedAt.Equal(clock.Now()) || !creds.RefreshIssuedAt.Equal(clock.Now()) {
		t.Errorf("Expected both timestamps at %v, got %+v", clock.Now(), creds)
	}
}

func TestEnsureAuthenticatedStaleRefreshUsesPassword(t *testing.T) {
	api := newTestAPI(t)
	clock := newFakeClock()
	client := newTestClient(t, api, WithClock(clock.Now))
	client.RestoreSession(Credentials{
		AccessToken:     "old-id",
		AccessIssuedAt:  clock.Now().Add(-time.Hour),
		RefreshToken:    "old-refresh",
		RefreshIssuedAt: clock.Now().Add(-RefreshTokenTTL),
	})

	if err := client.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated() returned error: %v", err)
	}

	logins := api.Logins()
	if len(logins) != 1 || logins[0].Method != FlowPassword {
		t.Fatalf("Expected one PASSWORD login, got %+v", logins)
	}
	if got := client.Session().RefreshToken; got != "refresh-1" {
		t.Errorf("Expected refresh token to be replaced, got %q", got)
	}
}

func TestEnsureAuthenticatedExpiredAccessUsesRefresh(t *testing.T) {
	api := newTestAPI(t)
	api.tokenHandler = func(w http.ResponseWriter, r *http.Request, n int) {
		writeJSON(w, http.StatusOK, `{"id_token":"renewed"}`)
	}
	clock := newFakeClock()
	client := newTestClient(t, api, WithClock(clock.Now))

	refreshIssued := clock.Now().Add(-48 * time.Hour)
	client.RestoreSession(Credentials{
		AccessToken:     "old-id",
		AccessIssuedAt:  clock.Now().Add(-AccessTokenTTL),
		RefreshToken:    "keep-me",
		RefreshIssuedAt: refreshIssued,
	})

	if err := client.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated() returned error: %v", err)
	}

	logins := api.Logins()
	if len(logins) != 1 {
		t.Fatalf("Expected 1 token call, got %d", len(logins))
	}
	if logins[0].Method != FlowRefresh || logins[0].RefreshToken != "keep-me" {
		t.Errorf("Expected REFRESH_TOKEN login with stored token, got %+v", logins[0])
	}
	if logins[0].Email != "" || logins[0].Password != "" {
		t.Error("Refresh login must not send credentials")
	}

	creds := client.Session()
	if creds.AccessToken != "renewed" || !creds.AccessIssuedAt.Equal(clock.Now()) {
		t.Errorf("Unexpected access token state: %+v", creds)
	}
	if creds.RefreshToken != "keep-me" || !creds.RefreshIssuedAt.Equal(refreshIssued) {
		t.Errorf("Refresh token must be untouched, got %+v", creds)
	}
}

func TestEnsureAuthenticatedValidSessionMakesNoCall(t *testing.T) {
	api := newTestAPI(t)
	clock := newFakeClock()
	client := newTestClient(t, api, WithClock(clock.Now))

	before := Credentials{
		AccessToken:     "id",
		AccessIssuedAt:  clock.Now().Add(-AccessTokenTTL + time.Minute),
		RefreshToken:    "refresh",
		RefreshIssuedAt: clock.Now().Add(-RefreshTokenTTL + time.Minute),
	}
	client.RestoreSession(before)

	if err := client.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated() returned error: %v", err)
	}
	if n := api.tokenCalls.Load(); n != 0 {
		t.Errorf("Expected no token calls, got %d", n)
	}
	if after := client.Session(); after != before {
		t.Errorf("Session changed: before %+v, after %+v", before, after)
	}
}

func TestEnsureAuthenticatedAgesOutAccessToken(t *testing.T) {
	api := newTestAPI(t)
	clock := newFakeClock()
	client := newTestClient(t, api, WithClock(clock.Now))
	ctx := context.Background()

	if err := client.EnsureAuthenticated(ctx); err != nil {
		t.Fatalf("EnsureAuthenticated() returned error: %v", err)
	}
	clock.Advance(AccessTokenTTL)
	if err := client.EnsureAuthenticated(ctx); err != nil {
		t.Fatalf("EnsureAuthenticated() returned error: %v", err)
	}
	clock.Advance(RefreshTokenTTL)
	if err := client.EnsureAuthenticated(ctx); err != nil {
		t.Fatalf("EnsureAuthenticated() returned error: %v", err)
	}

	var methods []string
	for _, login := range api.Logins() {
		methods = append(methods, login.Method)
	}
	want := []string{FlowPassword, FlowRefresh, FlowPassword}
	if strings.Join(methods, ",") != strings.Join(want, ",") {
		t.Errorf("Expected flows %v, got %v", want, methods)
	}
}

func TestEnsureAuthenticatedConcurrentCallersShareLogin(t *testing.T) {
	api := newTestAPI(t)
	release := make(chan struct{})
	api.tokenHandler = func(w http.ResponseWriter, r *http.Request, n int) {
		<-release
		writeJSON(w, http.StatusOK, `{"id_token":"shared","refresh_token":"shared-refresh"}`)
	}
	client := newTestClient(t, api)

	const callers = 20
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- client.EnsureAuthenticated(context.Background())
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("EnsureAuthenticated() returned error: %v", err)
		}
	}
	if n := api.tokenCalls.Load(); n != 1 {
		t.Errorf("Expected exactly 1 token call, got %d", n)
	}
	if got := client.Session().AccessToken; got != "shared" {
		t.Errorf("Expected shared token, got %q", got)
	}
}

func TestEnsureAuthenticatedConcurrentCallersShareFailure(t *testing.T) {
	api := newTestAPI(t)
	release := make(chan struct{})
	api.tokenHandler = func(w http.ResponseWriter, r *http.Request, n int) {
		<-release
		writeJSON(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
	}
	client := newTestClient(t, api)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- client.EnsureAuthenticated(context.Background())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Expected unauthorized error, got %v", err)
		}
	}
	if n := api.tokenCalls.Load(); n != 1 {
		t.Errorf("Expected exactly 1 token call, got %d", n)
	}
	if !client.Session().IsZero() {
		t.Errorf("Session must stay empty after a failed login, got %+v", client.Session())
	}

	// The slot is released: a later call logs in again.
	api.tokenHandler = nil
	if err := client.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated() after failure returned error: %v", err)
	}
	if n := api.tokenCalls.Load(); n != 2 {
		t.Errorf("Expected a second token call, got %d", n)
	}
}

func TestEnsureAuthenticatedMissingTokens(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"no refresh token", `{"id_token":"id"}`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.tokenHandler = func(w http.ResponseWriter, r *http.Request, n int) {
				writeJSON(w, http.StatusOK, tt.body)
			}
			client := newTestClient(t, api)

			err := client.EnsureAuthenticated(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Type != ErrorTypeAuth {
				t.Fatalf("Expected AuthError, got %v", err)
			}
			if !client.Session().IsZero() {
				t.Errorf("Session must stay empty, got %+v", client.Session())
			}
		})
	}
}

func TestEnsureAuthenticatedRefreshFailureKeepsSession(t *testing.T) {
	api := newTestAPI(t)
	api.tokenHandler = func(w http.ResponseWriter, r *http.Request, n int) {
		writeJSON(w, http.StatusBadRequest, `{"code":"INVALID_REFRESH_TOKEN"}`)
	}
	clock := newFakeClock()
	client := newTestClient(t, api, WithClock(clock.Now))
	before := Credentials{
		AccessToken:     "old",
		AccessIssuedAt:  clock.Now().Add(-24 * time.Hour),
		RefreshToken:    "r",
		RefreshIssuedAt: clock.Now().Add(-24 * time.Hour),
	}
	client.RestoreSession(before)

	err := client.EnsureAuthenticated(context.Background())
	if err == nil || !strings.Contains(err.Error(), "INVALID_REFRESH_TOKEN") {
		t.Fatalf("Expected refresh failure, got %v", err)
	}
	if after := client.Session(); after != before {
		t.Errorf("Session changed on failure: %+v", after)
	}
}

func TestEnsureAuthenticatedWaiterCancellation(t *testing.T) {
	api := newTestAPI(t)
	release := make(chan struct{})
	api.tokenHandler = func(w http.ResponseWriter, r *http.Request, n int) {
		<-release
		writeJSON(w, http.StatusOK, `{"id_token":"id","refresh_token":"r"}`)
	}
	client := newTestClient(t, api)

	ownerDone := make(chan error, 1)
	go func() { ownerDone <- client.EnsureAuthenticated(context.Background()) }()
	for !client.authFlight.InFlight(authFlightKey) {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.EnsureAuthenticated(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected waiter to observe cancellation, got %v", err)
	}

	close(release)
	if err := <-ownerDone; err != nil {
		t.Fatalf("Owner login failed: %v", err)
	}
	if client.Session().AccessToken != "id" {
		t.Error("Owner login should complete despite the waiter leaving")
	}
}

func TestEnsureAuthenticatedOwnerHonoursDeadline(t *testing.T) {
	api := newTestAPI(t)
	release := make(chan struct{})
	api.tokenHandler = func(w http.ResponseWriter, r *http.Request, n int) {
		<-release
		writeJSON(w, http.StatusOK, `{"id_token":"id","refresh_token":"r"}`)
	}
	client := newTestClient(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := client.AuthenticatedRequest(ctx, api.URL("/x"), RequestOptions{}, nil)
	elapsed := time.Since(start)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Caller returned after %v, want close to its 50ms deadline", elapsed)
	}
	if n := api.apiCalls.Load(); n != 0 {
		t.Errorf("Expected no API call without a session, got %d", n)
	}

	// The detached login still completes and fills the session.
	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for client.authFlight.InFlight(authFlightKey) {
		if time.Now().After(deadline) {
			t.Fatal("Login never completed")
		}
		time.Sleep(time.Millisecond)
	}
	if client.Session().AccessToken != "id" {
		t.Errorf("Expected the abandoned login to update the session, got %+v", client.Session())
	}
	if n := api.tokenCalls.Load(); n != 1 {
		t.Errorf("Expected 1 token call, got %d", n)
	}
}

func TestEnsureAuthenticatedLoginPanicFailsEveryCaller(t *testing.T) {
	api := newTestAPI(t)
	release := make(chan struct{})
	panicky := func(req *http.Request, next RoundTripper) (*http.Response, error) {
		if req.URL.Path == tokenPath {
			<-release
			panic("middleware failure")
		}
		return next.RoundTrip(req)
	}
	client := newTestClient(t, api, WithMiddleware(panicky))

	ownerDone := make(chan error, 1)
	go func() { ownerDone <- client.EnsureAuthenticated(context.Background()) }()
	for !client.authFlight.InFlight(authFlightKey) {
		time.Sleep(time.Millisecond)
	}
	waiterDone := make(chan error, 1)
	go func() { waiterDone <- client.EnsureAuthenticated(context.Background()) }()
	for client.authFlight.Waiters(authFlightKey) < 1 {
		time.Sleep(time.Millisecond)
	}

	close(release)
	for _, done := range []chan error{ownerDone, waiterDone} {
		err := <-done
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Type != ErrorTypeAuth {
			t.Errorf("Expected an auth error after a panicked login, got %v", err)
		}
	}
	if client.session.IsAccessValid() || client.Session().AccessToken != "" {
		t.Errorf("Session must stay empty after a panicked login, got %+v", client.Session())
	}

	var sawAuthorization bool
	api.apiHandler = func(w http.ResponseWriter, r *http.Request, n int) {
		sawAuthorization = r.Header.Get("Authorization") != ""
		writeJSON(w, http.StatusOK, `{}`)
	}
	if err := client.AuthenticatedRequest(context.Background(), api.URL("/x"), RequestOptions{}, nil); err == nil {
		t.Error("Expected the request to fail while login keeps panicking")
	}
	if n := api.apiCalls.Load(); n != 0 || sawAuthorization {
		t.Errorf("Expected no unauthenticated API call, got %d", n)
	}
}

func TestLogoutForcesPasswordLogin(t *testing.T) {
	api := newTestAPI(t)
	client := newTestClient(t, api)
	ctx := context.Background()

	if err := client.EnsureAuthenticated(ctx); err != nil {
		t.Fatal(err)
	}
	client.Logout()
	if !client.Session().IsZero() {
		t.Fatal("Logout() should clear the session")
	}
	if err := client.EnsureAuthenticated(ctx); err != nil {
		t.Fatal(err)
	}
	logins := api.Logins()
	if len(logins) != 2 || logins[1].Method != FlowPassword {
		t.Errorf("Expected a second PASSWORD login, got %+v", logins)
	}
}
