package visualping

import (
	"sync"
	"time"
)

const (
	// AccessTokenTTL is how long an id token is used before it is renewed.
	// The server honours it for 24h; we refresh an hour early.
	AccessTokenTTL = 23 * time.Hour
	// RefreshTokenTTL is how long a refresh token is used before a full
	// password login is forced. The server honours it for 30 days.
	RefreshTokenTTL = 29 * 24 * time.Hour
)

// Credentials is the token pair held by a Session. A token and its issued-at
// timestamp are always set together; an empty token has a zero timestamp.
type Credentials struct {
	AccessToken     string    `json:"id_token,omitempty"`
	AccessIssuedAt  time.Time `json:"id_token_issued_at,omitzero"`
	RefreshToken    string    `json:"refresh_token,omitempty"`
	RefreshIssuedAt time.Time `json:"refresh_token_issued_at,omitzero"`
}

// IsZero reports whether no token is held.
func (c Credentials) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Session holds the credential pair of one Client. Reads are safe from any
// goroutine; only the authenticator writes.
type Session struct {
	mu    sync.RWMutex
	creds Credentials
	now   func() time.Time
}

func newSession(now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{now: now}
}

// IsRenewalValid reports whether a refresh token is present and younger than RefreshTokenTTL.
func (s *Session) IsRenewalValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return valid(s.creds.RefreshToken, s.creds.RefreshIssuedAt, RefreshTokenTTL, s.now())
}

// IsAccessValid reports whether an access token is present and younger than AccessTokenTTL.
func (s *Session) IsAccessValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return valid(s.creds.AccessToken, s.creds.AccessIssuedAt, AccessTokenTTL, s.now())
}

// Snapshot returns a copy of the current credentials.
func (s *Session) Snapshot() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// AccessToken returns the current access token, empty if none.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken
}

func valid(token string, issuedAt time.Time, ttl time.Duration, now time.Time) bool {
	if token == "" {
		return false
	}
	return now.Sub(issuedAt) < ttl
}

// setAll records the result of a password login.
func (s *Session) setAll(access, refresh string) Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.creds = Credentials{
		AccessToken:     access,
		AccessIssuedAt:  now,
		RefreshToken:    refresh,
		RefreshIssuedAt: now,
	}
	return s.creds
}

// setAccess records the result of a refresh; the refresh token is untouched.
func (s *Session) setAccess(access string) Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.AccessToken = access
	s.creds.AccessIssuedAt = s.now()
	return s.creds
}

// replace installs creds wholesale, normalising timestamps of absent tokens.
func (s *Session) replace(creds Credentials) {
	if creds.AccessToken == "" {
		creds.AccessIssuedAt = time.Time{}
	}
	if creds.RefreshToken == "" {
		creds.RefreshIssuedAt = time.Time{}
	}
	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
}
