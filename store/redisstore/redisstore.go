// Package redisstore persists Visualping sessions in Redis so several
// processes can share one login.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ambiyansyah-risyal/visualping"
)

// DefaultPrefix is prepended to every session key.
const DefaultPrefix = "visualping:session:"

// Store implements visualping.SessionStore for one account.
type Store struct {
	client *redis.Client
	prefix string
	key    string
	now    func() time.Time
}

var _ visualping.SessionStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrefix replaces DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock replaces time.Now when computing key expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Redis store for account.
func New(client *redis.Client, account string, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
		key:    strings.ToLower(strings.TrimSpace(account)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the Redis key holding the account's session.
func (s *Store) Key() string {
	return s.prefix + s.key
}

// Load implements visualping.SessionStore.
func (s *Store) Load(ctx context.Context) (visualping.Credentials, error) {
	data, err := s.client.Get(ctx, s.Key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return visualping.Credentials{}, visualping.ErrSessionNotFound
	}
	if err != nil {
		return visualping.Credentials{}, fmt.Errorf("failed to load session: %w", err)
	}

	var creds visualping.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return visualping.Credentials{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return creds, nil
}

// Save implements visualping.SessionStore. The key expires when the refresh
// token stops being usable; a pair with no usable refresh token is removed.
func (s *Store) Save(ctx context.Context, creds visualping.Credentials) error {
	expiry := s.expiry(creds)
	if expiry <= 0 {
		return s.Delete(ctx)
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.Key(), data, expiry).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the account's session.
func (s *Store) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.Key()).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Store) expiry(creds visualping.Credentials) time.Duration {
	if creds.RefreshToken == "" {
		return 0
	}
	return visualping.RefreshTokenTTL - s.now().Sub(creds.RefreshIssuedAt)
}
