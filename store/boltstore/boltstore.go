// Package boltstore persists Visualping sessions in a BBolt database file.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/ambiyansyah-risyal/visualping"
)

var sessionsBucket = []byte("sessions")

// Store implements visualping.SessionStore for one account. Several accounts
// may share a database; each is keyed by its lower-cased email.
type Store struct {
	db  *bbolt.DB
	key []byte
}

var _ visualping.SessionStore = (*Store)(nil)

// New returns a Store for account backed by the given BBolt database.
func New(db *bbolt.DB, account string) *Store {
	return &Store{db: db, key: []byte(strings.ToLower(strings.TrimSpace(account)))}
}

// Open opens (or creates) a BBolt database at path and returns a Store for account.
func Open(path, account string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return New(db, account), nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load implements visualping.SessionStore.
func (s *Store) Load(_ context.Context) (visualping.Credentials, error) {
	var creds visualping.Credentials
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return visualping.ErrSessionNotFound
		}
		data := b.Get(s.key)
		if data == nil {
			return visualping.ErrSessionNotFound
		}
		return json.Unmarshal(data, &creds)
	})
	if err != nil {
		return visualping.Credentials{}, err
	}
	return creds, nil
}

// Save implements visualping.SessionStore.
func (s *Store) Save(_ context.Context, creds visualping.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(sessionsBucket)
		if err != nil {
			return err
		}
		return b.Put(s.key, data)
	})
}

// Delete removes the account's saved session. Deleting a missing session is not an error.
func (s *Store) Delete(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return nil
		}
		return b.Delete(s.key)
	})
}
