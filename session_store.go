package visualping

import (
	"context"
	"sync"
)

// MemoryStore is a SessionStore that keeps credentials in process memory.
// It lets several Clients for the same account share one token pair.
type MemoryStore struct {
	mu    sync.RWMutex
	creds Credentials
	saved bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements SessionStore.
func (m *MemoryStore) Load(_ context.Context) (Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.saved {
		return Credentials{}, ErrSessionNotFound
	}
	return m.creds, nil
}

// Save implements SessionStore.
func (m *MemoryStore) Save(_ context.Context, creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = creds
	m.saved = true
	return nil
}
