// Package pending holds delete confirmations between the select and
// confirm steps. A confirmation lives until it is confirmed, cancelled or
// its TTL runs out; nothing survives a restart of the memory store.
package pending

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("confirmation not found or expired")

type Confirmation struct {
	Token      string    `json:"token"`
	DonationID int64     `json:"donation_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Store keeps confirmations by token.
type Store interface {
	Put(ctx context.Context, c Confirmation) error
	Get(ctx context.Context, token string) (*Confirmation, error)
	// Take returns and removes the confirmation in one step.
	Take(ctx context.Context, token string) (*Confirmation, error)
	Drop(ctx context.Context, token string) (bool, error)
}

// MemoryStore is an in-process Store. Expired entries are invisible
// immediately and reclaimed by Sweep.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]Confirmation
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]Confirmation),
		now:   time.Now,
	}
}

func (m *MemoryStore) Put(_ context.Context, c Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[c.Token] = c
	return nil
}

func (m *MemoryStore) Get(_ context.Context, token string) (*Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.lookup(token)
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryStore) Take(_ context.Context, token string) (*Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.lookup(token)
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.items, token)
	return &c, nil
}

func (m *MemoryStore) Drop(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(token)
	delete(m.items, token)
	return ok, nil
}

// Sweep removes expired confirmations and reports how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for token, c := range m.items {
		if !now.Before(c.ExpiresAt) {
			delete(m.items, token)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// lookup must be called with mu held.
func (m *MemoryStore) lookup(token string) (Confirmation, bool) {
	c, ok := m.items[token]
	if !ok || !m.now().Before(c.ExpiresAt) {
		return Confirmation{}, false
	}
	return c, true
}
