// Package session owns the admin authentication lifecycle: a single local
// session slot with a 24h expiry, kept consistent with the remote auth
// provider's own session without ever letting a remote outage lock the
// owner out of their local state.
package session

import (
	"context"
	"sync"
	"time"
)

// Record is the persisted session slot. At most one exists at a time; every
// write replaces the whole record.
type Record struct {
	Authenticated bool      `json:"authenticated"`
	ExpiresAt     time.Time `json:"expires"`
	CreatedAt     time.Time `json:"sessionCreated"`
	RemoteUserID  string    `json:"remoteUserId,omitempty"`
}

// Valid reports whether the record asserts authentication and has not
// expired at the given instant.
func (r Record) Valid(now time.Time) bool {
	return r.Authenticated && now.Before(r.ExpiresAt)
}

// SlotStore persists the single session slot. Load returns nil when no slot
// exists. Delete on a missing slot is a no-op.
type SlotStore interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, record Record) error
	Delete(ctx context.Context) error
}

// MemoryStore keeps the slot in process memory. Used by tests and by
// deployments without Redis, where the session simply does not survive a
// restart.
type MemoryStore struct {
	mu     sync.Mutex
	record *Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil, nil
	}
	copied := *s.record
	return &copied, nil
}

func (s *MemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = &record
	return nil
}

func (s *MemoryStore) Delete(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = nil
	return nil
}
