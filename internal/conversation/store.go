// Package conversation holds per-user conversational state between turns.
package conversation

import (
	"sync"
	"time"

	"github.com/drewdunne/agenda/internal/intent"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCapacity bounds the number of users with a pending confirmation.
const DefaultCapacity = 10000

// PendingConfirmation is an intent held until the user answers yes or no.
type PendingConfirmation struct {
	ID        string
	Kind      intent.Kind
	Entities  intent.Entities
	CreatedAt time.Time
}

// Store keeps at most one pending confirmation per user.
type Store interface {
	Get(userID string) (PendingConfirmation, bool)
	Set(userID string, p PendingConfirmation)
	Clear(userID string)
	// Take returns the pending confirmation and removes it in one step.
	Take(userID string) (PendingConfirmation, bool)
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store. Entries expire after the configured
// TTL and the least recently used users are dropped beyond capacity.
// Nothing survives a restart.
type MemoryStore struct {
	mu      sync.Mutex
	pending *expirable.LRU[string, PendingConfirmation]
}

// NewMemoryStore creates a store whose entries live for ttl. A ttl of zero
// keeps entries until they are taken or cleared.
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		pending: expirable.NewLRU[string, PendingConfirmation](capacity, nil, ttl),
	}
}

// Get returns the user's pending confirmation, if any.
func (s *MemoryStore) Get(userID string) (PendingConfirmation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Peek(userID)
}

// Set replaces the user's pending confirmation.
func (s *MemoryStore) Set(userID string, p PendingConfirmation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Add(userID, p)
}

// Clear drops the user's pending confirmation.
func (s *MemoryStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Remove(userID)
}

// Take implements Store.
func (s *MemoryStore) Take(userID string) (PendingConfirmation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending.Peek(userID)
	if ok {
		s.pending.Remove(userID)
	}
	return p, ok
}

// Len returns the number of users with a pending confirmation.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}
