package session

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_storefront/domain"
)

type memoryEntry struct {
	state     domain.CheckoutState
	expiresAt time.Time
}

// MemoryStore is the single-instance Store used when no Redis is configured.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// lookup must be called with mu held. Expired entries are evicted on access.
func (m *MemoryStore) lookup(userID string) (memoryEntry, bool) {
	e, ok := m.entries[userID]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, userID)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *MemoryStore) Get(_ context.Context, userID string) (domain.CheckoutState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(userID)
	if !ok {
		return domain.CheckoutState{}, ErrNotFound
	}
	return e.state, nil
}

func (m *MemoryStore) Put(_ context.Context, userID string, state domain.CheckoutState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[userID] = memoryEntry{state: state, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Replace(_ context.Context, userID string, state domain.CheckoutState) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(userID)
	if !ok || e.state.RunID != state.RunID {
		return false, nil
	}
	m.entries[userID] = memoryEntry{state: state, expiresAt: m.now().Add(m.ttl)}
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, userID)
	return nil
}
