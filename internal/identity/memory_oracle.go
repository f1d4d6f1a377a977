package identity

import (
	"context"
	"sync"
)

// MemoryOracle is an in-memory Oracle used by tests and local development.
type MemoryOracle struct {
	mu      sync.RWMutex
	statues map[string]LiveStatus
	banned  map[string]bool
}

// NewMemoryOracle returns an empty MemoryOracle.
func NewMemoryOracle() *MemoryOracle {
	return &MemoryOracle{
		statues: make(map[string]LiveStatus),
		banned:  make(map[string]bool),
	}
}

// SetStatus sets or replaces a user's live status. Passing a nil status
// removes it, simulating the user going offline.
func (m *MemoryOracle) SetStatus(userID string, status *LiveStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == nil {
		delete(m.statues, userID)
		return
	}
	m.statues[userID] = *status
}

// SetBanned marks a user id as banned/unbanned.
func (m *MemoryOracle) SetBanned(userID string, banned bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if banned {
		m.banned[userID] = true
	} else {
		delete(m.banned, userID)
	}
}

func (m *MemoryOracle) Status(_ context.Context, userID string) (*LiveStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statues[userID]
	if !ok {
		return nil, ErrNotPresent
	}
	return &s, nil
}

func (m *MemoryOracle) Banned(_ context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.banned[userID], nil
}
