package sessionstore

import (
	"context"
	"sync"

	"github.com/tradeflow-dev/tradeflow"
)

// MemoryStore is a thread-safe in-process SessionStore, used by tests and by
// embedded callers that manage a single session.
type MemoryStore struct {
	mu      sync.RWMutex
	session *tradeflow.Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (*tradeflow.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, nil
	}
	cp := *m.session
	return &cp, nil
}

func (m *MemoryStore) Set(_ context.Context, s *tradeflow.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.session = &cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

var _ tradeflow.SessionStore = (*MemoryStore)(nil)
