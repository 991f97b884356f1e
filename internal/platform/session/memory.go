package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process. Suitable for tests and single-node dev.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memoryEntry
}

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memoryEntry),
	}
}

// SetClock overrides the time source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Open(id string) Session {
	return &memorySession{store: s, id: id}
}

// live returns the entry for id, dropping it if expired.
func (s *MemoryStore) live(id string) *memoryEntry {
	e, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.sessions, id)
		return nil
	}
	return e
}

type memorySession struct {
	store *MemoryStore
	id    string
}

func (m *memorySession) Get(_ context.Context, key string) (string, bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	e := m.store.live(m.id)
	if e == nil {
		return "", false, nil
	}
	v, ok := e.values[key]
	return v, ok, nil
}

func (m *memorySession) Set(_ context.Context, key, value string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	e := m.store.live(m.id)
	if e == nil {
		e = &memoryEntry{values: make(map[string]string)}
		m.store.sessions[m.id] = e
	}
	e.values[key] = value
	e.expiresAt = m.store.now().Add(m.store.ttl)
	return nil
}

func (m *memorySession) Delete(_ context.Context, keys ...string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if e := m.store.live(m.id); e != nil {
		for _, k := range keys {
			delete(e.values, k)
		}
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
