package store

import (
	"sort"
	"sync"

	"memething/internal/game"
)

// MemoryStore is an in-memory SessionStore. It hands out deep copies, so
// two clients holding the same session are as independent as they would be
// against a remote record store, and stale writes are detected the same
// way: by comparing the version a client fetched against the version on
// record.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*game.Session
	nextSub     int
	subscribers map[int]func(sessionID string)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*game.Session),
		subscribers: make(map[int]func(sessionID string)),
	}
}

func (m *MemoryStore) Create(s *game.Session) (*game.Session, error) {
	m.mu.Lock()
	record := s.Clone()
	record.Version = 1
	m.sessions[record.ID] = record
	result := record.Clone()
	m.mu.Unlock()

	m.notify(result.ID)
	return result, nil
}

func (m *MemoryStore) Fetch(id string) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

func (m *MemoryStore) Update(s *game.Session) (*game.Session, error) {
	m.mu.Lock()
	record, ok := m.sessions[s.ID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	if record.Version != s.Version {
		m.mu.Unlock()
		return nil, ErrStaleWrite
	}
	next := s.Clone()
	next.Version = record.Version + 1
	m.sessions[s.ID] = next
	result := next.Clone()
	m.mu.Unlock()

	m.notify(result.ID)
	return result, nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	m.notify(id)
	return nil
}

func (m *MemoryStore) ListByPlayer(playerID string) ([]*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*game.Session
	for _, record := range m.sessions {
		if _, ok := record.FindPlayer(playerID); ok {
			list = append(list, record.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (m *MemoryStore) Subscribe(fn func(sessionID string)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// notify runs outside the store lock so a subscriber may fetch from the
// store without deadlocking.
func (m *MemoryStore) notify(sessionID string) {
	m.mu.Lock()
	fns := make([]func(string), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(sessionID)
	}
}
