package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

// MemoryStore keeps summaries for the life of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Summary
	now   func() time.Time
}

func NewMemory() *MemoryStore {
	return &MemoryStore{items: make(map[uuid.UUID]Summary), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s Summary) (Summary, error) {
	s = prepare(s, m.now())
	m.mu.Lock()
	m.items[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	m.mu.RLock()
	out := make([]Summary, 0, len(m.items))
	for _, s := range m.items {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
