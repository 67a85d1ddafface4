package runlog

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vnykmshr/tabflow/pkg/common/validation"
)

// MemoryStore keeps the most recent summaries in a fixed-size ring. It is
// meant for tests and one-shot CLI runs.
type MemoryStore struct {
	mu    sync.RWMutex
	ring  []Summary
	next  int
	count int
}

// NewMemoryStore creates a store holding at most capacity summaries.
func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if err := validation.ValidatePositive("runlog", "capacity", capacity); err != nil {
		return nil, err
	}
	return &MemoryStore{ring: make([]Summary, capacity)}, nil
}

func (m *MemoryStore) Save(_ context.Context, s Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < m.count; i++ {
		idx := m.index(i)
		if m.ring[idx].ID == s.ID {
			m.ring[idx] = s
			return nil
		}
	}

	m.ring[m.next] = s
	m.next = (m.next + 1) % len(m.ring)
	if m.count < len(m.ring) {
		m.count++
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := 0; i < m.count; i++ {
		if s := m.ring[m.index(i)]; s.ID == id {
			return s, nil
		}
	}
	return Summary{}, ErrNotFound
}

func (m *MemoryStore) Recent(_ context.Context, pipeline string, n int) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Summary
	for i := 0; i < m.count && len(out) < n; i++ {
		s := m.ring[m.index(i)]
		if pipeline == "" || s.Pipeline == pipeline {
			out = append(out, s)
		}
	}
	return out, nil
}

// Len returns the number of summaries held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

func (m *MemoryStore) Close() error { return nil }

// index maps age (0 = newest) to a ring slot.
func (m *MemoryStore) index(age int) int {
	return (m.next - 1 - age + 2*len(m.ring)) % len(m.ring)
}
