package store

import (
	"context"
	"sync"

	"github.com/inamate/bspview/internal/scene"
)

// Memory is a Store held in process memory. Scenes are copied on the way in
// and out, so callers never share state with the store.
type Memory struct {
	mu     sync.RWMutex
	scenes map[string]*scene.Scene
	order  []string
}

func NewMemory() *Memory {
	return &Memory{scenes: make(map[string]*scene.Scene)}
}

func (m *Memory) Create(_ context.Context, s *scene.Scene) (*scene.Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.scenes[s.ID]; ok {
		return nil, ErrAlreadyExists
	}

	stored := s.Clone()
	stored.Version = 1
	stored.CreatedAt = now()
	stored.UpdatedAt = stored.CreatedAt
	m.scenes[s.ID] = stored
	m.order = append(m.order, s.ID)
	return stored.Clone(), nil
}

func (m *Memory) Get(_ context.Context, id string) (*scene.Scene, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.scenes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// List returns the scenes in creation order.
func (m *Memory) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Summary, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, summarize(m.scenes[id]))
	}
	return out, nil
}

func (m *Memory) Put(_ context.Context, s *scene.Scene, expected int) (*scene.Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.scenes[s.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if expected != 0 && expected != cur.Version {
		return nil, ErrVersionConflict
	}

	stored := s.Clone()
	stored.Version = cur.Version + 1
	stored.CreatedAt = cur.CreatedAt
	stored.UpdatedAt = now()
	m.scenes[s.ID] = stored
	return stored.Clone(), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.scenes[id]; !ok {
		return ErrNotFound
	}
	delete(m.scenes, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
