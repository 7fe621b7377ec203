package storage

import (
	"context"
	"sync"

	"luckydraw/internal/models"
)

// MemoryStore keeps the record in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	state *models.AppState
	err   error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (models.AppState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.AppState{}, m.err
	}
	if m.state == nil {
		return models.AppState{}, ErrNotFound
	}
	return m.state.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, state models.AppState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	s := state.Clone()
	m.state = &s
	return nil
}

func (m *MemoryStore) Patch(ctx context.Context, patch models.StatePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	current := models.DefaultState()
	if m.state != nil {
		current = *m.state
	}
	s := patch.Apply(current)
	m.state = &s
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// SetErr sets the error every call returns; nil restores normal behaviour.
func (m *MemoryStore) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
