package app

import (
	"context"
	"slices"
	"sync"

	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

// MemoryRecordStore keeps the display collections in process memory.
type MemoryRecordStore struct {
	mu    sync.RWMutex
	lists map[domain.SensorKind][]domain.ViewItem
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{lists: make(map[domain.SensorKind][]domain.ViewItem)}
}

func (s *MemoryRecordStore) Append(_ context.Context, kind domain.SensorKind, items []domain.ViewItem) error {
	s.mu.Lock()
	s.lists[kind] = append(s.lists[kind], items...)
	s.mu.Unlock()
	return nil
}

func (s *MemoryRecordStore) List(_ context.Context, kind domain.SensorKind) ([]domain.ViewItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lists[kind]), nil
}

func (s *MemoryRecordStore) Len(_ context.Context, kind domain.SensorKind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lists[kind]), nil
}

func (s *MemoryRecordStore) Clear(_ context.Context) error {
	s.mu.Lock()
	clear(s.lists)
	s.mu.Unlock()
	return nil
}
