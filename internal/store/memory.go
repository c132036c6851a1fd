package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jetrug/companysheet/internal/common"
	"github.com/Jetrug/companysheet/internal/entity"
)

// Memory is an in-process RecordStore for development and tests.
type Memory struct {
	mu      sync.RWMutex
	records map[uuid.UUID]entity.Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[uuid.UUID]entity.Record)}
}

func (m *Memory) List(_ context.Context) ([]entity.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]entity.Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (entity.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return entity.Record{}, common.ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *Memory) Upsert(_ context.Context, rec entity.Record) (entity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := rec.Clone()
	stored.Persisted = true
	stored.UpdatedAt = time.Now().UTC()
	if existing, ok := m.records[rec.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	m.records[rec.ID] = stored
	return stored.Clone(), nil
}

func (m *Memory) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
