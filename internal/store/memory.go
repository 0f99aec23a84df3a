package store

import (
	"context"
	"sync"
	"time"

	"github.com/ppiankov/roomwatch/internal/model"
)

// Memory keeps seen identifiers in process memory. Nothing survives a
// restart, so it suits --once runs and tests.
type Memory struct {
	mu   sync.Mutex
	seen map[string]model.SeenRecord
	now  func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		seen: make(map[string]model.SeenRecord),
		now:  time.Now,
	}
}

// HasSeen reports whether id was recorded
func (m *Memory) HasSeen(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[id]
	return ok, nil
}

// Record stores p's identifier or returns ErrDuplicate
func (m *Memory) Record(_ context.Context, p model.RawPosting) (model.SeenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[p.ID]; ok {
		return model.SeenRecord{}, ErrDuplicate
	}

	rec := model.SeenRecord{ID: p.ID, FirstSeen: m.now().UTC()}
	m.seen[p.ID] = rec
	return rec, nil
}

// Len reports how many identifiers are stored
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}
