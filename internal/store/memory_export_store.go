package store

import (
	"context"
	"sync"

	"github.com/dunamismax/pixeledit/internal/domain"
)

const defaultMemoryCapacity = 256

// MemoryExportStore keeps the most recent exports in a ring. Nothing survives
// a restart.
type MemoryExportStore struct {
	mu       sync.RWMutex
	records  []domain.ExportRecord
	capacity int
}

func NewMemoryExportStore(capacity int) *MemoryExportStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryExportStore{capacity: capacity}
}

func (s *MemoryExportStore) Record(_ context.Context, rec domain.ExportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	if over := len(s.records) - s.capacity; over > 0 {
		s.records = append([]domain.ExportRecord(nil), s.records[over:]...)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *MemoryExportStore) Recent(_ context.Context, limit int) ([]domain.ExportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]domain.ExportRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}
