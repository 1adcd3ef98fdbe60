package memory

import (
	"context"
	"sync"

	"github.com/tranvd/aegis/internal/core/domain"
)

// FaultRepo is an in-memory FaultRepository used when no database is
// configured.
type FaultRepo struct {
	mu      sync.RWMutex
	records []*domain.FaultRecord
}

// NewFaultRepo creates an empty in-memory repository.
func NewFaultRepo() *FaultRepo {
	return &FaultRepo{}
}

// Save archives a fault record.
func (r *FaultRepo) Save(ctx context.Context, rec *domain.FaultRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// Recent returns up to limit records, newest first.
func (r *FaultRepo) Recent(ctx context.Context, limit int) ([]*domain.FaultRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.records) {
		limit = len(r.records)
	}

	out := make([]*domain.FaultRecord, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}

// CountByActor returns archived record counts keyed by actor.
func (r *FaultRepo) CountByActor(ctx context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, rec := range r.records {
		counts[rec.Actor]++
	}
	return counts, nil
}
