package recovery

import (
	"sync"
	"time"

	"github.com/tranvd/aegis/internal/core/domain"
)

// History is the append-only fault record log. When a cap is set, the
// oldest records are evicted first; a negative cap disables eviction.
type History struct {
	mu      sync.RWMutex
	records []domain.FaultRecord
	cap     int
}

// NewHistory creates a history with the given cap.
func NewHistory(cap int) *History {
	return &History{cap: cap}
}

// Append adds a record, evicting the oldest if the cap is exceeded.
func (h *History) Append(rec domain.FaultRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, rec)
	if h.cap > 0 && len(h.records) > h.cap {
		h.records = h.records[len(h.records)-h.cap:]
	}
}

// Len returns the number of retained records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// CountSince returns the number of records observed after the cutoff.
func (h *History) CountSince(cutoff time.Time) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, rec := range h.records {
		if rec.ObservedAt.After(cutoff) {
			count++
		}
	}
	return count
}

// Breakdown aggregates retained records by severity, actor and fault kind.
func (h *History) Breakdown() (bySeverity, byActor, byKind map[string]int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	bySeverity = make(map[string]int)
	byActor = make(map[string]int)
	byKind = make(map[string]int)
	for _, rec := range h.records {
		bySeverity[string(rec.Severity)]++
		byActor[rec.Actor]++
		byKind[rec.FaultKind]++
	}
	return bySeverity, byActor, byKind
}
