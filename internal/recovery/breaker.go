package recovery

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tranvd/aegis/internal/core/domain"
)

type breakerKey struct {
	actor     string
	faultKind string
}

type breaker struct {
	failureCount int
	open         bool
	openedAt     time.Time
}

// BreakerSet holds one circuit breaker per (actor, fault kind) pair. The
// key deliberately excludes the task ID: a persistent infrastructure fault
// should trip regardless of which task triggers it.
//
// There is no half-open state. An open breaker resets purely by elapsed
// time, evaluated lazily on the next IsOpen query.
type BreakerSet struct {
	mu        sync.Mutex
	breakers  map[breakerKey]*breaker
	threshold int
	timeout   time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// NewBreakerSet creates a breaker table. A nil clock uses time.Now.
func NewBreakerSet(threshold int, timeout time.Duration, clock func() time.Time) *BreakerSet {
	if threshold <= 0 {
		threshold = 5
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	if clock == nil {
		clock = time.Now
	}
	return &BreakerSet{
		breakers:  make(map[breakerKey]*breaker),
		threshold: threshold,
		timeout:   timeout,
		now:       clock,
		log:       slog.Default(),
	}
}

// IsOpen reports whether the breaker for (actor, faultKind) is open. An
// open breaker whose timeout has elapsed is flipped back to closed here,
// with its failure count cleared.
func (bs *BreakerSet) IsOpen(actor, faultKind string) bool {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b, ok := bs.breakers[breakerKey{actor, faultKind}]
	if !ok || !b.open {
		return false
	}

	if bs.now().Sub(b.openedAt) > bs.timeout {
		b.open = false
		b.openedAt = time.Time{}
		b.failureCount = 0
		return false
	}

	return true
}

// RecordOutcome feeds one recovery result into the breaker. A success
// forces the breaker closed and clears the failure count. A failure
// increments the count and trips the breaker at the threshold; openedAt is
// only stamped on the closed-to-open transition.
func (bs *BreakerSet) RecordOutcome(actor, faultKind string, success bool) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	key := breakerKey{actor, faultKind}
	b, ok := bs.breakers[key]
	if !ok {
		b = &breaker{}
		bs.breakers[key] = b
	}

	if success {
		b.failureCount = 0
		b.open = false
		b.openedAt = time.Time{}
		return
	}

	b.failureCount++
	if b.failureCount >= bs.threshold && !b.open {
		b.open = true
		b.openedAt = bs.now()
		bs.log.Warn("Circuit breaker opened",
			"actor", actor,
			"fault_kind", faultKind,
			"failure_count", b.failureCount,
		)
		BreakerTrips.WithLabelValues(actor, faultKind).Inc()
	}
}

// FailureCount returns the consecutive failure count for a pair.
func (bs *BreakerSet) FailureCount(actor, faultKind string) int {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if b, ok := bs.breakers[breakerKey{actor, faultKind}]; ok {
		return b.failureCount
	}
	return 0
}

// OpenCount returns the number of currently open breakers, after applying
// lazy timeout resets.
func (bs *BreakerSet) OpenCount() int {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	count := 0
	now := bs.now()
	for _, b := range bs.breakers {
		if !b.open {
			continue
		}
		if now.Sub(b.openedAt) > bs.timeout {
			b.open = false
			b.openedAt = time.Time{}
			b.failureCount = 0
			continue
		}
		count++
	}
	return count
}

// Snapshot returns the current state of every tracked breaker keyed as
// "actor/fault_kind".
func (bs *BreakerSet) Snapshot() map[string]domain.BreakerStatus {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	snap := make(map[string]domain.BreakerStatus, len(bs.breakers))
	for key, b := range bs.breakers {
		status := domain.BreakerStatus{
			Open:         b.open,
			FailureCount: b.failureCount,
		}
		if b.open {
			openedAt := b.openedAt
			status.OpenedAt = &openedAt
		}
		snap[fmt.Sprintf("%s/%s", key.actor, key.faultKind)] = status
	}
	return snap
}
