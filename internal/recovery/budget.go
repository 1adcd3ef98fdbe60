package recovery

import (
	"fmt"
	"sync"
)

type budgetKey struct {
	actor     string
	taskID    string
	faultKind string
}

// BudgetTracker bounds recovery attempts per (actor, task, fault kind).
// Counters reset to zero whenever a recovery attempt for that triple
// succeeds.
type BudgetTracker struct {
	mu         sync.RWMutex
	attempts   map[budgetKey]int
	maxRetries int
}

// NewBudgetTracker creates a tracker with the given retry ceiling.
func NewBudgetTracker(maxRetries int) *BudgetTracker {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &BudgetTracker{
		attempts:   make(map[budgetKey]int),
		maxRetries: maxRetries,
	}
}

// MaxRetries returns the configured retry ceiling.
func (bt *BudgetTracker) MaxRetries() int {
	return bt.maxRetries
}

// Attempts returns the recovery attempts made so far for a triple,
// zero for unseen triples.
func (bt *BudgetTracker) Attempts(actor, taskID, faultKind string) int {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	return bt.attempts[budgetKey{actor, taskID, faultKind}]
}

// Exhausted reports whether the triple has no budget left.
func (bt *BudgetTracker) Exhausted(actor, taskID, faultKind string) bool {
	return bt.Attempts(actor, taskID, faultKind) >= bt.maxRetries
}

// RecordAttempt increments the counter for a triple.
func (bt *BudgetTracker) RecordAttempt(actor, taskID, faultKind string) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.attempts[budgetKey{actor, taskID, faultKind}]++
}

// Reset zeroes the counter for a triple. Called on recovery success.
func (bt *BudgetTracker) Reset(actor, taskID, faultKind string) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	delete(bt.attempts, budgetKey{actor, taskID, faultKind})
}

// ActiveCounts returns the non-zero counters keyed as
// "actor/task/fault_kind", for statistics reporting.
func (bt *BudgetTracker) ActiveCounts() map[string]int {
	bt.mu.RLock()
	defer bt.mu.RUnlock()

	counts := make(map[string]int, len(bt.attempts))
	for k, n := range bt.attempts {
		if n == 0 {
			continue
		}
		counts[fmt.Sprintf("%s/%s/%s", k.actor, k.taskID, k.faultKind)] = n
	}
	return counts
}
