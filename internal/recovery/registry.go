package recovery

import (
	"sync"
	"time"

	"github.com/tranvd/aegis/internal/core/domain"
)

// Handler is a recovery recipe for one fault kind. It must be fast or
// manage its own timeouts; a returned error is folded into a failed
// recovery attempt, never propagated to the fault reporter.
type Handler func(rec domain.FaultRecord) (domain.RecoveryOutcome, error)

// Strategy is a registered recovery recipe for one fault kind.
type Strategy struct {
	FaultKind       string
	Action          domain.ActionKind
	Handler         Handler
	BaselineSuccess float64 // declared estimate in [0,1], informational only
}

// Registry holds one active strategy per fault kind. Resolution never
// fails: unknown kinds get a default retry strategy.
type Registry struct {
	mu           sync.RWMutex
	strategies   map[string]Strategy
	defaultDelay time.Duration
}

// NewRegistry creates an empty registry. defaultDelay is the retry delay
// signaled by the fallback strategy for unregistered kinds.
func NewRegistry(defaultDelay time.Duration) *Registry {
	if defaultDelay <= 0 {
		defaultDelay = 5 * time.Second
	}
	return &Registry{
		strategies:   make(map[string]Strategy),
		defaultDelay: defaultDelay,
	}
}

// Register installs a strategy for a fault kind, replacing any previous
// registration for that kind.
func (r *Registry) Register(faultKind string, action domain.ActionKind, h Handler, baselineSuccess float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[faultKind] = Strategy{
		FaultKind:       faultKind,
		Action:          action,
		Handler:         h,
		BaselineSuccess: baselineSuccess,
	}
}

// Resolve returns the strategy for a fault kind, or the default retry
// strategy if none is registered.
func (r *Registry) Resolve(faultKind string) Strategy {
	r.mu.RLock()
	s, ok := r.strategies[faultKind]
	r.mu.RUnlock()
	if ok {
		return s
	}

	delay := r.defaultDelay.Seconds()
	return Strategy{
		FaultKind:       faultKind,
		Action:          domain.ActionRetry,
		BaselineSuccess: 0.5,
		Handler: func(rec domain.FaultRecord) (domain.RecoveryOutcome, error) {
			return domain.RecoveryOutcome{
				Succeeded:   true,
				Action:      domain.ActionRetry,
				Description: "Retry the failed operation",
				Parameters:  map[string]any{"delay_seconds": delay},
			}, nil
		},
	}
}

// RegisterDefaults installs the canonical out-of-the-box strategies:
// connection faults retry with backoff, missing resources fall back,
// timeouts retry with an increased timeout, and resource exhaustion
// escalates immediately (retrying will not free memory).
func RegisterDefaults(r *Registry) {
	r.Register(KindConnection, domain.ActionRetry, func(rec domain.FaultRecord) (domain.RecoveryOutcome, error) {
		return domain.RecoveryOutcome{
			Succeeded:   true,
			Action:      domain.ActionRetry,
			Description: "Retry connection with exponential backoff",
			Parameters: map[string]any{
				"delay_seconds":     10.0,
				"max_delay_seconds": 60.0,
			},
		}, nil
	}, 0.7)

	r.Register(KindNotFound, domain.ActionFallback, func(rec domain.FaultRecord) (domain.RecoveryOutcome, error) {
		return domain.RecoveryOutcome{
			Succeeded:   true,
			Action:      domain.ActionFallback,
			Description: "Use fallback resource or create the missing one",
			Parameters:  map[string]any{"fallback_resource": "default"},
		}, nil
	}, 0.8)

	r.Register(KindTimeout, domain.ActionRetry, func(rec domain.FaultRecord) (domain.RecoveryOutcome, error) {
		return domain.RecoveryOutcome{
			Succeeded:   true,
			Action:      domain.ActionRetry,
			Description: "Retry with increased timeout",
			Parameters: map[string]any{
				"delay_seconds":   0.0,
				"timeout_seconds": 60.0,
			},
		}, nil
	}, 0.6)

	r.Register(KindResourceExhausted, domain.ActionEscalate, func(rec domain.FaultRecord) (domain.RecoveryOutcome, error) {
		return domain.RecoveryOutcome{
			Succeeded:   false,
			Action:      domain.ActionEscalate,
			Description: "Resource exhaustion requires operator attention",
			Parameters:  map[string]any{"escalation_level": "critical"},
		}, nil
	}, 0.9)
}
