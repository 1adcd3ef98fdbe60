package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tranvd/aegis/internal/core/domain"
	"github.com/tranvd/aegis/internal/infra/storage"
)

// ErrInvalidArgument is returned when Handle is called with a missing actor
// or task identifier. These are programmer errors, not runtime faults.
var ErrInvalidArgument = errors.New("invalid argument")

// Fault is the raw failure input reported by an actor.
type Fault struct {
	Kind    string
	Message string
	Trace   string // optional; captured at report time when empty
}

// FaultFromError builds a Fault from an error with a caller-supplied kind.
func FaultFromError(kind string, err error) Fault {
	return Fault{Kind: kind, Message: err.Error()}
}

// EscalationSink receives operator escalations produced by the engine.
type EscalationSink interface {
	Enqueue(ctx context.Context, esc domain.Escalation) error
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	MaxRetries        int
	BreakerThreshold  int
	BreakerTimeout    time.Duration
	HistoryCap        int
	DefaultRetryDelay time.Duration
	SeverityOverrides map[string]domain.Severity

	Logger      *slog.Logger
	Clock       func() time.Time
	Archive     storage.FaultRepository // optional durable sink
	Escalations EscalationSink          // optional operator queue
}

// Engine is the central fault recovery orchestrator. One instance is
// shared by all actors; every shared table is safe for concurrent use and
// the read-decide-write sequence of a single Handle call is serialized so
// two concurrent faults for the same (actor, fault kind) cannot both slip
// past a tripping breaker. Strategy handlers run outside the lock.
type Engine struct {
	mu sync.Mutex

	classifier *Classifier
	registry   *Registry
	budget     *BudgetTracker
	breakers   *BreakerSet
	history    *History

	log         *slog.Logger
	now         func() time.Time
	archive     storage.FaultRepository
	escalations EscalationSink
}

// New creates an engine. Default strategies are not installed; call
// RegisterDefaults on the registry for the canonical set.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	historyCap := opts.HistoryCap
	if historyCap == 0 {
		historyCap = 10000
	}

	breakers := NewBreakerSet(opts.BreakerThreshold, opts.BreakerTimeout, clock)
	breakers.log = log

	return &Engine{
		classifier:  NewClassifier(opts.SeverityOverrides),
		registry:    NewRegistry(opts.DefaultRetryDelay),
		budget:      NewBudgetTracker(opts.MaxRetries),
		breakers:    breakers,
		history:     NewHistory(historyCap),
		log:         log,
		now:         clock,
		archive:     opts.Archive,
		escalations: opts.Escalations,
	}
}

// Registry returns the strategy registry for handler registration.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Budget returns the retry budget tracker.
func (e *Engine) Budget() *BudgetTracker {
	return e.budget
}

// Breakers returns the circuit breaker table.
func (e *Engine) Breakers() *BreakerSet {
	return e.breakers
}

// Handle records a fault and attempts recovery, returning a decision for
// every anticipated fault. It only returns a non-nil error for malformed
// input (empty actor or task ID).
func (e *Engine) Handle(ctx context.Context, fault Fault, actor, taskID string, details map[string]string) (domain.Decision, error) {
	if actor == "" {
		return domain.Decision{}, fmt.Errorf("%w: actor is required", ErrInvalidArgument)
	}
	if taskID == "" {
		return domain.Decision{}, fmt.Errorf("%w: task ID is required", ErrInvalidArgument)
	}

	rec := e.newRecord(fault, actor, taskID, details)

	e.log.Error("Fault reported",
		"actor", actor,
		"task_id", taskID,
		"fault_kind", rec.FaultKind,
		"severity", rec.Severity,
		"message", rec.Message,
	)
	FaultsObserved.WithLabelValues(actor, rec.FaultKind, string(rec.Severity)).Inc()

	e.mu.Lock()

	// The record is appended no matter which branch the decision takes.
	e.history.Append(rec)
	e.archiveRecord(rec)

	if e.breakers.IsOpen(actor, fault.Kind) {
		e.mu.Unlock()
		decision := e.breakerOpenDecision(ctx, rec)
		e.observe(decision)
		return decision, nil
	}

	strategy := e.registry.Resolve(fault.Kind)

	if e.budget.Exhausted(actor, taskID, fault.Kind) {
		// Exhausting the budget counts as a breaker failure. The inverse
		// does not hold: a breaker-open short circuit above never touches
		// the budget.
		e.breakers.RecordOutcome(actor, fault.Kind, false)
		e.mu.Unlock()
		decision := domain.Decision{
			Succeeded: false,
			Strategy:  domain.StrategyMaxRetriesExceeded,
			Message:   fmt.Sprintf("maximum retries (%d) exceeded", e.budget.MaxRetries()),
		}
		e.observe(decision)
		return decision, nil
	}

	e.mu.Unlock()

	// Handler runs unlocked: it may block or perform I/O.
	outcome, handlerErr := e.invoke(strategy, rec)

	e.mu.Lock()
	if outcome.Succeeded {
		e.budget.Reset(actor, taskID, fault.Kind)
	} else {
		e.budget.RecordAttempt(actor, taskID, fault.Kind)
	}
	e.breakers.RecordOutcome(actor, fault.Kind, outcome.Succeeded)
	e.mu.Unlock()

	decision := domain.Decision{
		Succeeded: outcome.Succeeded,
		Strategy:  string(strategy.Action),
		Message:   outcome.Description,
		Outcome:   &outcome,
	}
	if handlerErr != nil {
		decision.Message = fmt.Sprintf("recovery failed: %s", handlerErr)
	}
	if outcome.Action == domain.ActionEscalate {
		e.escalate(ctx, rec, outcome.Description, escalationLevel(outcome))
	}

	e.observe(decision)
	return decision, nil
}

func (e *Engine) newRecord(fault Fault, actor, taskID string, details map[string]string) domain.FaultRecord {
	trace := fault.Trace
	if trace == "" {
		trace = string(debug.Stack())
	}
	return domain.FaultRecord{
		ID:          uuid.NewString(),
		FaultKind:   fault.Kind,
		Message:     fault.Message,
		OriginTrace: trace,
		Actor:       actor,
		TaskID:      taskID,
		ObservedAt:  e.now(),
		Severity:    e.classifier.Classify(fault.Kind, fault.Message),
		Context:     details,
	}
}

func (e *Engine) invoke(strategy Strategy, rec domain.FaultRecord) (outcome domain.RecoveryOutcome, err error) {
	start := time.Now()
	defer func() {
		HandlerDuration.WithLabelValues(rec.FaultKind).Observe(time.Since(start).Seconds())
	}()

	// A handler panic is contained here and recorded as a failed attempt,
	// the same as a returned error. The fault engine must outlive its
	// handlers.
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Recovery handler panicked",
				"actor", rec.Actor,
				"fault_kind", rec.FaultKind,
				"panic", r,
			)
			err = fmt.Errorf("handler panic: %v", r)
			outcome = domain.RecoveryOutcome{
				Succeeded:   false,
				Action:      strategy.Action,
				Description: err.Error(),
			}
		}
	}()

	outcome, err = strategy.Handler(rec)
	if err != nil {
		e.log.Error("Recovery handler failed",
			"actor", rec.Actor,
			"fault_kind", rec.FaultKind,
			"error", err,
		)
		return domain.RecoveryOutcome{
			Succeeded:   false,
			Action:      strategy.Action,
			Description: err.Error(),
		}, err
	}
	return outcome, nil
}

func (e *Engine) breakerOpenDecision(ctx context.Context, rec domain.FaultRecord) domain.Decision {
	reason := fmt.Sprintf("circuit breaker is open for %s - %s", rec.Actor, rec.FaultKind)
	e.escalate(ctx, rec, reason, "high")

	return domain.Decision{
		Succeeded: false,
		Strategy:  domain.StrategyBreakerOpen,
		Message:   reason,
		Outcome: &domain.RecoveryOutcome{
			Succeeded:   false,
			Action:      domain.ActionEscalate,
			Description: "Escalate to a human operator",
			Parameters:  map[string]any{"escalation_level": "high"},
		},
	}
}

func (e *Engine) escalate(ctx context.Context, rec domain.FaultRecord, reason, level string) {
	if e.escalations == nil {
		return
	}
	esc := domain.Escalation{
		ID:        uuid.NewString(),
		Actor:     rec.Actor,
		TaskID:    rec.TaskID,
		FaultKind: rec.FaultKind,
		Severity:  rec.Severity,
		Reason:    reason,
		Level:     level,
		At:        e.now(),
	}
	if err := e.escalations.Enqueue(ctx, esc); err != nil {
		e.log.Warn("Failed to enqueue escalation", "actor", rec.Actor, "error", err)
	}
}

func (e *Engine) archiveRecord(rec domain.FaultRecord) {
	if e.archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.archive.Save(ctx, &rec); err != nil {
			e.log.Warn("Failed to archive fault record", "id", rec.ID, "error", err)
		}
	}()
}

func (e *Engine) observe(decision domain.Decision) {
	result := "refused"
	if decision.Succeeded {
		result = "recovered"
	}
	Decisions.WithLabelValues(decision.Strategy, result).Inc()
	OpenBreakers.Set(float64(e.breakers.OpenCount()))
}

func escalationLevel(outcome domain.RecoveryOutcome) string {
	if v, ok := outcome.Parameters["escalation_level"].(string); ok {
		return v
	}
	return "high"
}
