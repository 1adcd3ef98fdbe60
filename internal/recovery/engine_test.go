package recovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tranvd/aegis/internal/core/domain"
)

// =============================================================================
// Test helpers
// =============================================================================

func newTestEngine(t *testing.T, clock *fakeClock) *Engine {
	t.Helper()
	opts := Options{
		MaxRetries:       3,
		BreakerThreshold: 5,
		BreakerTimeout:   300 * time.Second,
	}
	if clock != nil {
		opts.Clock = clock.Now
	}
	return New(opts)
}

type countingHandler struct {
	mu        sync.Mutex
	calls     int
	succeeded bool
}

func (h *countingHandler) handle(rec domain.FaultRecord) (domain.RecoveryOutcome, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return domain.RecoveryOutcome{
		Succeeded:   h.succeeded,
		Action:      domain.ActionRetry,
		Description: "test handler",
		Parameters:  map[string]any{"delay_seconds": 0.0},
	}, nil
}

func (h *countingHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

type mockEscalationSink struct {
	mu          sync.Mutex
	escalations []domain.Escalation
}

func (s *mockEscalationSink) Enqueue(ctx context.Context, esc domain.Escalation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escalations = append(s.escalations, esc)
	return nil
}

func (s *mockEscalationSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.escalations)
}

// =============================================================================
// Validation
// =============================================================================

func TestHandle_InvalidArguments(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.Handle(ctx, Fault{Kind: "timeout"}, "", "t1", nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty actor should fail fast, got %v", err)
	}

	_, err = e.Handle(ctx, Fault{Kind: "timeout"}, "engineer", "", nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty task ID should fail fast, got %v", err)
	}
}

// =============================================================================
// Retry budget
// =============================================================================

func TestHandle_BudgetCutoff(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	h := &countingHandler{succeeded: false}
	e.Registry().Register("flaky", domain.ActionRetry, h.handle, 0.8)

	// 3 failed attempts consume the budget
	for i := 0; i < 3; i++ {
		decision, err := e.Handle(ctx, Fault{Kind: "flaky", Message: "boom"}, "engineer", "t1", nil)
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if decision.Succeeded {
			t.Fatal("handler reports failure, decision should too")
		}
	}
	if h.callCount() != 3 {
		t.Fatalf("expected 3 handler calls, got %d", h.callCount())
	}

	// The 4th call is refused without invoking the handler
	decision, err := e.Handle(ctx, Fault{Kind: "flaky", Message: "boom"}, "engineer", "t1", nil)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if decision.Strategy != domain.StrategyMaxRetriesExceeded {
		t.Errorf("expected %s, got %s", domain.StrategyMaxRetriesExceeded, decision.Strategy)
	}
	if h.callCount() != 3 {
		t.Errorf("handler must not run once the budget is exhausted, got %d calls", h.callCount())
	}
}

func TestHandle_BudgetExhaustionTripsBreaker(t *testing.T) {
	// Budget exhaustion counts as a breaker failure, while a breaker-open
	// short circuit leaves the budget untouched. Pins the observed
	// behavior of both directions of that coupling.
	e := newTestEngine(t, nil)
	ctx := context.Background()

	h := &countingHandler{succeeded: false}
	e.Registry().Register("flaky", domain.ActionRetry, h.handle, 0.8)

	// 3 handler failures + 2 budget refusals = 5 breaker failures
	for i := 0; i < 5; i++ {
		if _, err := e.Handle(ctx, Fault{Kind: "flaky"}, "engineer", "t1", nil); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
	}
	if !e.Breakers().IsOpen("engineer", "flaky") {
		t.Fatal("breaker should have tripped from budget refusals")
	}

	attemptsBefore := e.Budget().Attempts("engineer", "t1", "flaky")
	decision, err := e.Handle(ctx, Fault{Kind: "flaky"}, "engineer", "t1", nil)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if decision.Strategy != domain.StrategyBreakerOpen {
		t.Fatalf("expected breaker-open refusal, got %s", decision.Strategy)
	}
	if got := e.Budget().Attempts("engineer", "t1", "flaky"); got != attemptsBefore {
		t.Errorf("breaker-open short circuit must not touch the budget: %d -> %d", attemptsBefore, got)
	}
}

// =============================================================================
// Circuit breaker
// =============================================================================

func TestHandle_BreakerTripsAcrossTasks(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	h := &countingHandler{succeeded: false}
	e.Registry().Register("FlakyError", domain.ActionRetry, h.handle, 0.8)

	// 5 failures with varying task IDs share one breaker
	taskIDs := []string{"t1", "t2", "t3", "t4", "t5"}
	for _, taskID := range taskIDs {
		decision, err := e.Handle(ctx, Fault{Kind: "FlakyError"}, "engineer", taskID, nil)
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if decision.Strategy == domain.StrategyBreakerOpen {
			t.Fatalf("breaker opened early on task %s", taskID)
		}
	}

	decision, err := e.Handle(ctx, Fault{Kind: "FlakyError"}, "engineer", "t6", nil)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if decision.Strategy != domain.StrategyBreakerOpen {
		t.Errorf("6th call should short-circuit, got %s", decision.Strategy)
	}
	if decision.Outcome == nil || decision.Outcome.Action != domain.ActionEscalate {
		t.Error("breaker-open decision should escalate")
	}
	if h.callCount() != 5 {
		t.Errorf("handler must not run while the breaker is open, got %d calls", h.callCount())
	}
}

func TestHandle_BreakerAutoResets(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, clock)
	ctx := context.Background()

	h := &countingHandler{succeeded: false}
	e.Registry().Register("FlakyError", domain.ActionRetry, h.handle, 0.8)

	for i := 0; i < 5; i++ {
		if _, err := e.Handle(ctx, Fault{Kind: "FlakyError"}, "engineer", "t"+string(rune('1'+i)), nil); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
	}
	if !e.Breakers().IsOpen("engineer", "FlakyError") {
		t.Fatal("breaker should be open")
	}

	clock.Advance(301 * time.Second)

	if e.Breakers().IsOpen("engineer", "FlakyError") {
		t.Fatal("breaker should auto-reset after the timeout")
	}
	if n := e.Breakers().FailureCount("engineer", "FlakyError"); n != 0 {
		t.Errorf("expected failure count 0 after reset, got %d", n)
	}

	// The next fault goes back through the normal recovery path
	decision, err := e.Handle(ctx, Fault{Kind: "FlakyError"}, "engineer", "t9", nil)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if decision.Strategy == domain.StrategyBreakerOpen {
		t.Error("reset breaker should not short-circuit")
	}
}

// =============================================================================
// Handler faults and history
// =============================================================================

func TestHandle_HandlerErrorFoldsIntoFailure(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	e.Registry().Register("broken", domain.ActionFallback, func(rec domain.FaultRecord) (domain.RecoveryOutcome, error) {
		return domain.RecoveryOutcome{}, errors.New("handler exploded")
	}, 0.8)

	decision, err := e.Handle(ctx, Fault{Kind: "broken"}, "engineer", "t1", nil)
	if err != nil {
		t.Fatalf("handler errors must never propagate, got %v", err)
	}
	if decision.Succeeded {
		t.Error("handler error should produce a failed decision")
	}
	if decision.Message != "recovery failed: handler exploded" {
		t.Errorf("unexpected message: %q", decision.Message)
	}
	if n := e.Budget().Attempts("engineer", "t1", "broken"); n != 1 {
		t.Errorf("handler error should count as a failed attempt, got %d", n)
	}
	if n := e.Breakers().FailureCount("engineer", "broken"); n != 1 {
		t.Errorf("handler error should count as a breaker failure, got %d", n)
	}
}

func TestHandle_HandlerPanicContained(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	e.Registry().Register("volatile", domain.ActionRetry, func(rec domain.FaultRecord) (domain.RecoveryOutcome, error) {
		panic("handler blew up")
	}, 0.8)

	decision, err := e.Handle(ctx, Fault{Kind: "volatile"}, "engineer", "t1", nil)
	if err != nil {
		t.Fatalf("handler panics must never propagate, got %v", err)
	}
	if decision.Succeeded {
		t.Error("handler panic should produce a failed decision")
	}
	if decision.Message != "recovery failed: handler panic: handler blew up" {
		t.Errorf("unexpected message: %q", decision.Message)
	}
	if n := e.Budget().Attempts("engineer", "t1", "volatile"); n != 1 {
		t.Errorf("handler panic should count as a failed attempt, got %d", n)
	}
	if n := e.Breakers().FailureCount("engineer", "volatile"); n != 1 {
		t.Errorf("handler panic should count as a breaker failure, got %d", n)
	}
}

func TestHandle_HistoryCompleteness(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	h := &countingHandler{succeeded: false}
	e.Registry().Register("flaky", domain.ActionRetry, h.handle, 0.8)

	// Walk through every branch: normal failures, budget refusal, then
	// breaker refusals. Each appends exactly one record.
	total := 0
	for i := 0; i < 8; i++ {
		if _, err := e.Handle(ctx, Fault{Kind: "flaky"}, "engineer", "t1", nil); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		total++
		if got := e.Statistics().TotalFaults; got != total {
			t.Fatalf("after %d calls history has %d records", total, got)
		}
	}
}

func TestHandle_HistoryCap(t *testing.T) {
	e := New(Options{HistoryCap: 10})
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := e.Handle(ctx, Fault{Kind: "unregistered"}, "engineer", "t1", nil); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
	}
	if got := e.Statistics().TotalFaults; got != 10 {
		t.Errorf("expected history capped at 10, got %d", got)
	}
}

// =============================================================================
// End to end
// =============================================================================

func TestHandle_SuccessfulRecoveryKeepsStateClean(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	h := &countingHandler{succeeded: true}
	e.Registry().Register("ConnectionError", domain.ActionRetry, h.handle, 0.8)

	for i := 0; i < 3; i++ {
		decision, err := e.Handle(ctx, Fault{Kind: "ConnectionError", Message: "refused"}, "engineer", "t1", nil)
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if !decision.Succeeded {
			t.Fatal("expected successful recovery")
		}
		if decision.Outcome.Action != domain.ActionRetry {
			t.Fatalf("expected retry action, got %s", decision.Outcome.Action)
		}
		if n := e.Budget().Attempts("engineer", "t1", "ConnectionError"); n != 0 {
			t.Errorf("budget should reset on success, got %d", n)
		}
		if n := e.Breakers().FailureCount("engineer", "ConnectionError"); n != 0 {
			t.Errorf("breaker failure count should be 0, got %d", n)
		}
	}
}

func TestHandle_UnregisteredKindNeverFails(t *testing.T) {
	e := newTestEngine(t, nil)

	decision, err := e.Handle(context.Background(), Fault{Kind: "totally_new"}, "docs", "t1", map[string]string{"step": "build"})
	if err != nil {
		t.Fatalf("unregistered kinds must resolve to the default strategy: %v", err)
	}
	if !decision.Succeeded || decision.Outcome.Action != domain.ActionRetry {
		t.Errorf("expected default retry decision, got %+v", decision)
	}
	if decision.Outcome.DelaySeconds() <= 0 {
		t.Error("default retry should carry a delay parameter")
	}
}

func TestHandle_EscalationsEnqueued(t *testing.T) {
	sink := &mockEscalationSink{}
	e := New(Options{
		MaxRetries:       3,
		BreakerThreshold: 2,
		Escalations:      sink,
	})
	RegisterDefaults(e.Registry())
	ctx := context.Background()

	// resource_exhausted escalates on every report
	if _, err := e.Handle(ctx, Fault{Kind: KindResourceExhausted, Message: "oom"}, "engineer", "t1", nil); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("expected 1 escalation, got %d", sink.count())
	}

	// second report trips the breaker (threshold 2); the third is a
	// breaker-open refusal which escalates too
	if _, err := e.Handle(ctx, Fault{Kind: KindResourceExhausted, Message: "oom"}, "engineer", "t1", nil); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	decision, err := e.Handle(ctx, Fault{Kind: KindResourceExhausted, Message: "oom"}, "engineer", "t1", nil)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if decision.Strategy != domain.StrategyBreakerOpen {
		t.Fatalf("expected breaker open, got %s", decision.Strategy)
	}
	if sink.count() != 3 {
		t.Errorf("expected 3 escalations, got %d", sink.count())
	}
}
