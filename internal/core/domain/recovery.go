package domain

import "time"

// ActionKind identifies the kind of remedy a recovery strategy proposes.
type ActionKind string

const (
	ActionRetry    ActionKind = "retry"
	ActionFallback ActionKind = "fallback"
	ActionEscalate ActionKind = "escalate"
	ActionSkip     ActionKind = "skip"
	ActionRestart  ActionKind = "restart"
)

// RecoveryOutcome is the result of invoking a recovery strategy handler.
// Succeeded means the recovery attempt produced an actionable remedy, not
// that the original operation will now succeed.
type RecoveryOutcome struct {
	Succeeded   bool           `json:"succeeded"`
	Action      ActionKind     `json:"action_kind"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// DelaySeconds reads the retry delay tuning parameter, if present.
func (o RecoveryOutcome) DelaySeconds() float64 {
	v, ok := o.Parameters["delay_seconds"]
	if !ok {
		return 0
	}
	switch d := v.(type) {
	case float64:
		return d
	case int:
		return float64(d)
	case time.Duration:
		return d.Seconds()
	default:
		return 0
	}
}

// Reserved strategy labels for decisions synthesized by the engine itself
// rather than returned by a handler.
const (
	StrategyBreakerOpen        = "circuit_breaker_open"
	StrategyMaxRetriesExceeded = "max_retries_exceeded"
)

// Decision is what the engine returns for every handled fault.
type Decision struct {
	Succeeded bool             `json:"succeeded"`
	Strategy  string           `json:"strategy"`
	Message   string           `json:"message"`
	Outcome   *RecoveryOutcome `json:"recovery_action,omitempty"`
}

// BreakerStatus is a point-in-time snapshot of one circuit breaker.
type BreakerStatus struct {
	Open         bool       `json:"is_open"`
	FailureCount int        `json:"failure_count"`
	OpenedAt     *time.Time `json:"opened_at,omitempty"`
}

// Escalation is an operator intervention request produced when recovery is
// refused (breaker open) or a strategy escalates.
type Escalation struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	TaskID    string    `json:"task_id"`
	FaultKind string    `json:"fault_kind"`
	Severity  Severity  `json:"severity"`
	Reason    string    `json:"reason"`
	Level     string    `json:"level"`
	At        time.Time `json:"at"`
}
