package domain

import "time"

// Severity classifies how serious a reported fault is. It drives reporting
// and alerting, not recovery control flow.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FaultRecord is one observed failure. Records are immutable after creation
// and appended to the engine history.
type FaultRecord struct {
	ID          string            `json:"id"          db:"id"`
	FaultKind   string            `json:"fault_kind"  db:"fault_kind"`
	Message     string            `json:"message"     db:"message"`
	OriginTrace string            `json:"origin_trace" db:"origin_trace"`
	Actor       string            `json:"actor"       db:"actor"`
	TaskID      string            `json:"task_id"     db:"task_id"`
	ObservedAt  time.Time         `json:"observed_at" db:"observed_at"`
	Severity    Severity          `json:"severity"    db:"severity"`
	Context     map[string]string `json:"context,omitempty"`
}
