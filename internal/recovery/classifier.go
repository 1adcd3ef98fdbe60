package recovery

import "github.com/tranvd/aegis/internal/core/domain"

// Canonical fault kinds reported by actors.
const (
	KindConnection        = "connection"
	KindTimeout           = "timeout"
	KindNotFound          = "not_found"
	KindResourceExhausted = "resource_exhausted"
	KindProcessAbort      = "process_abort"
	KindOutOfMemory       = "out_of_memory"
	KindPanic             = "panic"
	KindInvalidInput      = "invalid_input"
	KindTypeMismatch      = "type_mismatch"
	KindMissingKey        = "missing_key"
)

// Classifier maps a fault kind to a severity tier. Classification is pure
// and deterministic; unknown kinds are LOW.
type Classifier struct {
	table map[string]domain.Severity
}

// NewClassifier builds a classifier with the built-in policy table plus any
// per-kind overrides. Overrides replace or extend the table but the four
// tiers themselves are fixed.
func NewClassifier(overrides map[string]domain.Severity) *Classifier {
	table := map[string]domain.Severity{
		KindProcessAbort:      domain.SeverityCritical,
		KindOutOfMemory:       domain.SeverityCritical,
		KindPanic:             domain.SeverityCritical,
		KindResourceExhausted: domain.SeverityCritical,

		KindConnection: domain.SeverityHigh,
		KindTimeout:    domain.SeverityHigh,
		KindNotFound:   domain.SeverityHigh,

		KindInvalidInput: domain.SeverityMedium,
		KindTypeMismatch: domain.SeverityMedium,
		KindMissingKey:   domain.SeverityMedium,
	}
	for kind, sev := range overrides {
		table[kind] = sev
	}
	return &Classifier{table: table}
}

// Classify returns the severity tier for a fault kind. The message is
// accepted for interface stability but does not affect the tier.
func (c *Classifier) Classify(faultKind, message string) domain.Severity {
	if sev, ok := c.table[faultKind]; ok {
		return sev
	}
	return domain.SeverityLow
}

// ParseSeverity converts a config string to a Severity, defaulting to LOW.
func ParseSeverity(s string) domain.Severity {
	switch s {
	case string(domain.SeverityCritical):
		return domain.SeverityCritical
	case string(domain.SeverityHigh):
		return domain.SeverityHigh
	case string(domain.SeverityMedium):
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}
