package recovery

import (
	"fmt"
	"time"

	"github.com/tranvd/aegis/internal/core/domain"
)

// Statistics summarizes the engine's fault history and recovery state.
type Statistics struct {
	TotalFaults       int            `json:"total_faults"`
	RecentFaults      int            `json:"recent_faults"` // last hour
	BySeverity        map[string]int `json:"severity_breakdown"`
	ByActor           map[string]int `json:"actor_breakdown"`
	ByFaultKind       map[string]int `json:"fault_kind_breakdown"`
	OpenBreakers      int            `json:"open_breakers"`
	ActiveRetryCounts map[string]int `json:"active_retry_counts"`
}

// Report is the full error analysis document served to operators.
type Report struct {
	GeneratedAt     time.Time                       `json:"generated_at"`
	Summary         Statistics                      `json:"summary"`
	Recommendations []string                        `json:"recommendations"`
	Breakers        map[string]domain.BreakerStatus `json:"circuit_breaker_status"`
}

// Statistics returns current aggregate numbers.
func (e *Engine) Statistics() Statistics {
	bySeverity, byActor, byKind := e.history.Breakdown()

	return Statistics{
		TotalFaults:       e.history.Len(),
		RecentFaults:      e.history.CountSince(e.now().Add(-time.Hour)),
		BySeverity:        bySeverity,
		ByActor:           byActor,
		ByFaultKind:       byKind,
		OpenBreakers:      e.breakers.OpenCount(),
		ActiveRetryCounts: e.budget.ActiveCounts(),
	}
}

// Report builds the error analysis document with threshold-rule
// recommendations.
func (e *Engine) Report() Report {
	stats := e.Statistics()

	return Report{
		GeneratedAt:     e.now(),
		Summary:         stats,
		Recommendations: recommendations(stats),
		Breakers:        e.breakers.Snapshot(),
	}
}

func recommendations(stats Statistics) []string {
	var recs []string

	if stats.TotalFaults > 100 {
		recs = append(recs, "High error count detected - consider system stability review")
	}
	if stats.RecentFaults > 10 {
		recs = append(recs, "Recent error spike detected - investigate recent changes")
	}
	if stats.OpenBreakers > 0 {
		recs = append(recs, fmt.Sprintf("%d circuit breakers are open - manual intervention may be required", stats.OpenBreakers))
	}
	for kind, count := range stats.ByFaultKind {
		if count > 20 {
			recs = append(recs, fmt.Sprintf("High frequency of %s faults - consider preventive measures", kind))
		}
	}

	return recs
}
