package storage

import (
	"context"

	"github.com/tranvd/aegis/internal/core/domain"
)

// FaultRepository archives fault records durably. The engine treats the
// archive as best-effort: a write failure never affects the recovery
// decision.
type FaultRepository interface {
	// Save archives a fault record
	Save(ctx context.Context, rec *domain.FaultRecord) error

	// Recent returns up to limit records, newest first
	Recent(ctx context.Context, limit int) ([]*domain.FaultRecord, error)

	// CountByActor returns archived record counts keyed by actor
	CountByActor(ctx context.Context) (map[string]int, error)
}
