package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tranvd/aegis/internal/core/domain"
)

// FaultRepo implements storage.FaultRepository using PostgreSQL.
type FaultRepo struct {
	db *DB
}

// NewFaultRepo creates a new PostgreSQL fault repository.
func NewFaultRepo(db *DB) *FaultRepo {
	return &FaultRepo{db: db}
}

// Save archives a fault record.
func (r *FaultRepo) Save(ctx context.Context, rec *domain.FaultRecord) error {
	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("failed to encode fault context: %w", err)
	}

	query := `
		INSERT INTO fault_records (id, fault_kind, message, origin_trace, actor, task_id, severity, context, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.FaultKind,
		rec.Message,
		rec.OriginTrace,
		rec.Actor,
		rec.TaskID,
		string(rec.Severity),
		contextJSON,
		rec.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fault record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (r *FaultRepo) Recent(ctx context.Context, limit int) ([]*domain.FaultRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, fault_kind, message, origin_trace, actor, task_id, severity, context, observed_at
		FROM fault_records
		ORDER BY observed_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fault records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*domain.FaultRecord
	for rows.Next() {
		var dest struct {
			ID          string    `db:"id"`
			FaultKind   string    `db:"fault_kind"`
			Message     string    `db:"message"`
			OriginTrace string    `db:"origin_trace"`
			Actor       string    `db:"actor"`
			TaskID      string    `db:"task_id"`
			Severity    string    `db:"severity"`
			Context     []byte    `db:"context"`
			ObservedAt  time.Time `db:"observed_at"`
		}
		if err := rows.StructScan(&dest); err != nil {
			return nil, fmt.Errorf("failed to scan fault record: %w", err)
		}

		var details map[string]string
		if len(dest.Context) > 0 {
			if err := json.Unmarshal(dest.Context, &details); err != nil {
				return nil, fmt.Errorf("failed to decode fault context: %w", err)
			}
		}

		records = append(records, &domain.FaultRecord{
			ID:          dest.ID,
			FaultKind:   dest.FaultKind,
			Message:     dest.Message,
			OriginTrace: dest.OriginTrace,
			Actor:       dest.Actor,
			TaskID:      dest.TaskID,
			Severity:    domain.Severity(dest.Severity),
			Context:     details,
			ObservedAt:  dest.ObservedAt,
		})
	}
	return records, rows.Err()
}

// CountByActor returns archived record counts keyed by actor.
func (r *FaultRepo) CountByActor(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT actor, COUNT(*) FROM fault_records GROUP BY actor`)
	if err != nil {
		return nil, fmt.Errorf("failed to count fault records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var actor string
		var count int
		if err := rows.Scan(&actor, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[actor] = count
	}
	return counts, rows.Err()
}
