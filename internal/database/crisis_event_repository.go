package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/havenmind/safeguard/internal/domain"
)

// CrisisEventRepository handles database operations for crisis events. It
// satisfies the protocol's Recorder interface via Record.
type CrisisEventRepository struct {
	db *sqlx.DB
}

// NewCrisisEventRepository creates a new crisis event repository.
func NewCrisisEventRepository(db *sqlx.DB) *CrisisEventRepository {
	return &CrisisEventRepository{db: db}
}

// Record upserts an event snapshot. The protocol records once at creation
// and once at resolution, so the write is keyed on event id and replaces
// the mutable lifecycle columns on conflict.
func (r *CrisisEventRepository) Record(ctx context.Context, event *domain.CrisisEvent) error {
	query := `
		INSERT INTO crisis_events (
			id, user_id, session_id, created_at, content, confidence,
			detected_risks, alert_level, escalated, resolved, handled_by, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			alert_level = EXCLUDED.alert_level,
			escalated = EXCLUDED.escalated,
			resolved = EXCLUDED.resolved,
			handled_by = EXCLUDED.handled_by,
			notes = EXCLUDED.notes
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.UserID,
		event.SessionID,
		event.Timestamp,
		event.Content,
		event.Confidence,
		pq.Array(event.DetectedRisks),
		event.AlertLevel,
		event.Escalated,
		event.Resolved,
		event.HandledBy,
		event.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to record crisis event: %w", err)
	}

	return nil
}

// GetByID retrieves one recorded crisis event.
func (r *CrisisEventRepository) GetByID(ctx context.Context, id string) (*domain.CrisisEvent, error) {
	var event domain.CrisisEvent
	query := `
		SELECT id, user_id, session_id, created_at, content, confidence,
		       detected_risks, alert_level, escalated, resolved, handled_by, notes
		FROM crisis_events
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.UserID,
		&event.SessionID,
		&event.Timestamp,
		&event.Content,
		&event.Confidence,
		pq.Array(&event.DetectedRisks),
		&event.AlertLevel,
		&event.Escalated,
		&event.Resolved,
		&event.HandledBy,
		&event.Notes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("crisis event not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get crisis event: %w", err)
	}

	return &event, nil
}

// ListByUser retrieves a user's recorded crisis events, newest first.
func (r *CrisisEventRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.CrisisEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, session_id, created_at, content, confidence,
		       detected_risks, alert_level, escalated, resolved, handled_by, notes
		FROM crisis_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list crisis events: %w", err)
	}
	defer rows.Close()

	var events []*domain.CrisisEvent
	for rows.Next() {
		var event domain.CrisisEvent
		if scanErr := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.SessionID,
			&event.Timestamp,
			&event.Content,
			&event.Confidence,
			pq.Array(&event.DetectedRisks),
			&event.AlertLevel,
			&event.Escalated,
			&event.Resolved,
			&event.HandledBy,
			&event.Notes,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan crisis event: %w", scanErr)
		}
		events = append(events, &event)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating crisis events: %w", err)
	}

	return events, nil
}

// CountUnresolved returns the number of recorded events not yet resolved.
func (r *CrisisEventRepository) CountUnresolved(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM crisis_events WHERE NOT resolved`

	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count unresolved crisis events: %w", err)
	}

	return count, nil
}
