package sqlite

import (
	"context"
	"fmt"

	"github.com/ekobres/spook/internal/database/models"
	"github.com/ekobres/spook/internal/database/repositories"
	"github.com/jmoiron/sqlx"
)

// ActionCallRepository implements repositories.ActionCallRepository
type ActionCallRepository struct {
	db *sqlx.DB
}

// NewActionCallRepository creates a new ActionCallRepository
func NewActionCallRepository(db *sqlx.DB) repositories.ActionCallRepository {
	return &ActionCallRepository{db: db}
}

// Create records an action call
func (r *ActionCallRepository) Create(ctx context.Context, call *models.ActionCall) error {
	query := `
		INSERT INTO action_calls (request_id, action, transport, matched, duration_ms, error, created_at)
		VALUES (:request_id, :action, :transport, :matched, :duration_ms, :error, :created_at)
	`

	result, err := r.db.NamedExecContext(ctx, query, call)
	if err != nil {
		return fmt.Errorf("failed to record action call: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted ID: %w", err)
	}

	call.ID = id
	return nil
}

// Recent returns the newest calls first
func (r *ActionCallRepository) Recent(ctx context.Context, limit int) ([]*models.ActionCall, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, request_id, action, transport, matched, duration_ms, error, created_at
		FROM action_calls
		ORDER BY id DESC
		LIMIT ?
	`

	var calls []*models.ActionCall
	if err := r.db.SelectContext(ctx, &calls, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list action calls: %w", err)
	}

	return calls, nil
}

// Prune deletes every call but the newest keep
func (r *ActionCallRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}

	query := `
		DELETE FROM action_calls
		WHERE id NOT IN (
			SELECT id FROM action_calls ORDER BY id DESC LIMIT ?
		)
	`

	result, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune action calls: %w", err)
	}

	return result.RowsAffected()
}
