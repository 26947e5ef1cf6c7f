package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ekobres/spook/internal/database/models"
	"github.com/ekobres/spook/internal/database/repositories"
	"github.com/jmoiron/sqlx"
)

// SnapshotRepository implements repositories.SnapshotRepository
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new SnapshotRepository
func NewSnapshotRepository(db *sqlx.DB) repositories.SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create stores a snapshot and sets its ID
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *models.RegistrySnapshot) error {
	query := `
		INSERT INTO registry_snapshots (
			created_at, encoding, raw_size, stored_size,
			entities, devices, areas, labels, config_entries, states, data
		) VALUES (
			:created_at, :encoding, :raw_size, :stored_size,
			:entities, :devices, :areas, :labels, :config_entries, :states, :data
		)
	`

	result, err := r.db.NamedExecContext(ctx, query, snapshot)
	if err != nil {
		return fmt.Errorf("failed to create registry snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted ID: %w", err)
	}

	snapshot.ID = id
	return nil
}

// Latest retrieves the newest snapshot including its data
func (r *SnapshotRepository) Latest(ctx context.Context) (*models.RegistrySnapshot, error) {
	query := `
		SELECT id, created_at, encoding, raw_size, stored_size,
			   entities, devices, areas, labels, config_entries, states, data
		FROM registry_snapshots
		ORDER BY id DESC
		LIMIT 1
	`

	var snapshot models.RegistrySnapshot
	err := r.db.GetContext(ctx, &snapshot, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest registry snapshot: %w", err)
	}

	return &snapshot, nil
}

// List returns snapshot metadata, newest first, without the data blob
func (r *SnapshotRepository) List(ctx context.Context, limit int) ([]*models.RegistrySnapshot, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, created_at, encoding, raw_size, stored_size,
			   entities, devices, areas, labels, config_entries, states
		FROM registry_snapshots
		ORDER BY id DESC
		LIMIT ?
	`

	var snapshots []*models.RegistrySnapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list registry snapshots: %w", err)
	}

	return snapshots, nil
}

// Prune deletes every snapshot but the newest keep
func (r *SnapshotRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}

	query := `
		DELETE FROM registry_snapshots
		WHERE id NOT IN (
			SELECT id FROM registry_snapshots ORDER BY id DESC LIMIT ?
		)
	`

	result, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune registry snapshots: %w", err)
	}

	return result.RowsAffected()
}
