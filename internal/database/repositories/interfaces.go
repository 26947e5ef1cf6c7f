package repositories

import (
	"context"

	"github.com/ekobres/spook/internal/database/models"
)

// SnapshotRepository defines registry snapshot cache access methods
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *models.RegistrySnapshot) error
	// Latest returns nil, nil when the cache is empty.
	Latest(ctx context.Context) (*models.RegistrySnapshot, error)
	List(ctx context.Context, limit int) ([]*models.RegistrySnapshot, error)
	// Prune keeps the newest keep snapshots and reports how many were removed.
	Prune(ctx context.Context, keep int) (int64, error)
}

// ActionCallRepository defines action call history access methods
type ActionCallRepository interface {
	Create(ctx context.Context, call *models.ActionCall) error
	Recent(ctx context.Context, limit int) ([]*models.ActionCall, error)
	Prune(ctx context.Context, keep int) (int64, error)
}
