package database

import (
	"github.com/ekobres/spook/internal/database/repositories"
	"github.com/ekobres/spook/internal/database/sqlite"
	"github.com/jmoiron/sqlx"
)

// Repositories holds all repository instances
type Repositories struct {
	Snapshot   repositories.SnapshotRepository
	ActionCall repositories.ActionCallRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Snapshot:   sqlite.NewSnapshotRepository(db),
		ActionCall: sqlite.NewActionCallRepository(db),
	}
}
