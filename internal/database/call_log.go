package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/ekobres/spook/internal/database/models"
	"github.com/ekobres/spook/internal/database/repositories"
	"github.com/sirupsen/logrus"
)

// CallLog keeps a bounded history of served action calls
type CallLog struct {
	repo   repositories.ActionCallRepository
	keep   int
	logger *logrus.Logger
}

func NewCallLog(repo repositories.ActionCallRepository, keep int, logger *logrus.Logger) *CallLog {
	if keep < 1 {
		keep = 1000
	}
	return &CallLog{repo: repo, keep: keep, logger: logger}
}

// Record stores one call. Failures are logged, never returned: the history
// must not fail the call it describes.
func (l *CallLog) Record(ctx context.Context, requestID, action, transport string, matched int, duration time.Duration, callErr error) {
	call := &models.ActionCall{
		RequestID:  requestID,
		Action:     action,
		Transport:  transport,
		Matched:    matched,
		DurationMS: float64(duration.Microseconds()) / 1000,
		CreatedAt:  time.Now().UTC(),
	}
	if callErr != nil {
		call.Error = sql.NullString{String: callErr.Error(), Valid: true}
	}

	if err := l.repo.Create(ctx, call); err != nil {
		l.logger.WithError(err).WithField("request_id", requestID).Warn("Failed to record action call")
		return
	}

	if _, err := l.repo.Prune(ctx, l.keep); err != nil {
		l.logger.WithError(err).Warn("Failed to prune action call history")
	}
}

// Recent returns the newest calls first
func (l *CallLog) Recent(ctx context.Context, limit int) ([]*models.ActionCall, error) {
	return l.repo.Recent(ctx, limit)
}
