package handlers

import (
	"context"
	"errors"

	"github.com/ekobres/spook/internal/core/actions"
	"github.com/ekobres/spook/internal/core/entityfilter"
	"github.com/ekobres/spook/internal/core/metrics"
	"github.com/ekobres/spook/internal/core/mirror"
	"github.com/ekobres/spook/internal/core/registry"
	"github.com/ekobres/spook/internal/database/models"
	"github.com/ekobres/spook/internal/websocket"
	apperrors "github.com/ekobres/spook/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MirrorStatus is the part of the registry mirror the API exposes
type MirrorStatus interface {
	Status() mirror.Status
	RequestRefresh(reason string)
}

// CallHistory lists recently served action calls
type CallHistory interface {
	Recent(ctx context.Context, limit int) ([]*models.ActionCall, error)
}

// Dependencies wires the handlers. Mirror, Calls, Hub and Health may be nil.
type Dependencies struct {
	Runner  *actions.Runner
	Options *entityfilter.OptionProvider
	Limits  entityfilter.Limits
	Store   *registry.Store
	Mirror  MirrorStatus
	Calls   CallHistory
	Hub     *websocket.Hub
	Health  *metrics.HealthChecker
	Logger  *logrus.Logger
}

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	runner  *actions.Runner
	options *entityfilter.OptionProvider
	limits  entityfilter.Limits
	store   *registry.Store
	mirror  MirrorStatus
	calls   CallHistory
	hub     *websocket.Hub
	health  *metrics.HealthChecker
	log     *logrus.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(deps Dependencies) *Handlers {
	health := deps.Health
	if health == nil {
		health = metrics.NewHealthChecker(0)
	}
	return &Handlers{
		runner:  deps.Runner,
		options: deps.Options,
		limits:  deps.Limits,
		store:   deps.Store,
		mirror:  deps.Mirror,
		calls:   deps.Calls,
		hub:     deps.Hub,
		health:  health,
		log:     deps.Logger,
	}
}

// toAppError maps domain errors onto API errors
func toAppError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrNotLoaded):
		return apperrors.Wrap(apperrors.ErrUnavailable, err)
	case errors.Is(err, entityfilter.ErrUnknownOptionKind), errors.Is(err, entityfilter.ErrUnknownAction):
		return apperrors.Wrap(apperrors.ErrNotFound, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.Wrap(apperrors.ErrUnavailable, err)
	default:
		return err
	}
}
