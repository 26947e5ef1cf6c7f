// Package mirror keeps the registry store in step with a Home Assistant
// instance. It loads full snapshots on connect, on registry update events
// and on a cron schedule, applies state_changed events in place, and
// reconnects when the WebSocket session drops.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ekobres/spook/internal/adapters/homeassistant"
	"github.com/ekobres/spook/internal/core/metrics"
	"github.com/ekobres/spook/internal/core/registry"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Refresh reasons
const (
	ReasonConnect  = "connect"
	ReasonEvent    = "event"
	ReasonSchedule = "schedule"
	ReasonManual   = "manual"
)

var errSessionClosed = errors.New("home assistant session closed")

// Source is the part of the Home Assistant client the mirror needs
type Source interface {
	Initialize(ctx context.Context) error
	FetchRegistries(ctx context.Context, withStates bool) (*homeassistant.RegistryDump, error)
	SubscribeToEvents(ctx context.Context, eventType string, handler homeassistant.EventHandler) (int, error)
	Done() <-chan struct{}
	IsConnected() bool
}

// SnapshotCache persists encoded snapshots for warm starts
type SnapshotCache interface {
	SaveSnapshot(ctx context.Context, data []byte, counts map[string]int) error
	LoadSnapshot(ctx context.Context) ([]byte, error)
}

// Options tune the mirror
type Options struct {
	// TrackStates applies state_changed events between refreshes.
	TrackStates    bool
	Debounce       time.Duration
	ReconnectDelay time.Duration
	// ResyncSchedule is a cron spec; empty disables scheduled reloads.
	ResyncSchedule string
}

// Status is a point-in-time view of the mirror
type Status struct {
	Connected    bool      `json:"connected"`
	Loaded       bool      `json:"loaded"`
	Refreshes    int64     `json:"refreshes"`
	LastRefresh  time.Time `json:"last_refresh,omitempty"`
	LastReason   string    `json:"last_reason,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	WarmStarted  bool      `json:"warm_started"`
	NextResync   time.Time `json:"next_resync,omitempty"`
	SessionCount int64     `json:"sessions"`
}

// Mirror owns the refresh lifecycle of a registry.Store
type Mirror struct {
	source   Source
	store    *registry.Store
	cache    SnapshotCache
	recorder metrics.MetricsCollector
	logger   *logrus.Logger
	opts     Options

	cron    *cron.Cron
	entryID cron.EntryID

	requests chan string

	mu     sync.RWMutex
	status Status
}

// New creates a mirror. cache and recorder may be nil.
func New(source Source, store *registry.Store, cache SnapshotCache, recorder metrics.MetricsCollector, opts Options, logger *logrus.Logger) (*Mirror, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	if recorder == nil {
		recorder = metrics.NoopCollector{}
	}

	m := &Mirror{
		source:   source,
		store:    store,
		cache:    cache,
		recorder: recorder,
		logger:   logger,
		opts:     opts,
		requests: make(chan string, 1),
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
	}

	if opts.ResyncSchedule != "" {
		id, err := m.cron.AddFunc(opts.ResyncSchedule, func() {
			m.RequestRefresh(ReasonSchedule)
		})
		if err != nil {
			return nil, fmt.Errorf("invalid resync schedule %q: %w", opts.ResyncSchedule, err)
		}
		m.entryID = id
	}

	return m, nil
}

// Run mirrors until ctx is cancelled, reconnecting after each dropped
// session. It always returns ctx.Err().
func (m *Mirror) Run(ctx context.Context) error {
	m.warmStart(ctx)

	m.cron.Start()
	defer func() {
		<-m.cron.Stop().Done()
	}()

	for {
		err := m.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		m.logger.WithError(err).WithField("retry_in", m.opts.ReconnectDelay).
			Warn("Home Assistant session ended, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.opts.ReconnectDelay):
		}
	}
}

// RequestRefresh queues a debounced full reload. It never blocks.
func (m *Mirror) RequestRefresh(reason string) {
	select {
	case m.requests <- reason:
	default:
	}
}

// Status returns the current mirror status
func (m *Mirror) Status() Status {
	m.mu.RLock()
	status := m.status
	m.mu.RUnlock()

	status.Connected = m.source.IsConnected()
	status.Loaded = m.store.Loaded()
	if m.entryID != 0 {
		status.NextResync = m.cron.Entry(m.entryID).Next
	}
	return status
}

// Refresh fetches every registry and installs a new snapshot
func (m *Mirror) Refresh(ctx context.Context, reason string) error {
	start := time.Now()

	dump, err := m.source.FetchRegistries(ctx, true)
	if err != nil {
		m.recordRefresh(reason, start, err)
		return fmt.Errorf("failed to fetch registries: %w", err)
	}

	snap := homeassistant.ToSnapshot(dump)
	m.store.Replace(snap)
	counts := snap.Counts()
	m.recorder.RecordSnapshot(counts)
	m.recordRefresh(reason, start, nil)

	m.logger.WithFields(logrus.Fields{
		"reason":   reason,
		"entities": counts["entities"],
		"duration": time.Since(start),
	}).Info("Registry snapshot refreshed")

	m.persist(ctx, counts)
	return nil
}

func (m *Mirror) recordRefresh(reason string, start time.Time, err error) {
	m.recorder.RecordRefresh(reason, err == nil, time.Since(start))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.LastReason = reason
	if err != nil {
		m.status.LastError = err.Error()
		return
	}
	m.status.Refreshes++
	m.status.LastRefresh = time.Now()
	m.status.LastError = ""
}

// session runs one connected period: connect, subscribe, load, then serve
// refresh requests until the connection or ctx ends.
func (m *Mirror) session(ctx context.Context) error {
	if err := m.source.Initialize(ctx); err != nil {
		return err
	}
	done := m.source.Done()

	m.mu.Lock()
	m.status.SessionCount++
	m.mu.Unlock()

	if err := m.subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	if err := m.Refresh(ctx, ReasonConnect); err != nil {
		m.logger.WithError(err).Error("Initial registry load failed")
	}

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return errSessionClosed
		case reason := <-m.requests:
			if timer == nil {
				pending = reason
				timer = time.NewTimer(m.opts.Debounce)
				timerC = timer.C
			}
		case <-timerC:
			timer, timerC = nil, nil
			if err := m.Refresh(ctx, pending); err != nil {
				m.logger.WithError(err).WithField("reason", pending).Error("Registry refresh failed")
			}
		}
	}
}

var registryEvents = map[string]registry.ChangeKind{
	homeassistant.EventEntityRegistryUpdated: registry.ChangeEntity,
	homeassistant.EventDeviceRegistryUpdated: registry.ChangeDevice,
	homeassistant.EventAreaRegistryUpdated:   registry.ChangeArea,
	homeassistant.EventLabelRegistryUpdated:  registry.ChangeLabel,
}

func (m *Mirror) subscribe(ctx context.Context) error {
	for _, eventType := range homeassistant.RegistryEvents {
		kind := registryEvents[eventType]
		eventType := eventType
		if _, err := m.source.SubscribeToEvents(ctx, eventType, func(homeassistant.Event) {
			m.recorder.RecordEvent(eventType)
			m.store.NotifyChange(kind)
			m.RequestRefresh(ReasonEvent)
		}); err != nil {
			return fmt.Errorf("%s: %w", eventType, err)
		}
	}

	if !m.opts.TrackStates {
		return nil
	}

	_, err := m.source.SubscribeToEvents(ctx, homeassistant.EventStateChanged, m.handleStateChanged)
	if err != nil {
		return fmt.Errorf("%s: %w", homeassistant.EventStateChanged, err)
	}
	return nil
}

// handleStateChanged runs on the WebSocket read loop and must not block
func (m *Mirror) handleStateChanged(event homeassistant.Event) {
	m.recorder.RecordEvent(homeassistant.EventStateChanged)

	data, err := homeassistant.DecodeStateChanged(event)
	if err != nil {
		m.logger.WithError(err).Warn("Dropping malformed state_changed event")
		return
	}
	m.store.ApplyStateChange(data.EntityID, homeassistant.MapState(data.NewState))
}

// warmStart installs the cached snapshot so searches work before the first
// connection succeeds.
func (m *Mirror) warmStart(ctx context.Context) {
	if m.cache == nil || m.store.Loaded() {
		return
	}

	data, err := m.cache.LoadSnapshot(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("Failed to load cached registry snapshot")
		return
	}
	if data == nil {
		return
	}

	snap, err := registry.DecodeSnapshot(data)
	if err != nil {
		m.logger.WithError(err).Warn("Ignoring unreadable cached registry snapshot")
		return
	}

	m.store.Replace(snap)
	m.mu.Lock()
	m.status.WarmStarted = true
	m.mu.Unlock()

	m.logger.WithField("loaded_at", snap.LoadedAt).Info("Registry snapshot restored from cache")
}

func (m *Mirror) persist(ctx context.Context, counts map[string]int) {
	if m.cache == nil {
		return
	}

	data, err := m.store.MarshalSnapshot()
	if err != nil {
		m.logger.WithError(err).Warn("Failed to encode registry snapshot")
		return
	}
	if err := m.cache.SaveSnapshot(ctx, data, counts); err != nil {
		m.logger.WithError(err).Warn("Failed to cache registry snapshot")
	}
}
