package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ekobres/spook/internal/core/metrics"
	"github.com/ekobres/spook/internal/database/models"
	"github.com/ekobres/spook/internal/database/repositories"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

const (
	encodingZstd = "zstd"
	encodingRaw  = "raw"
)

// SnapshotCache stores zstd-compressed registry snapshots so the service
// can answer searches before Home Assistant is reachable.
type SnapshotCache struct {
	repo     repositories.SnapshotRepository
	keep     int
	recorder metrics.MetricsCollector
	logger   *logrus.Logger

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewSnapshotCache creates a cache that retains the newest keep snapshots
func NewSnapshotCache(repo repositories.SnapshotRepository, keep int, recorder metrics.MetricsCollector, logger *logrus.Logger) (*SnapshotCache, error) {
	if keep < 1 {
		keep = 3
	}
	if recorder == nil {
		recorder = metrics.NoopCollector{}
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &SnapshotCache{
		repo:     repo,
		keep:     keep,
		recorder: recorder,
		logger:   logger,
		encoder:  encoder,
		decoder:  decoder,
	}, nil
}

// SaveSnapshot compresses and stores one encoded snapshot, then prunes
// older ones.
func (c *SnapshotCache) SaveSnapshot(ctx context.Context, data []byte, counts map[string]int) error {
	start := time.Now()
	defer func() { c.recorder.RecordDatabaseQuery("save_snapshot", time.Since(start)) }()

	compressed := c.encoder.EncodeAll(data, make([]byte, 0, len(data)/4))

	record := &models.RegistrySnapshot{
		CreatedAt:     time.Now().UTC(),
		Encoding:      encodingZstd,
		RawSize:       int64(len(data)),
		StoredSize:    int64(len(compressed)),
		Entities:      counts["entities"],
		Devices:       counts["devices"],
		Areas:         counts["areas"],
		Labels:        counts["labels"],
		ConfigEntries: counts["config_entries"],
		States:        counts["states"],
		Data:          compressed,
	}
	if err := c.repo.Create(ctx, record); err != nil {
		return err
	}

	removed, err := c.repo.Prune(ctx, c.keep)
	if err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"snapshot_id": record.ID,
		"raw_size":    record.RawSize,
		"stored_size": record.StoredSize,
		"pruned":      removed,
	}).Debug("Registry snapshot cached")

	return nil
}

// LoadSnapshot returns the newest encoded snapshot, or nil when none is
// cached.
func (c *SnapshotCache) LoadSnapshot(ctx context.Context) ([]byte, error) {
	start := time.Now()
	defer func() { c.recorder.RecordDatabaseQuery("load_snapshot", time.Since(start)) }()

	record, err := c.repo.Latest(ctx)
	if err != nil || record == nil {
		return nil, err
	}

	switch record.Encoding {
	case encodingZstd:
		data, err := c.decoder.DecodeAll(record.Data, make([]byte, 0, record.RawSize))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress snapshot %d: %w", record.ID, err)
		}
		return data, nil
	case encodingRaw:
		return record.Data, nil
	default:
		return nil, fmt.Errorf("snapshot %d has unknown encoding %q", record.ID, record.Encoding)
	}
}

// Close releases the codec resources
func (c *SnapshotCache) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
