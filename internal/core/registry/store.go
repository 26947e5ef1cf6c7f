package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrNotLoaded is returned by Read before the first snapshot is installed
var ErrNotLoaded = errors.New("registry snapshot not loaded")

// ChangeKind names what changed in the mirrored registries
type ChangeKind string

const (
	ChangeSnapshot ChangeKind = "snapshot"
	ChangeEntity   ChangeKind = "entity_registry"
	ChangeDevice   ChangeKind = "device_registry"
	ChangeArea     ChangeKind = "area_registry"
	ChangeLabel    ChangeKind = "label_registry"
)

// ChangeListener is called after a change is visible to readers
type ChangeListener func(kind ChangeKind)

// Store holds the current snapshot
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot

	listenersMu sync.RWMutex
	listeners   []ChangeListener

	logger *logrus.Logger
}

func NewStore(logger *logrus.Logger) *Store {
	return &Store{logger: logger}
}

// Replace installs a full snapshot
func (s *Store) Replace(snap *Snapshot) {
	if snap == nil {
		return
	}
	if snap.entityIDs == nil {
		snap.index()
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"entities": len(snap.Entities),
		"states":   len(snap.States),
	}).Info("Registry snapshot installed")

	s.notify(ChangeSnapshot)
}

// ApplyStateChange updates one live state. A nil state removes it.
func (s *Store) ApplyStateChange(entityID string, state *State) {
	if entityID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == nil {
		return
	}

	_, registered := s.snap.Entities[entityID]
	_, existed := s.snap.States[entityID]

	if state == nil {
		delete(s.snap.States, entityID)
		if !registered && existed {
			s.snap.orphanIDs = removeSorted(s.snap.orphanIDs, entityID)
		}
		return
	}

	s.snap.States[entityID] = state
	if !registered && !existed {
		s.snap.orphanIDs = insertSorted(s.snap.orphanIDs, entityID)
	}
}

// Read runs fn with the current snapshot under the read lock. fn must not
// retain the snapshot or call back into the Store.
func (s *Store) Read(fn func(snap *Snapshot) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return ErrNotLoaded
	}
	return fn(s.snap)
}

func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap != nil
}

// Stats reports the size of the current snapshot
func (s *Store) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return map[string]interface{}{"loaded": false}
	}
	stats := map[string]interface{}{
		"loaded":    true,
		"loaded_at": s.snap.LoadedAt,
		"orphans":   len(s.snap.orphanIDs),
	}
	for k, v := range s.snap.Counts() {
		stats[k] = v
	}
	return stats
}

// OnChange registers a listener for registry changes
func (s *Store) OnChange(listener ChangeListener) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, listener)
	s.listenersMu.Unlock()
}

// NotifyChange tells listeners a host registry changed. The snapshot itself
// is refreshed separately.
func (s *Store) NotifyChange(kind ChangeKind) {
	s.notify(kind)
}

func (s *Store) notify(kind ChangeKind) {
	s.listenersMu.RLock()
	listeners := make([]ChangeListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l(kind)
	}
}

// MarshalSnapshot encodes the current snapshot as JSON
func (s *Store) MarshalSnapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return nil, ErrNotLoaded
	}
	return json.Marshal(s.snap)
}

// DecodeSnapshot is the inverse of MarshalSnapshot
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	snap.index()
	return &snap, nil
}

func insertSorted(ids []string, id string) []string {
	i := sort.SearchStrings(ids, id)
	if i < len(ids) && ids[i] == id {
		return ids
	}
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

func removeSorted(ids []string, id string) []string {
	i := sort.SearchStrings(ids, id)
	if i < len(ids) && ids[i] == id {
		return append(ids[:i], ids[i+1:]...)
	}
	return ids
}
