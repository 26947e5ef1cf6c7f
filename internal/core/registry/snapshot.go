package registry

import (
	"sort"
	"time"
)

// Snapshot is one consistent copy of the host registries. A snapshot is
// never modified after it is installed in a Store, except for its states
// which the Store updates under its write lock.
type Snapshot struct {
	Entities      map[string]*Entity      `json:"entities"`
	Devices       map[string]*Device      `json:"devices"`
	Areas         map[string]*Area        `json:"areas"`
	Labels        map[string]*Label       `json:"labels"`
	ConfigEntries map[string]*ConfigEntry `json:"config_entries"`
	States        map[string]*State       `json:"states"`
	LoadedAt      time.Time               `json:"loaded_at"`

	entityIDs []string
	orphanIDs []string
}

// NewSnapshot builds a snapshot from flat record lists
func NewSnapshot(entities []Entity, devices []Device, areas []Area, labels []Label, entries []ConfigEntry, states []State) *Snapshot {
	s := &Snapshot{
		Entities:      make(map[string]*Entity, len(entities)),
		Devices:       make(map[string]*Device, len(devices)),
		Areas:         make(map[string]*Area, len(areas)),
		Labels:        make(map[string]*Label, len(labels)),
		ConfigEntries: make(map[string]*ConfigEntry, len(entries)),
		States:        make(map[string]*State, len(states)),
		LoadedAt:      time.Now().UTC(),
	}

	for i := range entities {
		if entities[i].EntityID != "" {
			s.Entities[entities[i].EntityID] = &entities[i]
		}
	}
	for i := range devices {
		s.Devices[devices[i].ID] = &devices[i]
	}
	for i := range areas {
		s.Areas[areas[i].AreaID] = &areas[i]
	}
	for i := range labels {
		s.Labels[labels[i].LabelID] = &labels[i]
	}
	for i := range entries {
		s.ConfigEntries[entries[i].EntryID] = &entries[i]
	}
	for i := range states {
		if states[i].EntityID != "" {
			s.States[states[i].EntityID] = &states[i]
		}
	}

	s.index()
	return s
}

// index computes the sorted id lists. It must run again after the maps
// change, which Store does after decoding or applying a state change.
func (s *Snapshot) index() {
	if s.Entities == nil {
		s.Entities = map[string]*Entity{}
	}
	if s.Devices == nil {
		s.Devices = map[string]*Device{}
	}
	if s.Areas == nil {
		s.Areas = map[string]*Area{}
	}
	if s.Labels == nil {
		s.Labels = map[string]*Label{}
	}
	if s.ConfigEntries == nil {
		s.ConfigEntries = map[string]*ConfigEntry{}
	}
	if s.States == nil {
		s.States = map[string]*State{}
	}

	s.entityIDs = make([]string, 0, len(s.Entities))
	for id := range s.Entities {
		s.entityIDs = append(s.entityIDs, id)
	}
	sort.Strings(s.entityIDs)
	s.reindexOrphans()
}

func (s *Snapshot) reindexOrphans() {
	s.orphanIDs = s.orphanIDs[:0]
	for id := range s.States {
		if _, ok := s.Entities[id]; !ok {
			s.orphanIDs = append(s.orphanIDs, id)
		}
	}
	sort.Strings(s.orphanIDs)
}

// EntityIDs returns the registered entity ids in sorted order
func (s *Snapshot) EntityIDs() []string {
	return s.entityIDs
}

// OrphanStateIDs returns ids of live states with no registry entry, sorted
func (s *Snapshot) OrphanStateIDs() []string {
	return s.orphanIDs
}

func (s *Snapshot) Entity(id string) (*Entity, bool) {
	e, ok := s.Entities[id]
	return e, ok
}

func (s *Snapshot) Device(id string) (*Device, bool) {
	if id == "" {
		return nil, false
	}
	d, ok := s.Devices[id]
	return d, ok
}

func (s *Snapshot) Area(id string) (*Area, bool) {
	if id == "" {
		return nil, false
	}
	a, ok := s.Areas[id]
	return a, ok
}

func (s *Snapshot) Label(id string) (*Label, bool) {
	l, ok := s.Labels[id]
	return l, ok
}

func (s *Snapshot) ConfigEntry(id string) (*ConfigEntry, bool) {
	if id == "" {
		return nil, false
	}
	c, ok := s.ConfigEntries[id]
	return c, ok
}

func (s *Snapshot) State(id string) (*State, bool) {
	st, ok := s.States[id]
	return st, ok
}

// Counts summarises the snapshot size per registry
func (s *Snapshot) Counts() map[string]int {
	return map[string]int{
		"entities":       len(s.Entities),
		"devices":        len(s.Devices),
		"areas":          len(s.Areas),
		"labels":         len(s.Labels),
		"config_entries": len(s.ConfigEntries),
		"states":         len(s.States),
	}
}
