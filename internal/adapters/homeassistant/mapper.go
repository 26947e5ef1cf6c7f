package homeassistant

import (
	"github.com/ekobres/spook/internal/core/registry"
)

// ToSnapshot converts a registry dump into a registry snapshot
func ToSnapshot(dump *RegistryDump) *registry.Snapshot {
	entities := make([]registry.Entity, 0, len(dump.Entities))
	for _, e := range dump.Entities {
		entities = append(entities, MapEntity(e))
	}

	devices := make([]registry.Device, 0, len(dump.Devices))
	for _, d := range dump.Devices {
		devices = append(devices, registry.Device{
			ID:         d.ID,
			Name:       deref(d.Name),
			NameByUser: deref(d.NameByUser),
			AreaID:     deref(d.AreaID),
		})
	}

	areas := make([]registry.Area, 0, len(dump.Areas))
	for _, a := range dump.Areas {
		areas = append(areas, registry.Area{AreaID: a.AreaID, Name: a.Name})
	}

	labels := make([]registry.Label, 0, len(dump.Labels))
	for _, l := range dump.Labels {
		labels = append(labels, registry.Label{LabelID: l.LabelID, Name: l.Name})
	}

	entries := make([]registry.ConfigEntry, 0, len(dump.ConfigEntries))
	for _, c := range dump.ConfigEntries {
		entries = append(entries, registry.ConfigEntry{EntryID: c.EntryID, Domain: c.Domain, Title: c.Title})
	}

	states := make([]registry.State, 0, len(dump.States))
	for i := range dump.States {
		states = append(states, *MapState(&dump.States[i]))
	}

	return registry.NewSnapshot(entities, devices, areas, labels, entries, states)
}

// MapEntity converts one entity registry row
func MapEntity(e EntityRegistryEntry) registry.Entity {
	var labels []string
	if len(e.Labels) > 0 {
		labels = append(labels, e.Labels...)
	}
	return registry.Entity{
		EntityID:      e.EntityID,
		UniqueID:      deref(e.UniqueID),
		Platform:      e.Platform,
		ConfigEntryID: deref(e.ConfigEntryID),
		DeviceID:      deref(e.DeviceID),
		AreaID:        deref(e.AreaID),
		DisabledBy:    deref(e.DisabledBy),
		HiddenBy:      deref(e.HiddenBy),
		Name:          deref(e.Name),
		OriginalName:  deref(e.OriginalName),
		Icon:          deref(e.Icon),
		Labels:        labels,
		CreatedAt:     e.CreatedAt.Ptr(),
		ModifiedAt:    e.ModifiedAt.Ptr(),
	}
}

// MapState converts a live state. A nil input maps to nil.
func MapState(s *EntityState) *registry.State {
	if s == nil {
		return nil
	}
	return &registry.State{
		EntityID:    s.EntityID,
		State:       s.State,
		Attributes:  s.Attributes,
		LastChanged: s.LastChanged,
		LastUpdated: s.LastUpdated,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
