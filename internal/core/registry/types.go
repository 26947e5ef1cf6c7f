package registry

import (
	"strings"
	"time"
)

// Entity is a mirrored entity registry record. Empty strings stand for
// values the host left unset.
type Entity struct {
	EntityID      string     `json:"entity_id"`
	UniqueID      string     `json:"unique_id,omitempty"`
	Platform      string     `json:"platform,omitempty"`
	ConfigEntryID string     `json:"config_entry_id,omitempty"`
	DeviceID      string     `json:"device_id,omitempty"`
	AreaID        string     `json:"area_id,omitempty"`
	DisabledBy    string     `json:"disabled_by,omitempty"`
	HiddenBy      string     `json:"hidden_by,omitempty"`
	Name          string     `json:"name,omitempty"`
	OriginalName  string     `json:"original_name,omitempty"`
	Icon          string     `json:"icon,omitempty"`
	Labels        []string   `json:"labels,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	ModifiedAt    *time.Time `json:"modified_at,omitempty"`
}

// Domain is the part of the entity id before the first dot
func (e *Entity) Domain() string {
	return Domain(e.EntityID)
}

// Domain returns the domain of an entity id
func Domain(entityID string) string {
	if i := strings.IndexByte(entityID, '.'); i >= 0 {
		return entityID[:i]
	}
	return entityID
}

type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	NameByUser string `json:"name_by_user,omitempty"`
	AreaID     string `json:"area_id,omitempty"`
}

// DisplayName prefers the user-assigned name
func (d *Device) DisplayName() string {
	if d.NameByUser != "" {
		return d.NameByUser
	}
	return d.Name
}

type Area struct {
	AreaID string `json:"area_id"`
	Name   string `json:"name,omitempty"`
}

type Label struct {
	LabelID string `json:"label_id"`
	Name    string `json:"name,omitempty"`
}

type ConfigEntry struct {
	EntryID string `json:"entry_id"`
	Domain  string `json:"domain,omitempty"`
	Title   string `json:"title,omitempty"`
}

// State is a live state object
type State struct {
	EntityID    string                 `json:"entity_id"`
	State       string                 `json:"state"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	LastChanged time.Time              `json:"last_changed"`
	LastUpdated time.Time              `json:"last_updated"`
}

// FriendlyName returns the friendly_name attribute when it is a string
func (s *State) FriendlyName() string {
	if s == nil {
		return ""
	}
	if name, ok := s.Attributes["friendly_name"].(string); ok {
		return name
	}
	return ""
}
