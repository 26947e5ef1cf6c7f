package homeassistant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Function type aliases for cleaner interfaces
type EventHandler func(event Event)
type ConnectionStateHandler func(connected bool)

// Event types published on the Home Assistant bus that the mirror follows
const (
	EventEntityRegistryUpdated = "entity_registry_updated"
	EventDeviceRegistryUpdated = "device_registry_updated"
	EventAreaRegistryUpdated   = "area_registry_updated"
	EventLabelRegistryUpdated  = "label_registry_updated"
	EventStateChanged          = "state_changed"
)

// RegistryEvents lists every registry update event type
var RegistryEvents = []string{
	EventEntityRegistryUpdated,
	EventDeviceRegistryUpdated,
	EventAreaRegistryUpdated,
	EventLabelRegistryUpdated,
}

// HAConfig represents the subset of /api/config used for health checks
type HAConfig struct {
	Version      string   `json:"version"`
	LocationName string   `json:"location_name"`
	TimeZone     string   `json:"time_zone"`
	Components   []string `json:"components"`
	State        string   `json:"state"`
}

// EntityState represents a Home Assistant entity state
type EntityState struct {
	EntityID    string                 `json:"entity_id"`
	State       string                 `json:"state"`
	Attributes  map[string]interface{} `json:"attributes"`
	LastChanged time.Time              `json:"last_changed"`
	LastUpdated time.Time              `json:"last_updated"`
	Context     Context                `json:"context"`
}

// Context represents the context of an entity state change
type Context struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parent_id"`
	UserID   *string `json:"user_id"`
}

// EntityRegistryEntry is one row of config/entity_registry/list
type EntityRegistryEntry struct {
	ID            string    `json:"id"`
	EntityID      string    `json:"entity_id"`
	UniqueID      *string   `json:"unique_id"`
	Platform      string    `json:"platform"`
	ConfigEntryID *string   `json:"config_entry_id"`
	DeviceID      *string   `json:"device_id"`
	AreaID        *string   `json:"area_id"`
	DisabledBy    *string   `json:"disabled_by"`
	HiddenBy      *string   `json:"hidden_by"`
	Name          *string   `json:"name"`
	OriginalName  *string   `json:"original_name"`
	Icon          *string   `json:"icon"`
	Labels        []string  `json:"labels"`
	CreatedAt     Timestamp `json:"created_at"`
	ModifiedAt    Timestamp `json:"modified_at"`
}

// DeviceRegistryEntry is one row of config/device_registry/list
type DeviceRegistryEntry struct {
	ID           string   `json:"id"`
	AreaID       *string  `json:"area_id"`
	Name         *string  `json:"name"`
	NameByUser   *string  `json:"name_by_user"`
	Manufacturer *string  `json:"manufacturer"`
	Model        *string  `json:"model"`
	DisabledBy   *string  `json:"disabled_by"`
	Labels       []string `json:"labels"`
}

// AreaRegistryEntry is one row of config/area_registry/list
type AreaRegistryEntry struct {
	AreaID  string   `json:"area_id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// LabelRegistryEntry is one row of config/label_registry/list
type LabelRegistryEntry struct {
	LabelID string  `json:"label_id"`
	Name    string  `json:"name"`
	Color   *string `json:"color"`
	Icon    *string `json:"icon"`
}

// ConfigEntry is one row of config_entries/get
type ConfigEntry struct {
	EntryID string `json:"entry_id"`
	Domain  string `json:"domain"`
	Title   string `json:"title"`
	State   string `json:"state"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	ID        int             `json:"id,omitempty"`
	Type      string          `json:"type"`
	Success   *bool           `json:"success,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Event     *Event          `json:"event,omitempty"`
	Error     *WSError        `json:"error,omitempty"`
	HAVersion string          `json:"ha_version,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// WSError represents a WebSocket error
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Event represents a Home Assistant event
type Event struct {
	EventType string                 `json:"event_type"`
	Data      map[string]interface{} `json:"data"`
	Origin    string                 `json:"origin"`
	TimeFired time.Time              `json:"time_fired"`
	Context   Context                `json:"context"`
}

// StateChangedEventData represents data for state_changed events
type StateChangedEventData struct {
	EntityID string       `json:"entity_id"`
	OldState *EntityState `json:"old_state"`
	NewState *EntityState `json:"new_state"`
}

// DecodeStateChanged re-decodes the generic event payload of a state_changed event
func DecodeStateChanged(event Event) (*StateChangedEventData, error) {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	var data StateChangedEventData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// AuthMessage represents the WebSocket authentication message
type AuthMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token,omitempty"`
}

// Timestamp decodes registry timestamps, which Home Assistant sends as
// epoch seconds in newer releases and as ISO strings in older ones.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.Time = parsed
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			t.Time = epochToTime(f)
			return nil
		}
		return fmt.Errorf("unrecognised timestamp %q", s)
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("unrecognised timestamp %s", data)
	}
	t.Time = epochToTime(f)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Ptr returns nil for the zero time
func (t Timestamp) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// epochToTime rounds to the microsecond, the precision Home Assistant stores
func epochToTime(f float64) time.Time {
	return time.UnixMicro(int64(math.Round(f * 1e6))).UTC()
}
