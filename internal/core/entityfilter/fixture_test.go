package entityfilter

import (
	"io"
	"testing"
	"time"

	"github.com/ekobres/spook/internal/core/registry"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fixtureSnapshot models a small home:
//
//	light.kitchen_ceiling  hue, device bulb (area kitchen via device), label energy, on
//	sensor.kitchen_power   hue, device bulb, disabled, no state
//	switch.garden_pump     zha, area garden, hidden, unavailable
//	input_boolean.guest    no unique id, no config entry, unknown
//	cover.Garage           zha, upper-case object id, area missing from registry
//	sun.sun                orphan state
func fixtureSnapshot() *registry.Snapshot {
	return registry.NewSnapshot(
		[]registry.Entity{
			{EntityID: "light.kitchen_ceiling", UniqueID: "hue-1", Platform: "hue", ConfigEntryID: "entry-hue", DeviceID: "dev-bulb", OriginalName: "Kitchen ceiling", Icon: "mdi:ceiling-light", Labels: []string{"lbl-energy", "lbl-night"}, CreatedAt: &created},
			{EntityID: "sensor.kitchen_power", UniqueID: "hue-2", Platform: "hue", ConfigEntryID: "entry-hue", DeviceID: "dev-bulb", Name: "Kitchen power", DisabledBy: "user"},
			{EntityID: "switch.garden_pump", UniqueID: "zha-9", Platform: "zha", ConfigEntryID: "entry-zha", AreaID: "garden", HiddenBy: "integration"},
			{EntityID: "input_boolean.guest", Platform: "input_boolean", Name: "Guest mode"},
			{EntityID: "cover.garage", UniqueID: "zha-10", Platform: "ZHA", ConfigEntryID: "entry-zha", AreaID: "attic"},
		},
		[]registry.Device{{ID: "dev-bulb", Name: "Hue bulb", NameByUser: "Ceiling bulb", AreaID: "kitchen"}},
		[]registry.Area{{AreaID: "kitchen", Name: "Kitchen"}, {AreaID: "garden", Name: "Garden"}},
		[]registry.Label{{LabelID: "lbl-energy", Name: "Energy"}, {LabelID: "lbl-night"}},
		[]registry.ConfigEntry{{EntryID: "entry-hue", Domain: "hue", Title: "Philips Hue"}, {EntryID: "entry-zha", Domain: "zha", Title: "Zigbee"}},
		[]registry.State{
			{EntityID: "light.kitchen_ceiling", State: "on", Attributes: map[string]interface{}{"friendly_name": "Kitchen ceiling"}},
			{EntityID: "switch.garden_pump", State: "unavailable"},
			{EntityID: "input_boolean.guest", State: "unknown"},
			{EntityID: "cover.garage", State: "closed", Attributes: map[string]interface{}{"friendly_name": "Garage door"}},
			{EntityID: "sun.sun", State: "above_horizon", Attributes: map[string]interface{}{"friendly_name": "Sun", "icon": "mdi:white-balance-sunny"}},
		},
	)
}

func newFixtureService(t *testing.T) (*Service, *registry.Store) {
	t.Helper()
	store := registry.NewStore(quietLogger())
	store.Replace(fixtureSnapshot())
	return NewService(store, DefaultLimits, quietLogger()), store
}
