package hafake

// Seed loads a small home into the fake: two integrations, a device with an
// area, a label and a mix of enabled, disabled, hidden and orphaned entities.
func (s *Server) Seed() {
	s.SetResult("config/entity_registry/list", []map[string]interface{}{
		{
			"entity_id":       "light.kitchen_ceiling",
			"unique_id":       "hue-1",
			"platform":        "hue",
			"config_entry_id": "entry-hue",
			"device_id":       "dev-bulb",
			"area_id":         nil,
			"name":            nil,
			"original_name":   "Kitchen ceiling",
			"icon":            "mdi:ceiling-light",
			"labels":          []string{"lbl-energy"},
			"created_at":      1700000000.5,
			"modified_at":     "2024-01-02T03:04:05+00:00",
		},
		{
			"entity_id":       "sensor.kitchen_power",
			"unique_id":       "hue-2",
			"platform":        "hue",
			"config_entry_id": "entry-hue",
			"device_id":       "dev-bulb",
			"name":            "Kitchen power",
			"disabled_by":     "user",
			"labels":          []string{},
		},
		{
			"entity_id":       "switch.garden_pump",
			"unique_id":       "zha-9",
			"platform":        "zha",
			"config_entry_id": "entry-zha",
			"area_id":         "garden",
			"hidden_by":       "integration",
		},
		{
			"entity_id": "input_boolean.guest_mode",
			"platform":  "input_boolean",
			"name":      "Guest mode",
		},
	})
	s.SetResult("config/device_registry/list", []map[string]interface{}{
		{"id": "dev-bulb", "name": "Hue bulb", "name_by_user": "Ceiling bulb", "area_id": "kitchen"},
	})
	s.SetResult("config/area_registry/list", []map[string]interface{}{
		{"area_id": "kitchen", "name": "Kitchen"},
		{"area_id": "garden", "name": "Garden"},
	})
	s.SetResult("config/label_registry/list", []map[string]interface{}{
		{"label_id": "lbl-energy", "name": "Energy"},
	})
	s.SetResult("config_entries/get", []map[string]interface{}{
		{"entry_id": "entry-hue", "domain": "hue", "title": "Philips Hue"},
		{"entry_id": "entry-zha", "domain": "zha", "title": "Zigbee"},
	})
	s.SetResult("get_states", []map[string]interface{}{
		{"entity_id": "light.kitchen_ceiling", "state": "on", "attributes": map[string]interface{}{"friendly_name": "Kitchen ceiling"}},
		{"entity_id": "switch.garden_pump", "state": "unavailable", "attributes": map[string]interface{}{}},
		{"entity_id": "input_boolean.guest_mode", "state": "unknown", "attributes": map[string]interface{}{}},
		{"entity_id": "sun.sun", "state": "above_horizon", "attributes": map[string]interface{}{"friendly_name": "Sun"}},
	})
}
