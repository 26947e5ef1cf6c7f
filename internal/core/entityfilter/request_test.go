package entityfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRequest_Limit(t *testing.T) {
	limits := Limits{Default: 10, Max: 100}

	tests := []struct {
		name string
		data map[string]interface{}
		want int
	}{
		{name: "missing", data: map[string]interface{}{}, want: 10},
		{name: "null", data: map[string]interface{}{"limit": nil}, want: 100},
		{name: "in range", data: map[string]interface{}{"limit": float64(42)}, want: 42},
		{name: "fraction truncates", data: map[string]interface{}{"limit": 7.9}, want: 7},
		{name: "above cap", data: map[string]interface{}{"limit": float64(1e9)}, want: 100},
		{name: "zero", data: map[string]interface{}{"limit": float64(0)}, want: 1},
		{name: "negative", data: map[string]interface{}{"limit": -3}, want: 1},
		{name: "numeric string", data: map[string]interface{}{"limit": " 25 "}, want: 25},
		{name: "garbage string", data: map[string]interface{}{"limit": "lots"}, want: 10},
		{name: "list", data: map[string]interface{}{"limit": []interface{}{float64(5)}}, want: 10},
		{name: "true", data: map[string]interface{}{"limit": true}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ParseRequest(tt.data, limits)
			assert.Equal(t, tt.want, req.Limit)
		})
	}
}

func TestParseRequest_ZeroLimitsUseDefaults(t *testing.T) {
	req := ParseRequest(nil, Limits{})
	assert.Equal(t, DefaultLimits.Default, req.Limit)

	req = ParseRequest(map[string]interface{}{"limit": nil}, Limits{})
	assert.Equal(t, DefaultLimits.Max, req.Limit)
}

func TestParseRequest_Sets(t *testing.T) {
	req := ParseRequest(map[string]interface{}{
		"areas":        "kitchen",
		"devices":      []interface{}{"dev-1", "", "dev-2"},
		"labels":       []interface{}{},
		"domains":      []interface{}{" Light ", "SWITCH"},
		"integrations": "ZHA",
		"status":       []interface{}{"Hidden"},
	}, DefaultLimits)

	assert.Equal(t, map[string]struct{}{"kitchen": {}}, req.Areas)
	assert.Equal(t, map[string]struct{}{"dev-1": {}, "dev-2": {}}, req.Devices)
	assert.Nil(t, req.Labels)
	assert.Equal(t, map[string]struct{}{"light": {}, "switch": {}}, req.Domains)
	assert.Equal(t, map[string]struct{}{"zha": {}}, req.Integrations)
	assert.Equal(t, map[string]struct{}{"hidden": {}}, req.Status)
}

func TestParseRequest_BlankListMatchesNothing(t *testing.T) {
	req := ParseRequest(map[string]interface{}{"domains": []interface{}{"  ", ""}}, DefaultLimits)

	assert.NotNil(t, req.Domains)
	assert.Empty(t, req.Domains)
}

func TestParseRequest_Values(t *testing.T) {
	req := ParseRequest(map[string]interface{}{
		"values": []interface{}{"labels", "unknown", "name", "status", "name"},
	}, DefaultLimits)
	assert.Equal(t, []string{ColumnName, ColumnStatus, ColumnLabels}, req.Values)
	assert.True(t, req.Projects())

	req = ParseRequest(map[string]interface{}{"values": "name"}, DefaultLimits)
	assert.Nil(t, req.Values)
	assert.False(t, req.Projects())
}

func TestParseRequest_SearchAndFlags(t *testing.T) {
	req := ParseRequest(map[string]interface{}{
		"search":               "  Kitchen Light ",
		"include_unregistered": "true",
	}, DefaultLimits)
	assert.Equal(t, "kitchen light", req.Search)
	assert.True(t, req.IncludeUnregistered)

	req = ParseRequest(map[string]interface{}{
		"search":               "",
		"include_unregistered": false,
	}, DefaultLimits)
	assert.Empty(t, req.Search)
	assert.False(t, req.IncludeUnregistered)

	req = ParseRequest(map[string]interface{}{"search": float64(42)}, DefaultLimits)
	assert.Equal(t, "42", req.Search)
}

func TestStatusLabelAndTitleCase(t *testing.T) {
	assert.Equal(t, "Not provided", StatusLabel(StatusNotProvided))
	assert.Equal(t, "Unmanageable", StatusLabel(StatusUnmanageable))
	assert.Equal(t, "Whatever Else", StatusLabel("whatever_else"))

	tests := map[string]string{
		"input_boolean": "Input Boolean",
		"zigbee2mqtt":   "Zigbee2Mqtt",
		"ZHA":           "Zha",
		"hue":           "Hue",
		"":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, TitleCase(in), in)
	}
}

func TestDeriveStatus_Orphan(t *testing.T) {
	flags := DeriveStatus(nil, nil)

	assert.False(t, flags.Available)
	assert.True(t, flags.Unmanageable)
	assert.False(t, flags.NotProvided)
	assert.Equal(t, []string{StatusUnavailable, StatusEnabled, StatusVisible, StatusUnmanageable}, flags.Slugs())
}
