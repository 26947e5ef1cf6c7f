package entityfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFields(t *testing.T) {
	_, store := newFixtureService(t)
	p := NewOptionProvider(store, quietLogger())

	schema, err := Fields(p, Limits{Default: 100, Max: 1000})
	require.NoError(t, err)
	assert.Equal(t, ActionListFilteredEntities, schema.Action)

	names := make([]string, len(schema.Fields))
	byName := make(map[string]Field, len(schema.Fields))
	for i, f := range schema.Fields {
		names[i] = f.Name
		byName[f.Name] = f
	}
	assert.Equal(t, []string{"search", "areas", "devices", "domains", "integrations", "status", "labels", "values", "limit", "include_unregistered"}, names)

	assert.NotNil(t, byName["search"].Selector.Text)
	assert.True(t, byName["domains"].Selector.Select.CustomValue)
	assert.True(t, byName["integrations"].Selector.Select.CustomValue)
	assert.False(t, byName["areas"].Selector.Select.CustomValue)
	assert.Len(t, byName["status"].Selector.Select.Options, len(StatusOptions))
	assert.Equal(t, Option{Value: StatusNotProvided, Label: "Not provided"}, byName["status"].Selector.Select.Options[7])
	assert.Equal(t, Option{Value: ColumnName, Label: "Name"}, byName["values"].Selector.Select.Options[0])

	limit := byName["limit"]
	assert.Equal(t, 100, limit.Default)
	assert.Equal(t, 1, limit.Selector.Number.Min)
	assert.Equal(t, 1000, limit.Selector.Number.Max)
	assert.NotNil(t, byName["include_unregistered"].Selector.Boolean)
}

func TestFieldsYAML(t *testing.T) {
	_, store := newFixtureService(t)

	schema, err := Fields(NewOptionProvider(store, quietLogger()), DefaultLimits)
	require.NoError(t, err)

	out, err := FieldsYAML(schema)
	require.NoError(t, err)

	var doc map[string]struct {
		Description string `yaml:"description"`
		Response    struct {
			Optional bool `yaml:"optional"`
		} `yaml:"response"`
		Fields map[string]struct {
			Default  interface{}            `yaml:"default"`
			Selector map[string]interface{} `yaml:"selector"`
		} `yaml:"fields"`
	}
	require.NoError(t, yaml.Unmarshal(out, &doc))

	action, ok := doc[ActionListFilteredEntities]
	require.True(t, ok)
	assert.Equal(t, listFilteredDescription, action.Description)
	assert.False(t, action.Response.Optional)
	assert.Len(t, action.Fields, 10)
	assert.Equal(t, DefaultLimits.Default, action.Fields["limit"].Default)
	assert.Contains(t, action.Fields["domains"].Selector, "select")
	assert.Contains(t, action.Fields["include_unregistered"].Selector, "boolean")

	assert.Contains(t, string(out), "custom_value: true")
	assert.NotContains(t, string(out), "name: search")
}
