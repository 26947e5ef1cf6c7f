package entityfilter

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Action names
const (
	ActionListFilteredEntities = "list_filtered_entities"
	ActionListHiddenEntities   = "list_hidden_entities"
)

// Actions lists every action the service answers
var Actions = []string{ActionListFilteredEntities, ActionListHiddenEntities}

// Field describes one input field of an action
type Field struct {
	Name        string      `json:"name" yaml:"-"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Example     interface{} `json:"example,omitempty" yaml:"example,omitempty"`
	Default     interface{} `json:"default,omitempty" yaml:"default,omitempty"`
	Selector    Selector    `json:"selector" yaml:"selector"`
}

// Selector is the UI widget of a field. Exactly one member is set.
type Selector struct {
	Text    *TextSelector    `json:"text,omitempty" yaml:"text,omitempty"`
	Select  *SelectSelector  `json:"select,omitempty" yaml:"select,omitempty"`
	Number  *NumberSelector  `json:"number,omitempty" yaml:"number,omitempty"`
	Boolean *BooleanSelector `json:"boolean,omitempty" yaml:"boolean,omitempty"`
}

type TextSelector struct{}

type SelectSelector struct {
	Multiple    bool     `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	CustomValue bool     `json:"custom_value,omitempty" yaml:"custom_value,omitempty"`
	Mode        string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Options     []Option `json:"options" yaml:"options"`
}

type NumberSelector struct {
	Min  int    `json:"min" yaml:"min"`
	Max  int    `json:"max" yaml:"max"`
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
}

type BooleanSelector struct{}

// Schema is the description of one action
type Schema struct {
	Action      string  `json:"action"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
}

const listFilteredDescription = "Return entities that match the selected filters. Response includes a count and a list of entity IDs, or objects with requested values."

// Fields builds the list_filtered_entities schema with the current
// selector choices.
func Fields(p *OptionProvider, limits Limits) (*Schema, error) {
	options := make(map[string][]Option, len(OptionKinds))
	for _, kind := range OptionKinds {
		opts, err := p.Options(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s options: %w", kind, err)
		}
		options[kind] = opts
	}

	status := make([]Option, len(StatusOptions))
	for i, s := range StatusOptions {
		status[i] = Option{Value: s, Label: StatusLabel(s)}
	}
	values := make([]Option, len(ValueOptions))
	for i, v := range ValueOptions {
		values[i] = Option{Value: v, Label: TitleCase(v)}
	}

	multi := func(opts []Option, custom bool) Selector {
		return Selector{Select: &SelectSelector{Multiple: true, CustomValue: custom, Options: opts}}
	}

	return &Schema{
		Action:      ActionListFilteredEntities,
		Description: listFilteredDescription,
		Fields: []Field{
			{Name: "search", Description: "Case-insensitive text matched against ids, names, integrations, devices, areas, labels and statuses.", Example: "kitchen", Selector: Selector{Text: &TextSelector{}}},
			{Name: "areas", Description: "Only entities in one of these areas.", Selector: multi(options[OptionAreas], false)},
			{Name: "devices", Description: "Only entities of one of these devices.", Selector: multi(options[OptionDevices], false)},
			{Name: "domains", Description: "Only entities of one of these domains.", Selector: multi(options[OptionDomains], true)},
			{Name: "integrations", Description: "Only entities provided by one of these integrations.", Selector: multi(options[OptionIntegrations], true)},
			{Name: "status", Description: "Only entities having one of these statuses.", Selector: multi(status, false)},
			{Name: "labels", Description: "Only entities carrying one of these labels.", Selector: multi(options[OptionLabels], false)},
			{Name: "values", Description: "Columns to return for each entity. Without columns only entity ids are returned.", Selector: multi(values, false)},
			{Name: "limit", Description: "Maximum number of entities to return.", Default: limits.Default, Selector: Selector{Number: &NumberSelector{Min: 1, Max: limits.Max, Mode: "box"}}},
			{Name: "include_unregistered", Description: "Also consider live states that have no entity registry entry.", Default: false, Selector: Selector{Boolean: &BooleanSelector{}}},
		},
	}, nil
}

// FieldsYAML renders the schema as a services.yaml document
func FieldsYAML(schema *Schema) ([]byte, error) {
	fields := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range schema.Fields {
		value := &yaml.Node{}
		if err := value.Encode(f); err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", f.Name, err)
		}
		fields.Content = append(fields.Content, scalar(f.Name), value)
	}

	action := &yaml.Node{Kind: yaml.MappingNode}
	action.Content = append(action.Content,
		scalar("description"), scalar(schema.Description),
		scalar("response"), &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{scalar("optional"), {Kind: yaml.ScalarNode, Tag: "!!bool", Value: "false"}}},
		scalar("fields"), fields,
	)

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{
		{Kind: yaml.MappingNode, Content: []*yaml.Node{scalar(schema.Action), action}},
	}}
	return yaml.Marshal(doc)
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
}

// Dispatch runs an action by name with raw call data
func (s *Service) Dispatch(ctx context.Context, action string, data map[string]interface{}) (interface{}, error) {
	switch action {
	case ActionListFilteredEntities:
		return s.ListFilteredEntities(ctx, s.Parse(data))
	case ActionListHiddenEntities:
		return s.ListHiddenEntities(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
}
