package entityfilter

import (
	"bytes"
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// LabelRef is one entry of the labels column
type LabelRef struct {
	LabelID   string  `json:"label_id" yaml:"label_id"`
	LabelName *string `json:"label_name" yaml:"label_name"`
}

type column struct {
	key   string
	value interface{}
}

// Item is one matched entity. Without projected columns it encodes as the
// bare entity id; otherwise as an object whose keys keep insertion order.
type Item struct {
	EntityID string
	columns  []column
}

// Bare reports whether the item carries no projected columns
func (i Item) Bare() bool {
	return i.columns == nil
}

// Keys returns the projected keys in output order, entity_id excluded
func (i Item) Keys() []string {
	keys := make([]string, len(i.columns))
	for n, c := range i.columns {
		keys[n] = c.key
	}
	return keys
}

// Value returns a projected value by key
func (i Item) Value(key string) (interface{}, bool) {
	for _, c := range i.columns {
		if c.key == key {
			return c.value, true
		}
	}
	return nil, false
}

func (i *Item) set(key string, value interface{}) {
	i.columns = append(i.columns, column{key: key, value: value})
}

func (i Item) MarshalJSON() ([]byte, error) {
	if i.columns == nil {
		return json.Marshal(i.EntityID)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"entity_id":`)
	id, err := json.Marshal(i.EntityID)
	if err != nil {
		return nil, err
	}
	buf.Write(id)

	for _, c := range i.columns {
		key, _ := json.Marshal(c.key)
		value, err := json.Marshal(c.value)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (i Item) MarshalYAML() (interface{}, error) {
	if i.columns == nil {
		return i.EntityID, nil
	}

	node := &yaml.Node{Kind: yaml.MappingNode}
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: "entity_id"},
		&yaml.Node{Kind: yaml.ScalarNode, Value: i.EntityID},
	)
	for _, c := range i.columns {
		value := &yaml.Node{}
		if err := value.Encode(c.value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: c.key}, value)
	}
	return node, nil
}

// Result is the response of list_filtered_entities
type Result struct {
	Count    int    `json:"count" yaml:"count"`
	Entities []Item `json:"entities" yaml:"entities"`
}

// IDs returns the entity ids of the result in order
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Entities))
	for n, item := range r.Entities {
		ids[n] = item.EntityID
	}
	return ids
}

// HiddenResult is the response of list_hidden_entities
type HiddenResult struct {
	Count    int      `json:"count" yaml:"count"`
	Entities []string `json:"entities" yaml:"entities"`
}

// isoTime formats like Python's datetime.isoformat for aware timestamps:
// six fraction digits when there is a fraction, none otherwise.
func isoTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	layout := "2006-01-02T15:04:05-07:00"
	if t.Nanosecond()/int(time.Microsecond) != 0 {
		layout = "2006-01-02T15:04:05.000000-07:00"
	}
	s := t.Format(layout)
	return &s
}
