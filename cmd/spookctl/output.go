package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/ekobres/spook/internal/client"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// Printer renders API results in one output format
type Printer struct {
	out    io.Writer
	format string
}

func NewPrinter(out io.Writer, format string) (*Printer, error) {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return &Printer{out: out, format: format}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use table, json or yaml)", format)
	}
}

// List prints a list_filtered_entities result. The table has one column per
// projected key, in the order the server sent them.
func (p *Printer) List(result *client.ListResult) error {
	if p.format != formatTable {
		return p.Value(result)
	}

	var (
		header = []string{"entity_id"}
		rows   [][]string
	)
	for n, raw := range result.Entities {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			rows = append(rows, []string{id})
			continue
		}

		keys, values, err := orderedObject(raw)
		if err != nil {
			return fmt.Errorf("entity %d: %w", n, err)
		}
		if len(header) == 1 {
			header = keys
		}
		row := make([]string, len(header))
		for i, key := range header {
			row[i] = cell(values[key])
		}
		rows = append(rows, row)
	}

	if err := p.table(header, rows); err != nil {
		return err
	}
	return p.footer(result.Count, "entities")
}

// Hidden prints a list_hidden_entities result
func (p *Printer) Hidden(result *client.HiddenResult) error {
	if p.format != formatTable {
		return p.Value(result)
	}

	rows := make([][]string, len(result.Entities))
	for n, id := range result.Entities {
		rows[n] = []string{id}
	}
	if err := p.table([]string{"entity_id"}, rows); err != nil {
		return err
	}
	return p.footer(result.Count, "hidden entities")
}

func (p *Printer) Options(opts []client.SelectOption) error {
	if p.format != formatTable {
		return p.Value(opts)
	}

	rows := make([][]string, len(opts))
	for n, opt := range opts {
		rows[n] = []string{opt.Value, opt.Label}
	}
	if err := p.table([]string{"value", "label"}, rows); err != nil {
		return err
	}
	return p.footer(len(opts), "options")
}

var callColumns = []string{"created_at", "request_id", "action", "transport", "matched", "duration_ms", "error"}

func (p *Printer) Calls(calls []map[string]interface{}) error {
	if p.format != formatTable {
		return p.Value(calls)
	}

	rows := make([][]string, len(calls))
	for n, call := range calls {
		row := make([]string, len(callColumns))
		for i, key := range callColumns {
			row[i] = cell(call[key])
		}
		if errText, ok := call["error"].(string); ok && errText != "" {
			row[len(row)-1] = color.RedString(errText)
		}
		rows[n] = row
	}
	return p.table(callColumns, rows)
}

// Value prints any value. Tables fall back to indented JSON.
func (p *Printer) Value(v interface{}) error {
	switch p.format {
	case formatYAML:
		return p.yaml(v)
	default:
		return p.json(v)
	}
}

func (p *Printer) json(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// yaml re-reads the JSON encoding as a YAML node so object keys keep the
// order the server sent.
func (p *Printer) yaml(v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(p.out)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		blockStyle(child)
	}
}

func (p *Printer) table(header []string, rows [][]string) error {
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)

	bold := color.New(color.Bold).SprintFunc()
	titles := make([]string, len(header))
	for n, h := range header {
		titles[n] = bold(strings.ToUpper(h))
	}
	fmt.Fprintln(w, strings.Join(titles, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func (p *Printer) footer(count int, noun string) error {
	_, err := fmt.Fprintln(p.out, color.CyanString("%d %s", count, noun))
	return err
}

// orderedObject decodes a JSON object keeping its key order
func orderedObject(raw json.RawMessage) ([]string, map[string]interface{}, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, nil, err
	}
	if len(node.Content) != 1 || node.Content[0].Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("expected an object")
	}

	var values map[string]interface{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, nil, err
	}

	mapping := node.Content[0]
	keys := make([]string, 0, len(mapping.Content)/2)
	for i := 0; i < len(mapping.Content); i += 2 {
		keys = append(keys, mapping.Content[i].Value)
	}
	return keys, values, nil
}

// cell formats one table value. Label lists show names, falling back to ids.
func cell(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return "-"
	case string:
		return value
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", value), "0"), ".")
	case bool:
		return fmt.Sprint(value)
	case []interface{}:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			if label, ok := item.(map[string]interface{}); ok {
				if name, ok := label["label_name"].(string); ok && name != "" {
					parts = append(parts, name)
				} else {
					parts = append(parts, cell(label["label_id"]))
				}
				continue
			}
			parts = append(parts, cell(item))
		}
		return strings.Join(parts, ", ")
	case map[string]interface{}:
		keys := make([]string, 0, len(value))
		for k := range value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for n, k := range keys {
			parts[n] = k + "=" + cell(value[k])
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(value)
	}
}
