package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"
)

// sliceFilters maps repeatable flags to list_filtered_entities fields
var sliceFilters = []struct {
	flag  string
	field string
	usage string
}{
	{"area", "areas", "area id"},
	{"device", "devices", "device id"},
	{"label", "labels", "label id"},
	{"domain", "domains", "entity domain"},
	{"integration", "integrations", "integration (platform)"},
	{"status", "status", "status: enabled, disabled, hidden, visible, available, unavailable, unregistered"},
	{"value", "values", "column to project"},
}

func filterFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "data", Usage: "raw call data as a JSON object; flags override its keys"},
		&cli.StringFlag{Name: "search", Usage: "case-insensitive substring of entity id or name"},
		&cli.BoolFlag{Name: "include-unregistered", Usage: "also match entities that only have a state"},
		&cli.IntFlag{Name: "limit", Usage: "maximum number of entities"},
	}
	for _, f := range sliceFilters {
		flags = append(flags, &cli.StringSliceFlag{Name: f.flag, Usage: f.usage + " (repeatable)"})
	}
	return flags
}

// filterData builds the call data from --data and the filter flags. Only
// flags given on the command line are sent.
func filterData(cmd *cli.Command) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	if raw := cmd.String("data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, fmt.Errorf("--data must be a JSON object: %w", err)
		}
		if data == nil {
			data = map[string]interface{}{}
		}
	}

	for _, f := range sliceFilters {
		if cmd.IsSet(f.flag) {
			data[f.field] = cmd.StringSlice(f.flag)
		}
	}
	if cmd.IsSet("search") {
		data["search"] = cmd.String("search")
	}
	if cmd.IsSet("include-unregistered") {
		data["include_unregistered"] = cmd.Bool("include-unregistered")
	}
	if cmd.IsSet("limit") {
		data["limit"] = cmd.Int("limit")
	}
	return data, nil
}
