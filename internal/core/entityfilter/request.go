package entityfilter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Column names accepted in "values"
const (
	ColumnName        = "name"
	ColumnDevice      = "device"
	ColumnArea        = "area"
	ColumnIntegration = "integration"
	ColumnStatus      = "status"
	ColumnIcon        = "icon"
	ColumnCreated     = "created"
	ColumnModified    = "modified"
	ColumnLabels      = "labels"
)

// ValueOptions lists the projectable columns in output order
var ValueOptions = []string{
	ColumnName,
	ColumnDevice,
	ColumnArea,
	ColumnIntegration,
	ColumnStatus,
	ColumnIcon,
	ColumnCreated,
	ColumnModified,
	ColumnLabels,
}

// Limits bounds the number of returned entities
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits are used when no configuration is supplied
var DefaultLimits = Limits{Default: 500, Max: 50000}

// Request is a coerced action call. A nil set means the category is not
// filtered; an empty non-nil set matches nothing.
type Request struct {
	Search              string
	Areas               map[string]struct{}
	Devices             map[string]struct{}
	Labels              map[string]struct{}
	Domains             map[string]struct{}
	Integrations        map[string]struct{}
	Status              map[string]struct{}
	Values              []string
	Limit               int
	IncludeUnregistered bool
}

// Projects reports whether any column was requested
func (r *Request) Projects() bool {
	return len(r.Values) > 0
}

// ParseRequest coerces raw action data. Malformed values fall back to safe
// defaults rather than failing the call.
func ParseRequest(data map[string]interface{}, limits Limits) Request {
	if limits.Max <= 0 {
		limits.Max = DefaultLimits.Max
	}
	if limits.Default <= 0 {
		limits.Default = DefaultLimits.Default
	}

	req := Request{
		Areas:        toIDSet(data["areas"]),
		Devices:      toIDSet(data["devices"]),
		Labels:       toIDSet(data["labels"]),
		Domains:      toLowerSet(data["domains"]),
		Integrations: toLowerSet(data["integrations"]),
		Status:       toLowerSet(data["status"]),
		Values:       toValues(data["values"]),
		Limit:        effectiveLimit(data, limits),
	}

	if s, ok := data["search"]; ok && truthy(s) {
		req.Search = strings.ToLower(strings.TrimSpace(stringify(s)))
	}
	if v, ok := data["include_unregistered"]; ok {
		req.IncludeUnregistered = toBool(v)
	}

	return req
}

// effectiveLimit applies the default, the null-means-cap rule and the clamp
func effectiveLimit(data map[string]interface{}, limits Limits) int {
	raw, present := data["limit"]
	if !present {
		return clamp(limits.Default, limits.Max)
	}
	if raw == nil {
		return limits.Max
	}

	n, ok := toInt(raw)
	if !ok {
		n = limits.Default
	}
	return clamp(n, limits.Max)
}

func clamp(n, upper int) int {
	if n < 1 {
		return 1
	}
	if n > upper {
		return upper
	}
	return n
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		if n > math.MaxInt32 {
			return math.MaxInt32, true
		}
		if n < math.MinInt32 {
			return math.MinInt32, true
		}
		return int(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func toIDSet(v interface{}) map[string]struct{} {
	if !truthy(v) {
		return nil
	}
	set := make(map[string]struct{})
	if items, ok := v.([]interface{}); ok {
		for _, item := range items {
			if s := stringify(item); s != "" {
				set[s] = struct{}{}
			}
		}
		return set
	}
	if items, ok := v.([]string); ok {
		for _, s := range items {
			if s != "" {
				set[s] = struct{}{}
			}
		}
		return set
	}
	set[stringify(v)] = struct{}{}
	return set
}

func toLowerSet(v interface{}) map[string]struct{} {
	ids := toIDSet(v)
	if ids == nil {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for id := range ids {
		if s := strings.ToLower(strings.TrimSpace(id)); s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

// toValues keeps known column names in output order
func toValues(v interface{}) []string {
	requested := make(map[string]struct{})
	switch items := v.(type) {
	case []interface{}:
		for _, item := range items {
			requested[stringify(item)] = struct{}{}
		}
	case []string:
		for _, item := range items {
			requested[item] = struct{}{}
		}
	default:
		return nil
	}

	var values []string
	for _, col := range ValueOptions {
		if _, ok := requested[col]; ok {
			values = append(values, col)
		}
	}
	return values
}

func toBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	default:
		return truthy(v)
	}
}

// truthy treats nil, empty strings, empty collections, zero and false as unset
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case []interface{}:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
