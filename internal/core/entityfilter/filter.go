package entityfilter

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ekobres/spook/internal/core/registry"
	"github.com/sirupsen/logrus"
)

// ctxCheckEvery is how many candidates are scanned between context checks
const ctxCheckEvery = 1024

// Service answers list_filtered_entities and list_hidden_entities from the
// mirrored registries.
type Service struct {
	store  *registry.Store
	limits Limits
	logger *logrus.Logger
}

func NewService(store *registry.Store, limits Limits, logger *logrus.Logger) *Service {
	if limits.Max <= 0 {
		limits.Max = DefaultLimits.Max
	}
	if limits.Default <= 0 || limits.Default > limits.Max {
		limits.Default = clamp(DefaultLimits.Default, limits.Max)
	}
	return &Service{store: store, limits: limits, logger: logger}
}

// Limits returns the limits used to coerce requests
func (s *Service) Limits() Limits {
	return s.limits
}

// Parse coerces raw action data with the service limits
func (s *Service) Parse(data map[string]interface{}) Request {
	return ParseRequest(data, s.limits)
}

// ListFilteredEntities scans the registry in entity_id order and returns the
// matches up to the request limit.
func (s *Service) ListFilteredEntities(ctx context.Context, req Request) (*Result, error) {
	if req.Limit <= 0 {
		req.Limit = clamp(s.limits.Default, s.limits.Max)
	}

	start := time.Now()
	result := &Result{Entities: make([]Item, 0)}
	scanned := 0

	err := s.store.Read(func(snap *registry.Snapshot) error {
		registered := snap.EntityIDs()
		var orphans []string
		if req.IncludeUnregistered {
			orphans = snap.OrphanStateIDs()
		}

		i, j := 0, 0
		for i < len(registered) || j < len(orphans) {
			if scanned%ctxCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			scanned++

			var c candidate
			if j >= len(orphans) || (i < len(registered) && registered[i] < orphans[j]) {
				c = newCandidate(snap, registered[i], snap.Entities[registered[i]])
				i++
			} else {
				c = newCandidate(snap, orphans[j], nil)
				j++
			}

			item, ok := c.match(&req)
			if !ok {
				continue
			}
			result.Entities = append(result.Entities, item)
			if len(result.Entities) >= req.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(result.Entities, func(a, b int) bool {
		return result.Entities[a].EntityID < result.Entities[b].EntityID
	})
	result.Count = len(result.Entities)

	s.logger.WithFields(logrus.Fields{
		"matched":  result.Count,
		"scanned":  scanned,
		"limit":    req.Limit,
		"duration": time.Since(start),
	}).Debug("Listed filtered entities")

	return result, nil
}

// ListHiddenEntities returns every registry entry with hidden_by set
func (s *Service) ListHiddenEntities(ctx context.Context) (*HiddenResult, error) {
	result := &HiddenResult{Entities: make([]string, 0)}

	err := s.store.Read(func(snap *registry.Snapshot) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, id := range snap.EntityIDs() {
			if snap.Entities[id].HiddenBy != "" {
				result.Entities = append(result.Entities, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Count = len(result.Entities)
	return result, nil
}

// candidate derives the attributes of one entity on demand
type candidate struct {
	snap   *registry.Snapshot
	id     string
	entry  *registry.Entity
	state  *registry.State
	device *registry.Device
	areaID string
}

func newCandidate(snap *registry.Snapshot, id string, entry *registry.Entity) candidate {
	c := candidate{snap: snap, id: id, entry: entry}
	c.state, _ = snap.State(id)
	if entry == nil {
		return c
	}

	c.device, _ = snap.Device(entry.DeviceID)
	c.areaID = entry.AreaID
	if c.areaID == "" && c.device != nil {
		c.areaID = c.device.AreaID
	}
	return c
}

func (c *candidate) platform() string {
	if c.entry == nil {
		return ""
	}
	return c.entry.Platform
}

func (c *candidate) deviceID() string {
	if c.entry == nil {
		return ""
	}
	return c.entry.DeviceID
}

func (c *candidate) name() *string {
	if c.entry != nil {
		if c.entry.Name != "" {
			return &c.entry.Name
		}
		if c.entry.OriginalName != "" {
			return &c.entry.OriginalName
		}
	}
	return optional(c.state.FriendlyName())
}

func (c *candidate) deviceName() *string {
	if c.device == nil {
		return nil
	}
	if name := c.device.DisplayName(); name != "" {
		return &name
	}
	return optional(c.device.ID)
}

func (c *candidate) areaName() *string {
	area, ok := c.snap.Area(c.areaID)
	if !ok {
		return nil
	}
	if area.Name != "" {
		return &area.Name
	}
	return optional(area.AreaID)
}

func (c *candidate) integrationName() *string {
	if c.entry == nil {
		return nil
	}
	entry, ok := c.snap.ConfigEntry(c.entry.ConfigEntryID)
	if !ok {
		return nil
	}
	return optional(entry.Title)
}

func (c *candidate) labelIDs() []string {
	if c.entry == nil || len(c.entry.Labels) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(c.entry.Labels))
	ids := make([]string, 0, len(c.entry.Labels))
	for _, id := range c.entry.Labels {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *candidate) labels() []LabelRef {
	ids := c.labelIDs()
	refs := make([]LabelRef, 0, len(ids))
	for _, id := range ids {
		ref := LabelRef{LabelID: id}
		if label, ok := c.snap.Label(id); ok {
			ref.LabelName = optional(label.Name)
		}
		refs = append(refs, ref)
	}
	return refs
}

func (c *candidate) icon() *string {
	if c.entry != nil {
		return optional(c.entry.Icon)
	}
	if c.state != nil {
		if icon, ok := c.state.Attributes["icon"].(string); ok {
			return optional(icon)
		}
	}
	return nil
}

func (c *candidate) timestamps() (created, modified *string) {
	if c.entry == nil {
		return nil, nil
	}
	return isoTime(c.entry.CreatedAt), isoTime(c.entry.ModifiedAt)
}

// match applies the filters cheapest first and projects the requested
// columns on success.
func (c *candidate) match(req *Request) (Item, bool) {
	if req.Areas != nil && !contains(req.Areas, c.areaID) {
		return Item{}, false
	}
	if req.Devices != nil && !contains(req.Devices, c.deviceID()) {
		return Item{}, false
	}
	domain := registry.Domain(c.id)
	if req.Domains != nil && !contains(req.Domains, strings.ToLower(domain)) {
		return Item{}, false
	}
	platform := strings.ToLower(c.platform())
	if req.Integrations != nil && !contains(req.Integrations, platform) {
		return Item{}, false
	}

	flags := DeriveStatus(c.entry, c.state)
	statuses := flags.Slugs()
	if req.Status != nil && !intersects(req.Status, statuses) {
		return Item{}, false
	}

	labelIDs := c.labelIDs()
	if req.Labels != nil && !intersects(req.Labels, labelIDs) {
		return Item{}, false
	}

	if req.Search != "" && !c.matchesSearch(req.Search, domain, platform, statuses) {
		return Item{}, false
	}

	return c.project(req.Values, flags), true
}

func (c *candidate) matchesSearch(needle, domain, platform string, statuses []string) bool {
	haystacks := []string{c.id, domain, platform}
	for _, p := range []*string{c.name(), c.integrationName(), c.deviceName(), c.areaName()} {
		if p != nil {
			haystacks = append(haystacks, *p)
		}
	}
	for _, ref := range c.labels() {
		if ref.LabelName != nil {
			haystacks = append(haystacks, *ref.LabelName)
		}
	}
	for _, slug := range statuses {
		haystacks = append(haystacks, slug, StatusLabel(slug))
	}

	for _, h := range haystacks {
		if h != "" && strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

func (c *candidate) project(values []string, flags StatusFlags) Item {
	item := Item{EntityID: c.id}
	if len(values) == 0 {
		return item
	}

	item.columns = make([]column, 0, len(values)+3)
	for _, col := range values {
		switch col {
		case ColumnName:
			item.set("name", c.name())
		case ColumnDevice:
			item.set("device_id", optional(c.deviceID()))
			item.set("device_name", c.deviceName())
		case ColumnArea:
			item.set("area_id", optional(c.areaID))
			item.set("area_name", c.areaName())
		case ColumnIntegration:
			item.set("integration_slug", optional(c.platform()))
			item.set("integration_name", c.integrationName())
		case ColumnStatus:
			item.set("status", flags)
		case ColumnIcon:
			item.set("icon", c.icon())
		case ColumnCreated:
			created, _ := c.timestamps()
			item.set("created", created)
		case ColumnModified:
			_, modified := c.timestamps()
			item.set("modified", modified)
		case ColumnLabels:
			item.set("labels", c.labels())
		}
	}
	return item
}

func contains(set map[string]struct{}, value string) bool {
	_, ok := set[value]
	return ok
}

func intersects(set map[string]struct{}, values []string) bool {
	for _, v := range values {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
