package entityfilter

import (
	"sort"
	"strings"
	"sync"

	"github.com/ekobres/spook/internal/core/registry"
	"github.com/sirupsen/logrus"
)

// Option is one selector choice
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Option kinds served by OptionProvider.Options
const (
	OptionDomains      = "domains"
	OptionIntegrations = "integrations"
	OptionLabels       = "labels"
	OptionAreas        = "areas"
	OptionDevices      = "devices"
)

// OptionKinds lists the option kinds in field order
var OptionKinds = []string{OptionAreas, OptionDevices, OptionDomains, OptionIntegrations, OptionLabels}

// OptionProvider memoises selector choices derived from the registry
// snapshot. The memo is dropped on every registry change.
type OptionProvider struct {
	store  *registry.Store
	logger *logrus.Logger

	attach sync.Once

	mu         sync.Mutex
	cache      map[string][]Option
	generation uint64

	onInvalidate []func(kind registry.ChangeKind)
}

func NewOptionProvider(store *registry.Store, logger *logrus.Logger) *OptionProvider {
	return &OptionProvider{
		store:  store,
		logger: logger,
		cache:  make(map[string][]Option),
	}
}

// OnInvalidate registers a callback run after the memo is dropped
func (p *OptionProvider) OnInvalidate(fn func(kind registry.ChangeKind)) {
	p.mu.Lock()
	p.onInvalidate = append(p.onInvalidate, fn)
	p.mu.Unlock()
	p.attachListeners()
}

// attachListeners subscribes to registry changes exactly once
func (p *OptionProvider) attachListeners() {
	p.attach.Do(func() {
		p.store.OnChange(p.Invalidate)
	})
}

// Invalidate drops every memoised option list
func (p *OptionProvider) Invalidate(kind registry.ChangeKind) {
	p.mu.Lock()
	p.cache = make(map[string][]Option)
	p.generation++
	callbacks := make([]func(registry.ChangeKind), len(p.onInvalidate))
	copy(callbacks, p.onInvalidate)
	p.mu.Unlock()

	p.logger.WithField("change", kind).Debug("Selector options invalidated")

	for _, fn := range callbacks {
		fn(kind)
	}
}

// Options returns the choices of one kind
func (p *OptionProvider) Options(kind string) ([]Option, error) {
	switch kind {
	case OptionDomains:
		return p.Domains()
	case OptionIntegrations:
		return p.Integrations()
	case OptionLabels:
		return p.Labels()
	case OptionAreas:
		return p.Areas()
	case OptionDevices:
		return p.Devices()
	default:
		return nil, ErrUnknownOptionKind
	}
}

func (p *OptionProvider) Domains() ([]Option, error) {
	return p.cached(OptionDomains, func(snap *registry.Snapshot) []Option {
		seen := make(map[string]struct{})
		for _, id := range snap.EntityIDs() {
			seen[registry.Domain(id)] = struct{}{}
		}
		return slugOptions(seen)
	})
}

func (p *OptionProvider) Integrations() ([]Option, error) {
	return p.cached(OptionIntegrations, func(snap *registry.Snapshot) []Option {
		seen := make(map[string]struct{})
		for _, e := range snap.Entities {
			if e.Platform != "" {
				seen[e.Platform] = struct{}{}
			}
		}
		return slugOptions(seen)
	})
}

// Labels sorts case-insensitively by display label
func (p *OptionProvider) Labels() ([]Option, error) {
	return p.cached(OptionLabels, func(snap *registry.Snapshot) []Option {
		opts := make([]Option, 0, len(snap.Labels))
		for _, l := range snap.Labels {
			label := l.Name
			if label == "" {
				label = l.LabelID
			}
			opts = append(opts, Option{Value: l.LabelID, Label: label})
		}
		sortByLabel(opts)
		return opts
	})
}

func (p *OptionProvider) Areas() ([]Option, error) {
	return p.cached(OptionAreas, func(snap *registry.Snapshot) []Option {
		opts := make([]Option, 0, len(snap.Areas))
		for _, a := range snap.Areas {
			label := a.Name
			if label == "" {
				label = a.AreaID
			}
			opts = append(opts, Option{Value: a.AreaID, Label: label})
		}
		sortByLabel(opts)
		return opts
	})
}

// Devices skips devices without any name
func (p *OptionProvider) Devices() ([]Option, error) {
	return p.cached(OptionDevices, func(snap *registry.Snapshot) []Option {
		opts := make([]Option, 0, len(snap.Devices))
		for _, d := range snap.Devices {
			if name := d.DisplayName(); name != "" {
				opts = append(opts, Option{Value: d.ID, Label: name})
			}
		}
		sortByLabel(opts)
		return opts
	})
}

func (p *OptionProvider) cached(kind string, build func(snap *registry.Snapshot) []Option) ([]Option, error) {
	p.attachListeners()

	p.mu.Lock()
	if opts, ok := p.cache[kind]; ok {
		p.mu.Unlock()
		return opts, nil
	}
	generation := p.generation
	p.mu.Unlock()

	var opts []Option
	err := p.store.Read(func(snap *registry.Snapshot) error {
		opts = build(snap)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// An invalidation during the build makes the result stale.
	p.mu.Lock()
	if p.generation == generation {
		p.cache[kind] = opts
	}
	p.mu.Unlock()

	return opts, nil
}

func slugOptions(seen map[string]struct{}) []Option {
	slugs := make([]string, 0, len(seen))
	for s := range seen {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)

	opts := make([]Option, len(slugs))
	for i, s := range slugs {
		opts[i] = Option{Value: s, Label: TitleCase(s)}
	}
	return opts
}

func sortByLabel(opts []Option) {
	sort.Slice(opts, func(i, j int) bool {
		li, lj := strings.ToLower(opts[i].Label), strings.ToLower(opts[j].Label)
		if li != lj {
			return li < lj
		}
		return opts[i].Value < opts[j].Value
	})
}
