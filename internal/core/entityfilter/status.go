package entityfilter

import (
	"strings"
	"unicode"

	"github.com/ekobres/spook/internal/core/registry"
)

// Status slugs accepted by the status filter
const (
	StatusAvailable    = "available"
	StatusUnavailable  = "unavailable"
	StatusEnabled      = "enabled"
	StatusDisabled     = "disabled"
	StatusVisible      = "visible"
	StatusHidden       = "hidden"
	StatusUnmanageable = "unmanageable"
	StatusNotProvided  = "not_provided"
)

// StatusOptions lists every status slug in display order
var StatusOptions = []string{
	StatusAvailable,
	StatusUnavailable,
	StatusEnabled,
	StatusDisabled,
	StatusVisible,
	StatusHidden,
	StatusUnmanageable,
	StatusNotProvided,
}

var statusLabels = map[string]string{
	StatusAvailable:    "Available",
	StatusUnavailable:  "Unavailable",
	StatusEnabled:      "Enabled",
	StatusDisabled:     "Disabled",
	StatusVisible:      "Visible",
	StatusHidden:       "Hidden",
	StatusUnmanageable: "Unmanageable",
	StatusNotProvided:  "Not provided",
}

// StatusLabel returns the display label of a status slug
func StatusLabel(slug string) string {
	if label, ok := statusLabels[slug]; ok {
		return label
	}
	return TitleCase(slug)
}

const (
	stateUnavailable = "unavailable"
	stateUnknown     = "unknown"
)

// StatusFlags is the status column of a projected entity
type StatusFlags struct {
	DisabledBy   *string `json:"disabled_by" yaml:"disabled_by"`
	HiddenBy     *string `json:"hidden_by" yaml:"hidden_by"`
	Available    bool    `json:"available" yaml:"available"`
	Unknown      bool    `json:"unknown" yaml:"unknown"`
	Unmanageable bool    `json:"unmanageable" yaml:"unmanageable"`
	NotProvided  bool    `json:"not_provided" yaml:"not_provided"`
}

// Slugs returns the status set the flags belong to
func (f StatusFlags) Slugs() []string {
	slugs := make([]string, 0, 5)
	if f.Available {
		slugs = append(slugs, StatusAvailable)
	} else {
		slugs = append(slugs, StatusUnavailable)
	}
	if f.DisabledBy == nil {
		slugs = append(slugs, StatusEnabled)
	} else {
		slugs = append(slugs, StatusDisabled)
	}
	if f.HiddenBy == nil {
		slugs = append(slugs, StatusVisible)
	} else {
		slugs = append(slugs, StatusHidden)
	}
	if f.Unmanageable {
		slugs = append(slugs, StatusUnmanageable)
	}
	if f.NotProvided {
		slugs = append(slugs, StatusNotProvided)
	}
	return slugs
}

// DeriveStatus computes the status flags of a registry entry. entry may be
// nil for a live state with no registry record; state may be nil for an
// entry the integration has not provided.
func DeriveStatus(entry *registry.Entity, state *registry.State) StatusFlags {
	var flags StatusFlags

	if state != nil {
		flags.Available = state.State != stateUnavailable && state.State != stateUnknown
		flags.Unknown = state.State == stateUnknown
	}

	if entry == nil {
		flags.Unmanageable = true
		return flags
	}

	flags.DisabledBy = optional(entry.DisabledBy)
	flags.HiddenBy = optional(entry.HiddenBy)
	flags.Unmanageable = entry.UniqueID == ""
	flags.NotProvided = state == nil && entry.Platform != "" && entry.ConfigEntryID != ""
	return flags
}

// TitleCase turns a slug into a display label: underscores become spaces and
// every letter that follows a non-letter is upper-cased.
func TitleCase(slug string) string {
	var b strings.Builder
	b.Grow(len(slug))

	prevLetter := false
	for _, r := range strings.ReplaceAll(slug, "_", " ") {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
