package domain

import "time"

// DateRangeMode selects between no date restriction and an explicit range.
type DateRangeMode string

const (
	DateRangeAll    DateRangeMode = "all"
	DateRangeCustom DateRangeMode = "custom"
)

// DateRange restricts a criteria field to an inclusive date window.
// From and To are only meaningful when Mode is DateRangeCustom.
type DateRange struct {
	Mode DateRangeMode `json:"mode"`
	From string        `json:"from,omitempty"`
	To   string        `json:"to,omitempty"`
}

const dateLayout = "2006-01-02"

// Valid reports whether the range is usable as a query parameter.
func (r DateRange) Valid() bool {
	if r.Mode == "" || r.Mode == DateRangeAll {
		return true
	}
	for _, s := range []string{r.From, r.To} {
		if s == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, s); err != nil {
			return false
		}
	}
	return true
}

// ExtensionFlags enables the optional data extensions that can be bundled
// into a generated archive alongside the occurrence core.
type ExtensionFlags struct {
	Multimedia        bool `json:"multimedia"`
	Identifications   bool `json:"identifications"`
	Projects          bool `json:"projects"`
	ObservationFields bool `json:"observation_fields"`
}

// List returns the wire names of the enabled extensions.
func (f ExtensionFlags) List() []string {
	var names []string
	if f.Multimedia {
		names = append(names, "simple_multimedia")
	}
	if f.Identifications {
		names = append(names, "identification_history")
	}
	if f.Projects {
		names = append(names, "project_observations")
	}
	if f.ObservationFields {
		names = append(names, "observation_fields")
	}
	return names
}

// FilterCriteria is a snapshot of the user-selected record filters. It is a
// plain value: every edit produces a new snapshot and two snapshots with the
// same contents are interchangeable.
type FilterCriteria struct {
	TaxonID       *int           `json:"taxon_id,omitempty"`
	PlaceID       *int           `json:"place_id,omitempty"`
	UserID        *int           `json:"user_id,omitempty"`
	Observed      DateRange      `json:"observed"`
	Created       DateRange      `json:"created"`
	Extensions    ExtensionFlags `json:"extensions"`
	IncludePhotos bool           `json:"include_photos"`
}

// Equal compares two snapshots structurally; optional ids compare by value.
func (c FilterCriteria) Equal(other FilterCriteria) bool {
	return intPtrEqual(c.TaxonID, other.TaxonID) &&
		intPtrEqual(c.PlaceID, other.PlaceID) &&
		intPtrEqual(c.UserID, other.UserID) &&
		c.Observed == other.Observed &&
		c.Created == other.Created &&
		c.Extensions == other.Extensions &&
		c.IncludePhotos == other.IncludePhotos
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
