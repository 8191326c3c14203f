package domain

import (
	"strings"
	"time"
)

// Duplicate policy thresholds, in kilometers. The exact threshold blocks a
// create outright; the proximity threshold is the looser band used by the
// strict validation path to flag a nearby existing place.
const (
	ExactDuplicateThresholdKm = 0.1
	ProximityWarnThresholdKm  = 3.0
)

// Location is a single visited-place entry owned by the collection.
// ID and CreatedAt are assigned once at creation and never change.
type Location struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	CountryCode string    `json:"countryCode"`
	State       string    `json:"state,omitempty"`
	City        string    `json:"city,omitempty"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LocationDraft is the caller-supplied input for creating a location.
type LocationDraft struct {
	Label       string  `json:"label"`
	CountryCode string  `json:"countryCode"`
	State       string  `json:"state"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// Normalize trims free-text fields and uppercases the country code.
func (d LocationDraft) Normalize() LocationDraft {
	d.Label = strings.TrimSpace(d.Label)
	d.CountryCode = strings.ToUpper(strings.TrimSpace(d.CountryCode))
	d.State = strings.TrimSpace(d.State)
	d.City = strings.TrimSpace(d.City)
	return d
}

// LocationPatch is a partial update; nil fields are left untouched.
type LocationPatch struct {
	Label       *string  `json:"label"`
	CountryCode *string  `json:"countryCode"`
	State       *string  `json:"state"`
	City        *string  `json:"city"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

// Apply merges the patch into a copy of the record, leaving id and
// createdAt untouched.
func (p LocationPatch) Apply(loc Location) Location {
	if p.Label != nil {
		loc.Label = strings.TrimSpace(*p.Label)
	}
	if p.CountryCode != nil {
		loc.CountryCode = strings.ToUpper(strings.TrimSpace(*p.CountryCode))
	}
	if p.State != nil {
		loc.State = strings.TrimSpace(*p.State)
	}
	if p.City != nil {
		loc.City = strings.TrimSpace(*p.City)
	}
	if p.Lat != nil {
		loc.Lat = *p.Lat
	}
	if p.Lng != nil {
		loc.Lng = *p.Lng
	}
	return loc
}

// Stats are distinct counts over the collection.
type Stats struct {
	Cities    int `json:"cities"`
	States    int `json:"states"`
	Countries int `json:"countries"`
}

// CollectionStats counts locations, distinct states, and distinct countries.
func CollectionStats(locations []Location) Stats {
	states := make(map[string]struct{})
	countries := make(map[string]struct{})
	for _, loc := range locations {
		if loc.State != "" {
			states[loc.State] = struct{}{}
		}
		countries[loc.CountryCode] = struct{}{}
	}
	return Stats{Cities: len(locations), States: len(states), Countries: len(countries)}
}
