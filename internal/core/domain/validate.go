package domain

import (
	"fmt"

	"github.com/gfreitas/placepin/internal/pkg/geospatial"
)

// ValidateDraft runs the baseline checks the primary store path applies
// before any mutation: country code shape and coordinate ranges. With strict
// enabled, city and state become required as well.
func ValidateDraft(d LocationDraft, strict bool) *Rejection {
	if len(d.CountryCode) != 2 {
		return reject(RejectInvalidCountryCode, "countryCode", "country code must be exactly 2 letters")
	}
	if !geospatial.ValidLat(d.Lat) || !geospatial.ValidLng(d.Lng) {
		return reject(RejectInvalidCoordinates, "coordinates",
			"latitude must be within [-90, 90] and longitude within [-180, 180]")
	}
	if strict {
		if d.City == "" {
			return reject(RejectMissingField, "city", "city is required")
		}
		if d.State == "" {
			return reject(RejectMissingField, "state", "state is required")
		}
	}
	return nil
}

// FindExactDuplicate returns the first record in collection order whose
// coordinates fall within the exact-duplicate threshold of (lat, lng),
// skipping excludeID. Nil when no record collides.
func FindExactDuplicate(lat, lng float64, existing []Location, excludeID string) *Location {
	for i := range existing {
		if existing[i].ID == excludeID {
			continue
		}
		if geospatial.DistanceKm(lat, lng, existing[i].Lat, existing[i].Lng) <= ExactDuplicateThresholdKm {
			return &existing[i]
		}
	}
	return nil
}

// sameTriple reports whether the normalized (city, state, country) triple of
// the draft equals that of an existing record.
func sameTriple(d LocationDraft, loc Location) bool {
	return geospatial.NormalizeName(d.City) == geospatial.NormalizeName(loc.City) &&
		geospatial.NormalizeName(d.State) == geospatial.NormalizeName(loc.State) &&
		geospatial.NormalizeName(d.CountryCode) == geospatial.NormalizeName(loc.CountryCode)
}

// ValidateStrict is the richer form-flow validation: it returns every
// field-level problem at once instead of the first, and applies both
// duplicate policies — normalized triple equality regardless of distance,
// and the proximity-warn band around existing coordinates. excludeID skips
// the record under edit.
func ValidateStrict(d LocationDraft, existing []Location, excludeID string) []FieldError {
	var errs []FieldError

	if d.City == "" {
		errs = append(errs, FieldError{Field: "city", Message: "city name is required"})
	}
	if d.CountryCode == "" {
		errs = append(errs, FieldError{Field: "countryCode", Message: "country is required"})
	} else if len(d.CountryCode) != 2 {
		errs = append(errs, FieldError{Field: "countryCode", Message: "country code must be exactly 2 letters"})
	}
	if !geospatial.ValidLat(d.Lat) {
		errs = append(errs, FieldError{Field: "lat", Message: "latitude must be between -90 and 90 degrees"})
	}
	if !geospatial.ValidLng(d.Lng) {
		errs = append(errs, FieldError{Field: "lng", Message: "longitude must be between -180 and 180 degrees"})
	}

	if d.City != "" && d.CountryCode != "" {
		for i := range existing {
			if existing[i].ID == excludeID {
				continue
			}
			if sameTriple(d, existing[i]) {
				errs = append(errs, FieldError{
					Field:   "city",
					Message: fmt.Sprintf("this place is already registered as %q", existing[i].Label),
				})
				break
			}
		}
	}

	if geospatial.ValidLat(d.Lat) && geospatial.ValidLng(d.Lng) {
		for i := range existing {
			if existing[i].ID == excludeID {
				continue
			}
			if geospatial.DistanceKm(d.Lat, d.Lng, existing[i].Lat, existing[i].Lng) <= ProximityWarnThresholdKm {
				errs = append(errs, FieldError{
					Field:   "coordinates",
					Message: fmt.Sprintf("an existing place (%s) is less than 3 km away", existing[i].Label),
				})
				break
			}
		}
	}

	return errs
}
