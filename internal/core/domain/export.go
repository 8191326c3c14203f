package domain

import (
	"encoding/json"
	"time"
)

// ExportVersion is the current export envelope version.
const ExportVersion = "1.0"

// Export is the versioned snapshot produced by exportAll and accepted back
// by importAll.
type Export struct {
	Version    string     `json:"version"`
	ExportedAt time.Time  `json:"exportedAt"`
	Records    []Location `json:"records"`
}

// ImportMode selects how an import payload is combined with the current
// collection.
type ImportMode string

const (
	// ImportMerge appends candidates that don't collide with the current
	// collection.
	ImportMerge ImportMode = "merge"
	// ImportReplace swaps the whole collection for the candidate set.
	ImportReplace ImportMode = "replace"
)

// ImportReport summarizes an import: accepted records, candidates skipped as
// duplicates of existing data, and entries dropped as structurally invalid.
type ImportReport struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

// importEnvelope covers the current export shape plus the two historical
// ones: a bare array, and the old {"locals": [...]} envelope.
type importEnvelope struct {
	Version string            `json:"version"`
	Records []json.RawMessage `json:"records"`
	Locals  []json.RawMessage `json:"locals"`
}

// importRecord accepts both current and legacy field names. Coordinates are
// pointers so that absent values are distinguishable from zero.
type importRecord struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	CountryCode string   `json:"countryCode"`
	Country     string   `json:"country"`
	Pais        string   `json:"pais"`
	State       string   `json:"state"`
	Estado      string   `json:"estado"`
	City        string   `json:"city"`
	Cidade      string   `json:"cidade"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	CreatedAt   string   `json:"createdAt"`
}

// ParseImport decodes an import payload and structurally validates each
// candidate. Invalid entries are dropped and counted, never fatal to the
// batch; only an unparseable payload is. Candidates that carried no id or
// creation time come back with those fields zero for the caller to assign.
func ParseImport(data []byte) (candidates []Location, invalid int, rej *Rejection) {
	var raws []json.RawMessage

	var env importEnvelope
	if err := json.Unmarshal(data, &env); err == nil {
		switch {
		case env.Records != nil:
			raws = env.Records
		case env.Locals != nil:
			raws = env.Locals
		}
	}
	if raws == nil {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, 0, reject(RejectImportMalformed, "",
				"payload is not a JSON array of records nor a records envelope")
		}
	}

	for _, raw := range raws {
		var rec importRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			invalid++
			continue
		}
		loc, ok := rec.toLocation()
		if !ok {
			invalid++
			continue
		}
		candidates = append(candidates, loc)
	}
	return candidates, invalid, nil
}

func (r importRecord) toLocation() (Location, bool) {
	name := firstNonEmpty(r.Label, r.Cidade, r.City)
	if name == "" {
		return Location{}, false
	}
	if r.Lat == nil || r.Lng == nil {
		return Location{}, false
	}

	code := r.CountryCode
	if len(code) != 2 {
		country := firstNonEmpty(r.Country, r.Pais)
		if country == "" && code == "" {
			return Location{}, false
		}
		code = CountryCodeFor(country)
	}

	loc := Location{
		Label:       name,
		CountryCode: code,
		State:       firstNonEmpty(r.State, r.Estado),
		City:        firstNonEmpty(r.City, r.Cidade),
		Lat:         *r.Lat,
		Lng:         *r.Lng,
	}
	draft := LocationDraft{CountryCode: loc.CountryCode, Lat: loc.Lat, Lng: loc.Lng}
	if rej := ValidateDraft(draft.Normalize(), false); rej != nil {
		return Location{}, false
	}

	// Records that already carry identity round-trip untouched.
	if r.ID != "" && r.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			loc.ID = r.ID
			loc.CreatedAt = ts
		}
	}
	return loc, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
