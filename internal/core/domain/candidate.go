package domain

// PlaceType classifies a geocoding suggestion.
type PlaceType string

const (
	PlaceCity    PlaceType = "city"
	PlaceState   PlaceType = "state"
	PlaceCountry PlaceType = "country"
	PlaceOther   PlaceType = "place"
)

// PlaceCandidate is a transient place suggestion produced by the geocoding
// client and consumed to pre-fill a location draft. Candidates are never
// persisted.
type PlaceCandidate struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Country     string    `json:"country"`
	State       string    `json:"state,omitempty"`
	City        string    `json:"city,omitempty"`
	Lat         float64   `json:"latitude"`
	Lng         float64   `json:"longitude"`
	Type        PlaceType `json:"type"`
	Importance  float64   `json:"importance"`
}

// Country is one entry of the static country reference dataset.
type Country struct {
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	Capital   string  `json:"capital,omitempty"`
	Region    string  `json:"region"`
	Subregion string  `json:"subregion"`
	Lat       float64 `json:"latitude"`
	Lng       float64 `json:"longitude"`
}
