package geocoding

import (
	"strconv"
	"strings"

	"github.com/gfreitas/placepin/internal/core/domain"
)

// nominatimAddress is the addressdetails block. Nominatim spreads the
// city-level value across several keys depending on the settlement size.
type nominatimAddress struct {
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	State        string `json:"state"`
	Province     string `json:"province"`
	Region       string `json:"region"`
	Country      string `json:"country"`
}

func (a nominatimAddress) city() string {
	for _, v := range []string{a.City, a.Town, a.Village, a.Municipality} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (a nominatimAddress) state() string {
	for _, v := range []string{a.State, a.Province, a.Region} {
		if v != "" {
			return v
		}
	}
	return ""
}

// nominatimHit is one /search result row (or the single /reverse object).
// Coordinates arrive as JSON strings.
type nominatimHit struct {
	PlaceID     int64            `json:"place_id"`
	Name        string           `json:"name"`
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Class       string           `json:"class"`
	Type        string           `json:"type"`
	Importance  float64          `json:"importance"`
	Address     nominatimAddress `json:"address"`
	Error       string           `json:"error"`
}

func (h nominatimHit) toCandidate() domain.PlaceCandidate {
	lat, _ := strconv.ParseFloat(h.Lat, 64)
	lng, _ := strconv.ParseFloat(h.Lon, 64)

	name := h.Name
	if name == "" {
		name = strings.TrimSpace(strings.SplitN(h.DisplayName, ",", 2)[0])
	}

	return domain.PlaceCandidate{
		Name:        name,
		DisplayName: h.DisplayName,
		Country:     h.Address.Country,
		State:       h.Address.state(),
		City:        h.Address.city(),
		Lat:         lat,
		Lng:         lng,
		Type:        classify(h.Class, h.Type, h.Address),
		Importance:  h.Importance,
	}
}

// classify derives the candidate granularity. The address block wins over
// the OSM class/type taxonomy: a hit carrying a city-level field is a city
// no matter what object it nominally is.
func classify(osmClass, osmType string, addr nominatimAddress) domain.PlaceType {
	switch {
	case addr.city() != "":
		return domain.PlaceCity
	case addr.state() != "":
		return domain.PlaceState
	case addr.Country != "":
		return domain.PlaceCountry
	}

	if osmClass == "place" {
		switch osmType {
		case "city", "town", "village", "municipality", "hamlet":
			return domain.PlaceCity
		case "state", "province", "region":
			return domain.PlaceState
		case "country":
			return domain.PlaceCountry
		}
	}
	if osmClass == "boundary" && osmType == "administrative" {
		return domain.PlaceState
	}
	return domain.PlaceOther
}
