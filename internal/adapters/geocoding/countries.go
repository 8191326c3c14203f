package geocoding

import (
	"context"
	"log/slog"
	"sort"

	"github.com/gfreitas/placepin/internal/core/domain"
	"github.com/gfreitas/placepin/internal/pkg/metrics"
)

// restCountry is the restcountries v3.1 row, reduced to the fields the
// fields= query asks for.
type restCountry struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	Cca2      string    `json:"cca2"`
	Capital   []string  `json:"capital"`
	Region    string    `json:"region"`
	Subregion string    `json:"subregion"`
	LatLng    []float64 `json:"latlng"`
}

// loadCountries fetches the country reference list once and caches it for
// the process lifetime. The list endpoint is not paced; it is a one-shot
// static dataset, not a per-keystroke search. A failed fetch is not cached,
// so the next call retries.
func (c *Client) loadCountries(ctx context.Context) []domain.Country {
	c.countriesMu.Lock()
	defer c.countriesMu.Unlock()

	if c.countries != nil {
		return c.countries
	}

	var raw []restCountry
	metrics.GeocodeRequests.WithLabelValues("countries").Inc()
	url := c.cfg.CountriesURL + "/all?fields=name,cca2,capital,region,subregion,latlng"
	if err := c.getJSON(ctx, url, &raw); err != nil {
		metrics.GeocodeErrors.WithLabelValues("countries").Inc()
		slog.Warn("country list fetch failed", "error", err)
		return nil
	}

	list := make([]domain.Country, 0, len(raw))
	for _, rc := range raw {
		country := domain.Country{
			Name:      rc.Name.Common,
			Code:      rc.Cca2,
			Region:    rc.Region,
			Subregion: rc.Subregion,
		}
		if len(rc.Capital) > 0 {
			country.Capital = rc.Capital[0]
		}
		if len(rc.LatLng) == 2 {
			country.Lat = rc.LatLng[0]
			country.Lng = rc.LatLng[1]
		}
		list = append(list, country)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	c.countries = list
	return list
}
