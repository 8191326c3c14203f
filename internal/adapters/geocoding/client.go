package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gfreitas/placepin/internal/core/domain"
	"github.com/gfreitas/placepin/internal/core/ports"
	"github.com/gfreitas/placepin/internal/pkg/metrics"
)

// Defaults for the upstream services. Nominatim's usage policy requires an
// identifying User-Agent and at most one request per second.
const (
	DefaultSearchURL    = "https://nominatim.openstreetmap.org"
	DefaultCountriesURL = "https://restcountries.com/v3.1"
	DefaultUserAgent    = "placepin/1.0 (+https://github.com/gfreitas/placepin)"
	DefaultMinInterval  = 1000 * time.Millisecond
	DefaultTimeout      = 10 * time.Second

	minQueryLength    = 2
	defaultLimit      = 10
	maxCountryResults = 3
)

// Config tunes the geocoding client. Zero values take the defaults above.
type Config struct {
	SearchURL    string
	CountriesURL string
	UserAgent    string
	MinInterval  time.Duration
	Timeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.SearchURL == "" {
		c.SearchURL = DefaultSearchURL
	}
	if c.CountriesURL == "" {
		c.CountriesURL = DefaultCountriesURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MinInterval <= 0 {
		c.MinInterval = DefaultMinInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Client resolves place queries against Nominatim and the restcountries
// reference dataset. All outbound place-search requests share one
// last-request timestamp: each caller waits out the remaining pacing
// interval and stamps the clock before its request is issued, so
// overlapping calls serialize their start times. Upstream failures are
// downgraded at this boundary — callers get an empty or absent result,
// never an error.
type Client struct {
	cfg  Config
	http *http.Client

	mu          sync.Mutex
	lastRequest time.Time

	countriesMu sync.Mutex
	countries   []domain.Country
}

var _ ports.Geocoder = (*Client)(nil)

// New creates a geocoding client.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// SearchPlaces issues one paced search request and maps each hit to a
// ranked candidate. Queries shorter than 2 characters return an empty list
// without touching the network.
func (c *Client) SearchPlaces(ctx context.Context, query string, limit int) []domain.PlaceCandidate {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLength {
		return nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	if err := c.waitTurn(ctx); err != nil {
		return nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("accept-language", "pt-BR,pt,en")
	params.Set("dedupe", "1")
	params.Set("extratags", "1")
	params.Set("namedetails", "1")

	var hits []nominatimHit
	metrics.GeocodeRequests.WithLabelValues("search").Inc()
	if err := c.getJSON(ctx, c.cfg.SearchURL+"/search?"+params.Encode(), &hits); err != nil {
		metrics.GeocodeErrors.WithLabelValues("search").Inc()
		slog.Warn("place search failed", "query", query, "error", err)
		return nil
	}

	candidates := make([]domain.PlaceCandidate, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, h.toCandidate())
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Importance > candidates[j].Importance
	})
	return candidates
}

// SearchCountries matches the query case-insensitively against the cached
// country list, by name or capital.
func (c *Client) SearchCountries(ctx context.Context, query string) []domain.PlaceCandidate {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLength {
		return nil
	}

	needle := strings.ToLower(query)
	var results []domain.PlaceCandidate
	for _, country := range c.loadCountries(ctx) {
		if !strings.Contains(strings.ToLower(country.Name), needle) &&
			!strings.Contains(strings.ToLower(country.Capital), needle) {
			continue
		}
		results = append(results, domain.PlaceCandidate{
			Name:        country.Name,
			DisplayName: country.Name + " (country)",
			Country:     country.Name,
			Lat:         country.Lat,
			Lng:         country.Lng,
			Type:        domain.PlaceCountry,
			Importance:  1,
		})
	}
	return results
}

// SearchCombined runs the country and place searches concurrently, keeps at
// most 3 country hits plus enough place hits to reach limit, drops
// candidates sharing a normalized name and country, and ranks exact name
// matches ahead of plain importance order.
func (c *Client) SearchCombined(ctx context.Context, query string, limit int) []domain.PlaceCandidate {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLength {
		return nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	placeLimit := limit - maxCountryResults
	if placeLimit < 5 {
		placeLimit = 5
	}

	var countries, places []domain.PlaceCandidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		countries = c.SearchCountries(gctx, query)
		return nil
	})
	g.Go(func() error {
		places = c.SearchPlaces(gctx, query, placeLimit)
		return nil
	})
	_ = g.Wait()

	if len(countries) > maxCountryResults {
		countries = countries[:maxCountryResults]
	}

	seen := make(map[string]struct{}, len(countries)+len(places))
	combined := make([]domain.PlaceCandidate, 0, len(countries)+len(places))
	for _, cand := range append(countries, places...) {
		key := strings.ToLower(cand.Name) + "|" + strings.ToLower(cand.Country)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		combined = append(combined, cand)
	}

	lowered := strings.ToLower(query)
	sort.SliceStable(combined, func(i, j int) bool {
		iExact := strings.ToLower(combined[i].Name) == lowered
		jExact := strings.ToLower(combined[j].Name) == lowered
		if iExact != jExact {
			return iExact
		}
		return combined[i].Importance > combined[j].Importance
	})

	if len(combined) > limit {
		combined = combined[:limit]
	}
	return combined
}

// ReverseGeocode resolves coordinates to a best-guess place. Any upstream
// error or explicit not-found answer yields nil; the caller treats that as
// a silent fallback.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) *domain.PlaceCandidate {
	if err := c.waitTurn(ctx); err != nil {
		return nil
	}

	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lng))
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("accept-language", "pt-BR,pt,en")

	var hit nominatimHit
	metrics.GeocodeRequests.WithLabelValues("reverse").Inc()
	if err := c.getJSON(ctx, c.cfg.SearchURL+"/reverse?"+params.Encode(), &hit); err != nil {
		metrics.GeocodeErrors.WithLabelValues("reverse").Inc()
		slog.Warn("reverse geocode failed", "lat", lat, "lng", lng, "error", err)
		return nil
	}
	if hit.Error != "" || hit.DisplayName == "" {
		return nil
	}

	cand := hit.toCandidate()
	cand.Lat = lat
	cand.Lng = lng
	return &cand
}

// waitTurn enforces the minimum spacing between outbound place-search
// request starts. The last-request stamp is taken immediately before the
// request is issued, not after it completes.
func (c *Client) waitTurn(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if wait := c.cfg.MinInterval - time.Since(c.lastRequest); wait > 0 {
		metrics.GeocodeRateLimitWait.Observe(wait.Seconds())
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
