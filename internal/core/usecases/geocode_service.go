package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gfreitas/placepin/internal/core/domain"
	"github.com/gfreitas/placepin/internal/core/ports"
	"github.com/gfreitas/placepin/internal/pkg/metrics"
)

// GeocodeService fronts the upstream geocoding client with a read-through
// cache. Upstream failures already arrive downgraded to empty/absent
// results, so only non-empty results are cached — an outage must not be
// remembered as "no matches".
type GeocodeService struct {
	geo   ports.Geocoder
	cache ports.CacheService
}

// NewGeocodeService creates a new GeocodeService. cache may be nil.
func NewGeocodeService(geo ports.Geocoder, cache ports.CacheService) *GeocodeService {
	return &GeocodeService{geo: geo, cache: cache}
}

// SearchPlaces resolves a free-text query to ranked place candidates.
func (s *GeocodeService) SearchPlaces(ctx context.Context, query string, limit int) []domain.PlaceCandidate {
	key := fmt.Sprintf("geocode:places:%s:%d", query, limit)
	if hit := s.cached(ctx, key); hit != nil {
		return hit
	}

	results := s.geo.SearchPlaces(ctx, query, limit)
	s.remember(ctx, key, results)
	return results
}

// SearchCountries matches against the static country reference list.
func (s *GeocodeService) SearchCountries(ctx context.Context, query string) []domain.PlaceCandidate {
	return s.geo.SearchCountries(ctx, query)
}

// SearchCombined merges country and place results for a query.
func (s *GeocodeService) SearchCombined(ctx context.Context, query string, limit int) []domain.PlaceCandidate {
	key := fmt.Sprintf("geocode:combined:%s:%d", query, limit)
	if hit := s.cached(ctx, key); hit != nil {
		return hit
	}

	results := s.geo.SearchCombined(ctx, query, limit)
	s.remember(ctx, key, results)
	return results
}

// ReverseGeocode resolves coordinates to a best-guess place, or nil.
func (s *GeocodeService) ReverseGeocode(ctx context.Context, lat, lng float64) *domain.PlaceCandidate {
	key := fmt.Sprintf("geocode:reverse:%.4f:%.4f", lat, lng)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var c domain.PlaceCandidate
			if err := json.Unmarshal(data, &c); err == nil {
				return &c
			}
		}
	}

	result := s.geo.ReverseGeocode(ctx, lat, lng)
	if result != nil && s.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			_ = s.cache.Set(ctx, key, data, 3600)
		}
	}
	return result
}

func (s *GeocodeService) cached(ctx context.Context, key string) []domain.PlaceCandidate {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("geocode").Inc()
		return nil
	}
	var results []domain.PlaceCandidate
	if err := json.Unmarshal(data, &results); err != nil || len(results) == 0 {
		return nil
	}
	metrics.CacheHits.WithLabelValues("geocode").Inc()
	return results
}

func (s *GeocodeService) remember(ctx context.Context, key string, results []domain.PlaceCandidate) {
	if s.cache == nil || len(results) == 0 {
		return
	}
	if data, err := json.Marshal(results); err == nil {
		// 5 minutes: place data is static enough, and this spares the
		// upstream its per-request pacing.
		_ = s.cache.Set(ctx, key, data, 300)
	}
}
