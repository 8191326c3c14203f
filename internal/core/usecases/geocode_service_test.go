package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gfreitas/placepin/internal/core/domain"
)

type fakeGeocoder struct {
	placeCalls   int
	reverseCalls int
	places       []domain.PlaceCandidate
	reverse      *domain.PlaceCandidate
}

func (f *fakeGeocoder) SearchPlaces(_ context.Context, _ string, _ int) []domain.PlaceCandidate {
	f.placeCalls++
	return f.places
}

func (f *fakeGeocoder) SearchCountries(_ context.Context, _ string) []domain.PlaceCandidate {
	return nil
}

func (f *fakeGeocoder) SearchCombined(_ context.Context, _ string, _ int) []domain.PlaceCandidate {
	f.placeCalls++
	return f.places
}

func (f *fakeGeocoder) ReverseGeocode(_ context.Context, _, _ float64) *domain.PlaceCandidate {
	f.reverseCalls++
	return f.reverse
}

type fakeCache struct {
	entries map[string][]byte
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	if data, ok := f.entries[key]; ok {
		return data, nil
	}
	return nil, errors.New("miss")
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ int) error {
	f.entries[key] = value
	f.sets++
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	delete(f.entries, key)
	return nil
}

func lisbonCandidate() domain.PlaceCandidate {
	return domain.PlaceCandidate{
		Name: "Lisboa", Country: "Portugal", Lat: 38.7223, Lng: -9.1393,
		Type: domain.PlaceCity, Importance: 0.9,
	}
}

func TestSearchPlacesCacheHitSkipsUpstream(t *testing.T) {
	geo := &fakeGeocoder{places: []domain.PlaceCandidate{lisbonCandidate()}}
	svc := NewGeocodeService(geo, newFakeCache())
	ctx := context.Background()

	first := svc.SearchPlaces(ctx, "lisboa", 10)
	second := svc.SearchPlaces(ctx, "lisboa", 10)
	if geo.placeCalls != 1 {
		t.Errorf("upstream called %d times, want 1", geo.placeCalls)
	}
	if len(first) != 1 || len(second) != 1 || second[0].Name != "Lisboa" {
		t.Errorf("results diverged: %+v vs %+v", first, second)
	}

	// a different limit is a different cache entry
	svc.SearchPlaces(ctx, "lisboa", 5)
	if geo.placeCalls != 2 {
		t.Errorf("limit should be part of the key, calls = %d", geo.placeCalls)
	}
}

func TestSearchPlacesEmptyResultNotCached(t *testing.T) {
	geo := &fakeGeocoder{}
	cache := newFakeCache()
	svc := NewGeocodeService(geo, cache)
	ctx := context.Background()

	svc.SearchPlaces(ctx, "zzz", 10)
	svc.SearchPlaces(ctx, "zzz", 10)
	if geo.placeCalls != 2 {
		t.Errorf("empty results must retry upstream, calls = %d", geo.placeCalls)
	}
	if cache.sets != 0 {
		t.Errorf("empty result was cached (%d sets)", cache.sets)
	}
}

func TestSearchPlacesCorruptCacheEntryFallsThrough(t *testing.T) {
	geo := &fakeGeocoder{places: []domain.PlaceCandidate{lisbonCandidate()}}
	cache := newFakeCache()
	cache.entries["geocode:places:lisboa:10"] = []byte("{not json")
	svc := NewGeocodeService(geo, cache)

	got := svc.SearchPlaces(context.Background(), "lisboa", 10)
	if geo.placeCalls != 1 || len(got) != 1 {
		t.Errorf("calls=%d got=%+v", geo.placeCalls, got)
	}
}

func TestReverseGeocodeCachesOnlyResolved(t *testing.T) {
	geo := &fakeGeocoder{}
	cache := newFakeCache()
	svc := NewGeocodeService(geo, cache)
	ctx := context.Background()

	// unresolved: nothing stored, next call hits upstream again
	if got := svc.ReverseGeocode(ctx, 0, 0); got != nil {
		t.Errorf("got = %+v", got)
	}
	svc.ReverseGeocode(ctx, 0, 0)
	if geo.reverseCalls != 2 || cache.sets != 0 {
		t.Errorf("calls=%d sets=%d", geo.reverseCalls, cache.sets)
	}

	// resolved: stored and replayed
	hit := lisbonCandidate()
	geo.reverse = &hit
	svc.ReverseGeocode(ctx, 38.7223, -9.1393)
	got := svc.ReverseGeocode(ctx, 38.7223, -9.1393)
	if geo.reverseCalls != 3 {
		t.Errorf("cached reverse still hit upstream, calls = %d", geo.reverseCalls)
	}
	if got == nil || got.Name != "Lisboa" {
		t.Errorf("got = %+v", got)
	}
}

func TestGeocodeServiceWithoutCache(t *testing.T) {
	geo := &fakeGeocoder{places: []domain.PlaceCandidate{lisbonCandidate()}}
	svc := NewGeocodeService(geo, nil)
	ctx := context.Background()

	if got := svc.SearchCombined(ctx, "lisboa", 10); len(got) != 1 {
		t.Errorf("got = %+v", got)
	}
	if got := svc.ReverseGeocode(ctx, 38.7, -9.1); got != nil {
		t.Errorf("got = %+v", got)
	}
}

func TestSearchCombinedStoresRankedOrder(t *testing.T) {
	geo := &fakeGeocoder{places: []domain.PlaceCandidate{
		{Name: "Portugal", Type: domain.PlaceCountry, Importance: 1},
		lisbonCandidate(),
	}}
	cache := newFakeCache()
	svc := NewGeocodeService(geo, cache)

	svc.SearchCombined(context.Background(), "portugal", 10)
	data, ok := cache.entries["geocode:combined:portugal:10"]
	if !ok {
		t.Fatal("combined result not cached")
	}
	var stored []domain.PlaceCandidate
	if err := json.Unmarshal(data, &stored); err != nil || len(stored) != 2 || stored[0].Name != "Portugal" {
		t.Errorf("stored = %+v (err %v)", stored, err)
	}
}
