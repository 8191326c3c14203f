package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/gfreitas/placepin/internal/adapters/http"
	"github.com/gfreitas/placepin/internal/core/domain"
	"github.com/gfreitas/placepin/internal/core/ports"
	"github.com/gfreitas/placepin/internal/core/usecases"
)

// ---- Mock collaborators ----

type mockStore struct {
	loadFn  func(ctx context.Context) ([]domain.Location, error)
	applyFn func(ctx context.Context, ch domain.Change, snapshot []domain.Location) error
}

func (m *mockStore) Load(ctx context.Context) ([]domain.Location, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	return nil, nil
}

func (m *mockStore) Apply(ctx context.Context, ch domain.Change, snapshot []domain.Location) error {
	if m.applyFn != nil {
		return m.applyFn(ctx, ch, snapshot)
	}
	return nil
}

type mockGeocoder struct {
	combinedFn func(ctx context.Context, query string, limit int) []domain.PlaceCandidate
	reverseFn  func(ctx context.Context, lat, lng float64) *domain.PlaceCandidate
}

func (m *mockGeocoder) SearchPlaces(ctx context.Context, query string, limit int) []domain.PlaceCandidate {
	return nil
}
func (m *mockGeocoder) SearchCountries(ctx context.Context, query string) []domain.PlaceCandidate {
	return nil
}
func (m *mockGeocoder) SearchCombined(ctx context.Context, query string, limit int) []domain.PlaceCandidate {
	if m.combinedFn != nil {
		return m.combinedFn(ctx, query, limit)
	}
	return nil
}
func (m *mockGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) *domain.PlaceCandidate {
	if m.reverseFn != nil {
		return m.reverseFn(ctx, lat, lng)
	}
	return nil
}

type memBlob struct {
	data map[string][]byte
}

func (m *memBlob) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, ports.ErrBlobNotFound
	}
	return v, nil
}
func (m *memBlob) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}
func (m *memBlob) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

type testEnv struct {
	app      *fiber.App
	store    *mockStore
	geocoder *mockGeocoder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := &mockStore{}
	geocoder := &mockGeocoder{}

	deps := &handler.Dependencies{
		Collection:  usecases.NewCollectionService(store, nil, false),
		Geocode:     usecases.NewGeocodeService(geocoder, nil),
		Preferences: usecases.NewPreferencesService(&memBlob{data: map[string][]byte{}}),
	}
	if err := deps.Collection.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	app := fiber.New()
	handler.SetupRoutes(app, deps)
	return &testEnv{app: app, store: store, geocoder: geocoder}
}

func (e *testEnv) do(t *testing.T, method, target string, body string) (int, []byte, map[string]string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	headers := map[string]string{
		"X-Persist-Warning":   resp.Header.Get("X-Persist-Warning"),
		"Content-Disposition": resp.Header.Get("Content-Disposition"),
	}
	return resp.StatusCode, data, headers
}

func (e *testEnv) createLocation(t *testing.T, body string) domain.Location {
	t.Helper()
	status, data, _ := e.do(t, "POST", "/v1/locations", body)
	if status != 201 {
		t.Fatalf("create location: status %d, body %s", status, data)
	}
	var loc domain.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		t.Fatalf("decode created location: %v", err)
	}
	return loc
}

const lisbonJSON = `{"label":"Lisboa","countryCode":"pt","state":"Lisboa","city":"Lisboa","lat":38.7223,"lng":-9.1393}`

// ---- Location CRUD ----

func TestCreateLocation(t *testing.T) {
	env := newTestEnv(t)

	loc := env.createLocation(t, lisbonJSON)
	if loc.ID == "" || loc.CreatedAt.IsZero() {
		t.Errorf("identity not assigned: %+v", loc)
	}
	if loc.CountryCode != "PT" {
		t.Errorf("country code not normalized: %s", loc.CountryCode)
	}
}

func TestCreateLocationInvalidCoordinates(t *testing.T) {
	env := newTestEnv(t)

	status, data, _ := env.do(t, "POST", "/v1/locations",
		`{"label":"Nowhere","countryCode":"BR","lat":123,"lng":10}`)
	if status != 400 {
		t.Fatalf("expected 400, got %d: %s", status, data)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal(data, &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if apiErr.Code != "invalid_coordinates" {
		t.Errorf("code = %s", apiErr.Code)
	}

	// a rejected create must not mutate the collection
	status, data, _ = env.do(t, "GET", "/v1/locations", "")
	if status != 200 || !strings.Contains(string(data), `"total":0`) {
		t.Errorf("collection mutated by rejected create: %s", data)
	}
}

func TestCreateLocationDuplicateConflict(t *testing.T) {
	env := newTestEnv(t)
	existing := env.createLocation(t, lisbonJSON)

	// 50 meters away, inside the 100m exact-duplicate threshold
	status, data, _ := env.do(t, "POST", "/v1/locations",
		`{"label":"Lisboa de novo","countryCode":"PT","lat":38.72275,"lng":-9.1393}`)
	if status != 409 {
		t.Fatalf("expected 409, got %d: %s", status, data)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal(data, &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if apiErr.Code != "duplicate_location" {
		t.Errorf("code = %s", apiErr.Code)
	}
	if apiErr.Conflict == nil || apiErr.Conflict.ID != existing.ID {
		t.Errorf("conflict record missing or wrong: %+v", apiErr.Conflict)
	}
}

func TestGetLocation(t *testing.T) {
	env := newTestEnv(t)
	loc := env.createLocation(t, lisbonJSON)

	status, data, _ := env.do(t, "GET", "/v1/locations/"+loc.ID, "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var got domain.Location
	if err := json.Unmarshal(data, &got); err != nil || got.ID != loc.ID {
		t.Errorf("wrong record: %s", data)
	}

	status, _, _ = env.do(t, "GET", "/v1/locations/does-not-exist", "")
	if status != 404 {
		t.Errorf("expected 404 for unknown id, got %d", status)
	}
}

func TestListLocationsFilter(t *testing.T) {
	env := newTestEnv(t)
	env.createLocation(t, lisbonJSON)
	env.createLocation(t, `{"label":"São Paulo","countryCode":"BR","state":"SP","city":"São Paulo","lat":-23.55,"lng":-46.63}`)

	status, data, _ := env.do(t, "GET", "/v1/locations?q=sao%20paulo", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var resp struct {
		Data []domain.Location `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].City != "São Paulo" {
		t.Errorf("filter mismatch: %+v", resp.Data)
	}
}

func TestUpdateLocation(t *testing.T) {
	env := newTestEnv(t)
	loc := env.createLocation(t, lisbonJSON)

	status, data, _ := env.do(t, "PATCH", "/v1/locations/"+loc.ID, `{"label":"Lisboa, Portugal"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, data)
	}
	var got domain.Location
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Label != "Lisboa, Portugal" || got.City != "Lisboa" {
		t.Errorf("patch not merged: %+v", got)
	}
	if !got.CreatedAt.Equal(loc.CreatedAt) {
		t.Errorf("createdAt changed on update")
	}

	status, _, _ = env.do(t, "PATCH", "/v1/locations/missing", `{"label":"x"}`)
	if status != 404 {
		t.Errorf("expected 404 for unknown id, got %d", status)
	}
}

func TestDeleteLocation(t *testing.T) {
	env := newTestEnv(t)
	loc := env.createLocation(t, lisbonJSON)

	status, _, _ := env.do(t, "DELETE", "/v1/locations/"+loc.ID, "")
	if status != 204 {
		t.Fatalf("expected 204, got %d", status)
	}
	status, _, _ = env.do(t, "DELETE", "/v1/locations/"+loc.ID, "")
	if status != 404 {
		t.Errorf("expected 404 on second delete, got %d", status)
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.createLocation(t, lisbonJSON)
	env.createLocation(t, `{"label":"Porto","countryCode":"PT","state":"Porto","city":"Porto","lat":41.1579,"lng":-8.6291}`)

	status, data, _ := env.do(t, "GET", "/v1/locations/stats", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var stats domain.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Cities != 2 || stats.States != 2 || stats.Countries != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

// ---- Export / import ----

func TestExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	loc := env.createLocation(t, lisbonJSON)

	status, exported, headers := env.do(t, "GET", "/v1/locations/export", "")
	if status != 200 {
		t.Fatalf("export: %d", status)
	}
	if !strings.Contains(headers["Content-Disposition"], "attachment") {
		t.Errorf("export should be a download, got %q", headers["Content-Disposition"])
	}

	fresh := newTestEnv(t)
	status, data, _ := fresh.do(t, "POST", "/v1/locations/import?mode=replace", string(exported))
	if status != 200 {
		t.Fatalf("import: %d: %s", status, data)
	}
	var report domain.ImportReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Accepted != 1 || report.Invalid != 0 {
		t.Errorf("report = %+v", report)
	}

	status, data, _ = fresh.do(t, "GET", "/v1/locations/"+loc.ID, "")
	if status != 200 {
		t.Errorf("round-tripped record lost its id: %d %s", status, data)
	}
}

func TestImportMergeSkipsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	env.createLocation(t, lisbonJSON)

	payload := fmt.Sprintf(`[%s, {"label":"Madrid","countryCode":"ES","lat":40.4168,"lng":-3.7038}, {"label":"broken"}]`, lisbonJSON)
	status, data, _ := env.do(t, "POST", "/v1/locations/import", payload)
	if status != 200 {
		t.Fatalf("import: %d: %s", status, data)
	}
	var report domain.ImportReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Accepted != 1 || report.Duplicates != 1 || report.Invalid != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestImportMalformedPayload(t *testing.T) {
	env := newTestEnv(t)
	status, data, _ := env.do(t, "POST", "/v1/locations/import", `"just a string"`)
	if status != 400 {
		t.Errorf("expected 400 for malformed payload, got %d: %s", status, data)
	}
}

func TestImportRejectsUnknownMode(t *testing.T) {
	env := newTestEnv(t)
	status, _, _ := env.do(t, "POST", "/v1/locations/import?mode=append", `[]`)
	if status != 400 {
		t.Errorf("expected 400 for unknown mode, got %d", status)
	}
}

// ---- Validate ----

func TestValidateEndpointCollectsAllErrors(t *testing.T) {
	env := newTestEnv(t)
	env.createLocation(t, lisbonJSON)

	status, data, _ := env.do(t, "POST", "/v1/locations/validate",
		`{"label":"","countryCode":"","city":"","lat":200,"lng":-300}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var resp struct {
		Valid  bool                `json:"valid"`
		Errors []domain.FieldError `json:"errors"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Valid || len(resp.Errors) != 4 {
		t.Errorf("expected 4 field errors, got %+v", resp)
	}
}

func TestValidateEndpointNearbyWarning(t *testing.T) {
	env := newTestEnv(t)
	loc := env.createLocation(t, lisbonJSON)

	// ~1.1 km away: outside the exact threshold, inside the warn band
	status, data, _ := env.do(t, "POST", "/v1/locations/validate",
		`{"label":"Alfama","countryCode":"PT","state":"Lisboa","city":"Alfama","lat":38.7323,"lng":-9.1393}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var resp struct {
		Valid  bool                `json:"valid"`
		Errors []domain.FieldError `json:"errors"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Valid || len(resp.Errors) != 1 || resp.Errors[0].Field != "coordinates" {
		t.Errorf("expected a single coordinates warning, got %+v", resp)
	}

	// excluding the record under edit silences it
	status, data, _ = env.do(t, "POST", "/v1/locations/validate",
		fmt.Sprintf(`{"label":"Lisboa","countryCode":"PT","state":"Lisboa","city":"Lisboa","lat":38.7223,"lng":-9.1393,"excludeId":%q}`, loc.ID))
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Valid {
		t.Errorf("self-edit should validate clean, got %+v", resp.Errors)
	}
}

// ---- Persist failure visibility ----

func TestPersistFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(t)
	env.store.applyFn = func(context.Context, domain.Change, []domain.Location) error {
		return errors.New("disk full")
	}

	status, data, headers := env.do(t, "POST", "/v1/locations", lisbonJSON)
	if status != 201 {
		t.Fatalf("mutation must succeed despite persist failure, got %d: %s", status, data)
	}
	if headers["X-Persist-Warning"] == "" {
		t.Error("persist failure not surfaced on the response")
	}

	// readiness flips while memory and storage disagree
	status, _, _ = env.do(t, "GET", "/v1/ready", "")
	if status != 503 {
		t.Errorf("expected 503 from readiness, got %d", status)
	}

	// the record is still served from memory
	var loc domain.Location
	_ = json.Unmarshal(data, &loc)
	status, _, _ = env.do(t, "GET", "/v1/locations/"+loc.ID, "")
	if status != 200 {
		t.Errorf("record lost after persist failure: %d", status)
	}
}

// ---- Geocoding ----

func TestGeocodeSearch(t *testing.T) {
	env := newTestEnv(t)
	env.geocoder.combinedFn = func(_ context.Context, query string, limit int) []domain.PlaceCandidate {
		return []domain.PlaceCandidate{{Name: "Paris", Country: "France", Type: domain.PlaceCity, Importance: 0.9}}
	}

	status, data, _ := env.do(t, "GET", "/v1/geocode/search?q=paris", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var results []domain.PlaceCandidate
	if err := json.Unmarshal(data, &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Paris" {
		t.Errorf("results = %+v", results)
	}
}

func TestGeocodeSearchDowngradesToEmptyList(t *testing.T) {
	env := newTestEnv(t)

	status, data, _ := env.do(t, "GET", "/v1/geocode/search?q=nowhere", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("expected empty array, got %s", data)
	}
}

func TestReverseGeocode(t *testing.T) {
	env := newTestEnv(t)

	status, _, _ := env.do(t, "GET", "/v1/geocode/reverse?lat=38.72&lng=-9.14", "")
	if status != 404 {
		t.Errorf("expected 404 when nothing resolves, got %d", status)
	}

	env.geocoder.reverseFn = func(_ context.Context, lat, lng float64) *domain.PlaceCandidate {
		return &domain.PlaceCandidate{Name: "Lisboa", Country: "Portugal", Lat: lat, Lng: lng}
	}
	status, data, _ := env.do(t, "GET", "/v1/geocode/reverse?lat=38.72&lng=-9.14", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var cand domain.PlaceCandidate
	if err := json.Unmarshal(data, &cand); err != nil || cand.Name != "Lisboa" {
		t.Errorf("candidate = %s", data)
	}

	status, _, _ = env.do(t, "GET", "/v1/geocode/reverse?lat=999&lng=0", "")
	if status != 400 {
		t.Errorf("expected 400 for bad coordinates, got %d", status)
	}
}

// ---- Preferences ----

func TestPreferencesLifecycle(t *testing.T) {
	env := newTestEnv(t)

	status, data, _ := env.do(t, "GET", "/v1/preferences", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var prefs domain.Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if prefs != domain.DefaultPreferences() {
		t.Errorf("expected defaults, got %+v", prefs)
	}

	status, data, _ = env.do(t, "PUT", "/v1/preferences", `{"theme":"light"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if prefs.Theme != "light" || !prefs.Clustering {
		t.Errorf("shallow merge broken: %+v", prefs)
	}

	status, data, _ = env.do(t, "DELETE", "/v1/preferences", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if prefs != domain.DefaultPreferences() {
		t.Errorf("reset did not restore defaults: %+v", prefs)
	}
}

// ---- GraphQL ----

func TestGraphQLLocationsQuery(t *testing.T) {
	env := newTestEnv(t)
	env.createLocation(t, lisbonJSON)

	status, data, _ := env.do(t, "POST", "/graphql",
		`{"query":"{ locations { id label countryCode } stats { cities } }"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, data)
	}
	var resp struct {
		Data struct {
			Locations []struct {
				Label string `json:"label"`
			} `json:"locations"`
			Stats struct {
				Cities int `json:"cities"`
			} `json:"stats"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Errors) > 0 {
		t.Fatalf("graphql errors: %v", resp.Errors)
	}
	if len(resp.Data.Locations) != 1 || resp.Data.Locations[0].Label != "Lisboa" {
		t.Errorf("locations = %+v", resp.Data.Locations)
	}
	if resp.Data.Stats.Cities != 1 {
		t.Errorf("stats = %+v", resp.Data.Stats)
	}
}
