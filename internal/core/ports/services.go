package ports

import (
	"context"

	"github.com/gfreitas/placepin/internal/core/domain"
)

// Geocoder resolves free-text queries and coordinates against an upstream
// place-search service. Upstream failures are downgraded at the client
// boundary: search operations yield an empty list and ReverseGeocode yields
// nil, never an error — geocoding is an enrichment convenience, not a
// required step.
type Geocoder interface {
	SearchPlaces(ctx context.Context, query string, limit int) []domain.PlaceCandidate
	SearchCountries(ctx context.Context, query string) []domain.PlaceCandidate
	SearchCombined(ctx context.Context, query string, limit int) []domain.PlaceCandidate
	ReverseGeocode(ctx context.Context, lat, lng float64) *domain.PlaceCandidate
}

// EventPublisher pushes collection lifecycle events to a message broker for
// interested consumers (the WebSocket relay, notification surfaces).
type EventPublisher interface {
	PublishChange(ctx context.Context, ch domain.Change) error
	PublishImport(ctx context.Context, mode domain.ImportMode, report domain.ImportReport) error
	PublishPersistFailure(ctx context.Context, op string, err error) error
}
