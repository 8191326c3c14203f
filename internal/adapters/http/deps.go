package http

import (
	"github.com/nats-io/nats.go"

	"github.com/gfreitas/placepin/internal/adapters/postgres"
	"github.com/gfreitas/placepin/internal/adapters/valkey"
	"github.com/gfreitas/placepin/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers. NATS, DB, and
// Cache are optional and may be nil.
type Dependencies struct {
	Collection  *usecases.CollectionService
	Geocode     *usecases.GeocodeService
	Preferences *usecases.PreferencesService
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
}
