package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gfreitas/placepin/internal/core/domain"
	"github.com/gfreitas/placepin/internal/core/ports"
)

const insertLocationSQL = `
	INSERT INTO locations (id, label, country_code, state, city, lat, lng, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE
	SET label = EXCLUDED.label, country_code = EXCLUDED.country_code,
	    state = EXCLUDED.state, city = EXCLUDED.city,
	    lat = EXCLUDED.lat, lng = EXCLUDED.lng
`

// LocationRepo implements ports.CollectionStore on a relational table. Each
// change is relayed as its own row mutation; only a full replacement
// rewrites the table from the snapshot.
type LocationRepo struct {
	db *DB
}

var _ ports.CollectionStore = (*LocationRepo)(nil)

// NewLocationRepo creates a new LocationRepo.
func NewLocationRepo(db *DB) *LocationRepo {
	return &LocationRepo{db: db}
}

// Load returns the whole collection, newest first.
func (r *LocationRepo) Load(ctx context.Context) ([]domain.Location, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, label, COALESCE(country_code, ''), COALESCE(state, ''), COALESCE(city, ''),
		       lat, lng, created_at
		FROM locations
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	defer rows.Close()

	var locations []domain.Location
	for rows.Next() {
		var loc domain.Location
		if err := rows.Scan(
			&loc.ID, &loc.Label, &loc.CountryCode, &loc.State, &loc.City,
			&loc.Lat, &loc.Lng, &loc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// Apply relays one committed change to the table.
func (r *LocationRepo) Apply(ctx context.Context, ch domain.Change, snapshot []domain.Location) error {
	switch ch.Kind {
	case domain.ChangeAdd, domain.ChangeUpdate:
		loc := ch.Location
		_, err := r.db.Pool.Exec(ctx, insertLocationSQL,
			loc.ID, loc.Label, loc.CountryCode, loc.State, loc.City,
			loc.Lat, loc.Lng, loc.CreatedAt)
		return err

	case domain.ChangeRemove:
		_, err := r.db.Pool.Exec(ctx, `DELETE FROM locations WHERE id = $1`, ch.ID)
		return err

	case domain.ChangeImport:
		return r.insertBatch(ctx, ch.Locations)

	case domain.ChangeSet:
		return r.replaceAll(ctx, snapshot)

	default:
		return fmt.Errorf("unknown change kind %q", ch.Kind)
	}
}

func (r *LocationRepo) insertBatch(ctx context.Context, locations []domain.Location) error {
	if len(locations) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, loc := range locations {
		batch.Queue(insertLocationSQL,
			loc.ID, loc.Label, loc.CountryCode, loc.State, loc.City,
			loc.Lat, loc.Lng, loc.CreatedAt)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range locations {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

func (r *LocationRepo) replaceAll(ctx context.Context, snapshot []domain.Location) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM locations`); err != nil {
		return fmt.Errorf("clear locations: %w", err)
	}
	for _, loc := range snapshot {
		if _, err := tx.Exec(ctx, insertLocationSQL,
			loc.ID, loc.Label, loc.CountryCode, loc.State, loc.City,
			loc.Lat, loc.Lng, loc.CreatedAt); err != nil {
			return fmt.Errorf("insert location %s: %w", loc.ID, err)
		}
	}
	return tx.Commit(ctx)
}
