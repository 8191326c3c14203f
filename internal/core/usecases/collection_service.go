package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gfreitas/placepin/internal/core/domain"
	"github.com/gfreitas/placepin/internal/core/ports"
	"github.com/gfreitas/placepin/internal/pkg/geospatial"
	"github.com/gfreitas/placepin/internal/pkg/metrics"
)

// CollectionService is the sole owner of the in-memory location collection
// and the sole writer of its persisted representation. All mutations are
// serialized through one mutex, expressed as tagged Changes folded over the
// previous state, and written through to the external store after they
// commit in memory. A failed write-through never fails the operation: it is
// logged, recorded, and published, and memory stays authoritative until the
// next successful write.
type CollectionService struct {
	store  ports.CollectionStore
	events ports.EventPublisher // optional
	strict bool

	mu         sync.Mutex
	locations  []domain.Location
	persistErr error

	now   func() time.Time
	newID func() string
}

// NewCollectionService creates a collection manager over the given store.
// With strict enabled, add requires city and state to be present.
func NewCollectionService(store ports.CollectionStore, events ports.EventPublisher, strict bool) *CollectionService {
	return &CollectionService{
		store:  store,
		events: events,
		strict: strict,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Load hydrates the collection from the store. Called once at startup.
func (s *CollectionService) Load(ctx context.Context) error {
	locations, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = domain.Reduce(nil, domain.Change{Kind: domain.ChangeSet, Locations: locations})
	metrics.LocationsTotal.Set(float64(len(s.locations)))
	slog.Info("collection loaded", "locations", len(s.locations))
	return nil
}

// List returns a copy of the collection in insertion order.
func (s *CollectionService) List() []domain.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Location(nil), s.locations...)
}

// Filter returns the locations whose city, state, country code, or label
// contains the normalized search term.
func (s *CollectionService) Filter(query string) []domain.Location {
	needle := geospatial.NormalizeName(query)
	if needle == "" {
		return s.List()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Location
	for _, loc := range s.locations {
		if containsNormalized(loc.City, needle) ||
			containsNormalized(loc.State, needle) ||
			containsNormalized(loc.CountryCode, needle) ||
			containsNormalized(loc.Label, needle) {
			out = append(out, loc)
		}
	}
	return out
}

// GetByID returns the record with the given id, if present.
func (s *CollectionService) GetByID(id string) (domain.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, loc := range s.locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return domain.Location{}, false
}

// Stats returns distinct city/state/country counts.
func (s *CollectionService) Stats() domain.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CollectionStats(s.locations)
}

// Add validates the draft against the collection and appends a new record.
// The first existing record within the exact-duplicate threshold (in
// collection order) is reported as the conflict.
func (s *CollectionService) Add(ctx context.Context, draft domain.LocationDraft) (domain.Location, error) {
	draft = draft.Normalize()
	if rej := domain.ValidateDraft(draft, s.strict); rej != nil {
		return domain.Location{}, rej
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dup := domain.FindExactDuplicate(draft.Lat, draft.Lng, s.locations, ""); dup != nil {
		return domain.Location{}, &domain.Rejection{
			Code:     domain.RejectDuplicateLocation,
			Field:    "coordinates",
			Message:  fmt.Sprintf("a location with these coordinates already exists (%s)", dup.Label),
			Conflict: dup,
		}
	}

	loc := domain.Location{
		ID:          s.newID(),
		Label:       draft.Label,
		CountryCode: draft.CountryCode,
		State:       draft.State,
		City:        draft.City,
		Lat:         draft.Lat,
		Lng:         draft.Lng,
		CreatedAt:   s.now(),
	}

	s.commit(ctx, domain.Change{Kind: domain.ChangeAdd, Location: loc})
	return loc, nil
}

// Update merges the patch into an existing record after re-validating only
// the supplied fields against the rest of the collection.
func (s *CollectionService) Update(ctx context.Context, id string, patch domain.LocationPatch) (domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.find(id)
	if !ok {
		return domain.Location{}, &domain.Rejection{
			Code: domain.RejectNotFound, Message: "location " + id + " does not exist",
		}
	}

	merged := patch.Apply(current)

	if patch.CountryCode != nil && len(merged.CountryCode) != 2 {
		return domain.Location{}, &domain.Rejection{
			Code: domain.RejectInvalidCountryCode, Field: "countryCode",
			Message: "country code must be exactly 2 letters",
		}
	}
	if patch.Lat != nil || patch.Lng != nil {
		if !geospatial.ValidLat(merged.Lat) || !geospatial.ValidLng(merged.Lng) {
			return domain.Location{}, &domain.Rejection{
				Code: domain.RejectInvalidCoordinates, Field: "coordinates",
				Message: "latitude must be within [-90, 90] and longitude within [-180, 180]",
			}
		}
	}
	if patch.Lat != nil && patch.Lng != nil {
		if dup := domain.FindExactDuplicate(merged.Lat, merged.Lng, s.locations, id); dup != nil {
			return domain.Location{}, &domain.Rejection{
				Code:     domain.RejectDuplicateLocation,
				Field:    "coordinates",
				Message:  fmt.Sprintf("a location with these coordinates already exists (%s)", dup.Label),
				Conflict: dup,
			}
		}
	}

	s.commit(ctx, domain.Change{Kind: domain.ChangeUpdate, Location: merged})
	return merged, nil
}

// Remove deletes a record by id. Removing an absent id is NotFound, never a
// crash, and leaves the collection unchanged.
func (s *CollectionService) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.find(id); !ok {
		return &domain.Rejection{Code: domain.RejectNotFound, Message: "location " + id + " does not exist"}
	}

	s.commit(ctx, domain.Change{Kind: domain.ChangeRemove, ID: id})
	return nil
}

// Export produces the versioned snapshot that Import accepts back.
func (s *CollectionService) Export() domain.Export {
	return domain.Export{
		Version:    domain.ExportVersion,
		ExportedAt: s.now().UTC(),
		Records:    s.List(),
	}
}

// Import parses the payload and either merges structurally valid candidates
// into the collection or replaces the collection wholesale. In merge mode a
// candidate colliding with the pre-import collection (same policy as Add) is
// skipped and counted; in replace mode the duplicate policy is not applied
// across the replacement set itself.
func (s *CollectionService) Import(ctx context.Context, payload []byte, mode domain.ImportMode) (domain.ImportReport, error) {
	candidates, invalid, rej := domain.ParseImport(payload)
	if rej != nil {
		return domain.ImportReport{}, rej
	}

	report := domain.ImportReport{Invalid: invalid}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch mode {
	case domain.ImportReplace:
		for i := range candidates {
			if candidates[i].ID == "" || candidates[i].CreatedAt.IsZero() {
				candidates[i].ID = s.newID()
				candidates[i].CreatedAt = s.now()
			}
		}
		report.Accepted = len(candidates)
		s.commit(ctx, domain.Change{Kind: domain.ChangeSet, Locations: candidates})

	default: // merge
		var accepted []domain.Location
		for _, cand := range candidates {
			if domain.FindExactDuplicate(cand.Lat, cand.Lng, s.locations, "") != nil {
				report.Duplicates++
				continue
			}
			cand.ID = s.newID()
			cand.CreatedAt = s.now()
			accepted = append(accepted, cand)
		}
		report.Accepted = len(accepted)
		s.commit(ctx, domain.Change{Kind: domain.ChangeImport, Locations: accepted})
	}

	metrics.ImportRecords.WithLabelValues("accepted").Add(float64(report.Accepted))
	metrics.ImportRecords.WithLabelValues("duplicate").Add(float64(report.Duplicates))
	metrics.ImportRecords.WithLabelValues("invalid").Add(float64(report.Invalid))

	if s.events != nil {
		if err := s.events.PublishImport(ctx, mode, report); err != nil {
			slog.Debug("import event publish failed", "error", err)
		}
	}
	return report, nil
}

// Validate runs the strict form-flow validation without mutating anything.
// excludeID skips the record under edit.
func (s *CollectionService) Validate(draft domain.LocationDraft, excludeID string) []domain.FieldError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ValidateStrict(draft.Normalize(), s.locations, excludeID)
}

// LastPersistError reports the error of the most recent write-through, or
// nil when memory and durable storage are known to agree. The in-memory
// mutation stands even when this is non-nil.
func (s *CollectionService) LastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// find returns the record with the given id. Caller holds s.mu.
func (s *CollectionService) find(id string) (domain.Location, bool) {
	for _, loc := range s.locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return domain.Location{}, false
}

// commit folds the change over the current state, writes the result through,
// and publishes the change. Caller holds s.mu. Persistence failures are
// swallowed after being logged, recorded, and published.
func (s *CollectionService) commit(ctx context.Context, ch domain.Change) {
	s.locations = domain.Reduce(s.locations, ch)
	metrics.CollectionMutations.WithLabelValues(string(ch.Kind)).Inc()
	metrics.LocationsTotal.Set(float64(len(s.locations)))

	if err := s.store.Apply(ctx, ch, s.locations); err != nil {
		slog.Error("collection write-through failed", "op", string(ch.Kind), "error", err)
		metrics.PersistFailures.WithLabelValues(string(ch.Kind)).Inc()
		s.persistErr = err
		if s.events != nil {
			if perr := s.events.PublishPersistFailure(ctx, string(ch.Kind), err); perr != nil {
				slog.Debug("persist-failure event publish failed", "error", perr)
			}
		}
	} else {
		s.persistErr = nil
	}

	if s.events != nil {
		if err := s.events.PublishChange(ctx, ch); err != nil {
			slog.Debug("change event publish failed", "op", string(ch.Kind), "error", err)
		}
	}
}

func containsNormalized(haystack, normalizedNeedle string) bool {
	if haystack == "" {
		return false
	}
	return strings.Contains(geospatial.NormalizeName(haystack), normalizedNeedle)
}
