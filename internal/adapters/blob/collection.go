package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gfreitas/placepin/internal/core/domain"
	"github.com/gfreitas/placepin/internal/core/ports"
)

// CollectionKey is the blob key the location collection is stored under.
const CollectionKey = "locations-data"

// CollectionStore implements ports.CollectionStore over single-key blob
// storage. Every applied change rewrites the full snapshot; the individual
// change is irrelevant to this backend. Loading tolerates the historical
// storage shapes, upgrading legacy records in place with fresh identity.
type CollectionStore struct {
	blob ports.BlobStore

	newID func() string
	now   func() time.Time
}

var _ ports.CollectionStore = (*CollectionStore)(nil)

// NewCollectionStore creates a blob-backed collection store.
func NewCollectionStore(blob ports.BlobStore) *CollectionStore {
	return &CollectionStore{
		blob:  blob,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Load reads and decodes the stored snapshot. A missing blob is an empty
// collection, not an error.
func (s *CollectionStore) Load(ctx context.Context) ([]domain.Location, error) {
	data, err := s.blob.Get(ctx, CollectionKey)
	if errors.Is(err, ports.ErrBlobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collection blob: %w", err)
	}

	locations, invalid, rej := domain.ParseImport(data)
	if rej != nil {
		return nil, fmt.Errorf("decode collection blob: %s", rej.Message)
	}
	if invalid > 0 {
		slog.Warn("dropped unreadable records from stored collection", "count", invalid)
	}

	migrated := 0
	for i := range locations {
		if locations[i].ID == "" {
			locations[i].ID = s.newID()
			locations[i].CreatedAt = s.now()
			migrated++
		}
	}
	if migrated > 0 {
		slog.Info("upgraded legacy records with fresh identity", "count", migrated)
	}
	return locations, nil
}

// Apply writes the full post-mutation snapshot as a bare JSON array.
func (s *CollectionStore) Apply(ctx context.Context, _ domain.Change, snapshot []domain.Location) error {
	if snapshot == nil {
		snapshot = []domain.Location{}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode collection snapshot: %w", err)
	}
	if err := s.blob.Set(ctx, CollectionKey, data); err != nil {
		return fmt.Errorf("write collection blob: %w", err)
	}
	return nil
}
