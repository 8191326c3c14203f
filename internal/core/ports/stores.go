package ports

import (
	"context"
	"errors"

	"github.com/gfreitas/placepin/internal/core/domain"
)

// ErrBlobNotFound is returned by BlobStore.Get for a missing key.
var ErrBlobNotFound = errors.New("blob not found")

// CollectionStore is the external persistence collaborator behind the
// collection manager. Load hydrates the collection once at startup; Apply
// relays one committed mutation together with the full post-mutation
// snapshot, so a blob-backed implementation can write the whole collection
// through while a table-backed one relays only the row change.
type CollectionStore interface {
	Load(ctx context.Context) ([]domain.Location, error)
	Apply(ctx context.Context, ch domain.Change, snapshot []domain.Location) error
}

// BlobStore is single-key JSON blob storage, the local persistence variant.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// CacheService provides read-through caching with per-entry TTLs.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
