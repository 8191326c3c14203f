package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/gfreitas/placepin/internal/core/ports"
)

func TestBlobStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ports.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}

	if err := store.Set(ctx, "k", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("got %s", got)
	}

	if err := store.Set(ctx, "k", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = store.Get(ctx, "k")
	if string(got) != `{"a":2}` {
		t.Errorf("overwrite not applied: %s", got)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ports.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound after delete, got %v", err)
	}

	// deleting again stays a no-op
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("double delete: %v", err)
	}
}
