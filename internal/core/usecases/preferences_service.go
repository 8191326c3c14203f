package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gfreitas/placepin/internal/core/domain"
	"github.com/gfreitas/placepin/internal/core/ports"
)

// PreferencesKey is the blob key the preferences object is stored under.
const PreferencesKey = "placepin-preferences"

// PreferencesService persists display preferences as a flat JSON blob,
// defaulted and shallow-merged on load.
type PreferencesService struct {
	blob ports.BlobStore
}

// NewPreferencesService creates a new PreferencesService.
func NewPreferencesService(blob ports.BlobStore) *PreferencesService {
	return &PreferencesService{blob: blob}
}

// Get loads preferences, merging whatever is stored over the defaults.
// A missing or unreadable blob yields the defaults.
func (s *PreferencesService) Get(ctx context.Context) domain.Preferences {
	prefs := domain.DefaultPreferences()

	data, err := s.blob.Get(ctx, PreferencesKey)
	if err != nil {
		if !errors.Is(err, ports.ErrBlobNotFound) {
			slog.Warn("preferences load failed, using defaults", "error", err)
		}
		return prefs
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		slog.Warn("preferences blob unreadable, using defaults", "error", err)
		return domain.DefaultPreferences()
	}
	return prefs
}

// Update shallow-merges the patch into the stored preferences and writes
// the result back.
func (s *PreferencesService) Update(ctx context.Context, patch domain.PreferencesPatch) (domain.Preferences, error) {
	prefs := patch.Apply(s.Get(ctx))

	data, err := json.Marshal(prefs)
	if err != nil {
		return prefs, fmt.Errorf("marshal preferences: %w", err)
	}
	if err := s.blob.Set(ctx, PreferencesKey, data); err != nil {
		return prefs, fmt.Errorf("save preferences: %w", err)
	}
	return prefs, nil
}

// Reset drops the stored blob, reverting to defaults.
func (s *PreferencesService) Reset(ctx context.Context) (domain.Preferences, error) {
	if err := s.blob.Delete(ctx, PreferencesKey); err != nil && !errors.Is(err, ports.ErrBlobNotFound) {
		return domain.DefaultPreferences(), fmt.Errorf("reset preferences: %w", err)
	}
	return domain.DefaultPreferences(), nil
}
