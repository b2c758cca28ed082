package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crypto_dash/internal/domain"
)

// PreferencesKey is the single storage key holding the favorite sets.
const PreferencesKey = "userPreferences"

// ErrCorruptPreferences means the stored value is not valid preferences JSON.
var ErrCorruptPreferences = errors.New("corrupt persisted preferences")

// SavePreferences writes the full favorite set under PreferencesKey.
func (s *Store) SavePreferences(ctx context.Context, favs domain.FavoriteSet) error {
	b, err := json.Marshal(favs.Persisted())
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	return s.UpsertMetadata(ctx, PreferencesKey, string(b), time.Now().Unix())
}

// LoadPreferences reads the persisted keys. Keys that were never stored are nil
// in the result so the caller can fall back to its defaults.
func (s *Store) LoadPreferences(ctx context.Context) (domain.PersistedPreferences, error) {
	raw, found, err := s.GetMetadata(ctx, PreferencesKey)
	if err != nil || !found {
		return domain.PersistedPreferences{}, err
	}

	var p domain.PersistedPreferences
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.PersistedPreferences{}, fmt.Errorf("%w: %v", ErrCorruptPreferences, err)
	}
	return p, nil
}
