package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"location-api/internal/models"
	"location-api/internal/repository"

	"github.com/rs/zerolog/log"
)

// LocationKey is the well-known key holding the serialized location record.
const LocationKey = "userLocation"

// LocationStore persists the single location record.
// A store built on a nil KeyValue has no durable storage: Load reports
// absent and Save/Clear do nothing.
type LocationStore struct {
	kv repository.KeyValue
}

// NewLocationStore creates a location store over kv, which may be nil.
func NewLocationStore(kv repository.KeyValue) *LocationStore {
	return &LocationStore{kv: kv}
}

// Load returns the stored record. Missing, unreadable, malformed and empty
// records all report absent.
func (s *LocationStore) Load(ctx context.Context) (*models.Location, bool) {
	if s == nil || s.kv == nil {
		return nil, false
	}

	raw, err := s.kv.Get(ctx, LocationKey)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Debug().Err(err).Msg("storage: location read failed")
		}
		return nil, false
	}

	var loc models.Location
	if err := json.Unmarshal([]byte(raw), &loc); err != nil {
		log.Debug().Err(err).Msg("storage: stored location is malformed")
		return nil, false
	}
	if loc.IsEmpty() {
		return nil, false
	}
	return &loc, true
}

// Save writes loc, overwriting any prior value. An empty record clears the key.
func (s *LocationStore) Save(ctx context.Context, loc *models.Location) error {
	if s == nil || s.kv == nil {
		return nil
	}
	if loc.IsEmpty() {
		return s.Clear(ctx)
	}

	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("storage: marshal location: %w", err)
	}
	if err := s.kv.Set(ctx, LocationKey, string(data)); err != nil {
		return fmt.Errorf("storage: save location: %w", err)
	}
	return nil
}

// Clear removes the stored record.
func (s *LocationStore) Clear(ctx context.Context) error {
	if s == nil || s.kv == nil {
		return nil
	}
	if err := s.kv.Delete(ctx, LocationKey); err != nil {
		return fmt.Errorf("storage: clear location: %w", err)
	}
	return nil
}
