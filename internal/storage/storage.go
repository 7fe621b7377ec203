// Package storage defines the persistence contract for the lottery record and
// the in-memory implementation. Concrete backends live in sub-packages.
package storage

import (
	"context"
	"errors"

	"github.com/google/logger"
	"luckydraw/internal/models"
)

// ErrNotFound indicates the lottery record does not exist yet.
var ErrNotFound = errors.New("record not found")

// ErrCorrupt indicates the stored record could not be decoded.
var ErrCorrupt = errors.New("record is corrupt")

// Store persists one AppState record. Writes are last-writer-wins.
type Store interface {
	// Load returns the stored state, ErrNotFound when absent or ErrCorrupt
	// when it cannot be decoded.
	Load(ctx context.Context) (models.AppState, error)
	// Save overwrites the whole record.
	Save(ctx context.Context, state models.AppState) error
	// Patch overwrites only the slices present in the patch.
	Patch(ctx context.Context, patch models.StatePatch) error
	Close() error
}

// LoadOrDefault loads the record, falling back to the default state when it
// is missing or corrupt. A missing record is initialized with the default
// state. The returned error is only non-nil when the store itself failed; the
// state is still usable in that case.
func LoadOrDefault(ctx context.Context, s Store) (models.AppState, error) {
	state, err := s.Load(ctx)
	switch {
	case err == nil:
		return state.Normalize(), nil
	case errors.Is(err, ErrNotFound):
		state = models.DefaultState()
		if err := s.Save(ctx, state); err != nil {
			return state, err
		}
		logger.Info("Initialized empty lottery record with defaults")
		return state, nil
	case errors.Is(err, ErrCorrupt):
		logger.Warningf("Could not load state, using defaults: %v", err)
		return models.DefaultState(), nil
	default:
		return models.DefaultState(), err
	}
}
