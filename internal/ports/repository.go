// Package ports define repository interfaces for data persistence abstraction.
// These interfaces enable the repository pattern and allow swapping persistence mechanisms.
package ports

import (
	"github.com/auroraviz/aurora/internal/domain"
)

// MorphFieldRepository handles the persistence of baked morph fields.
// Fields are keyed by (asset ID, base vertex count): a field baked for one
// mesh resolution is useless for another.
//
// Thread-safety: Implementations must be thread-safe.
type MorphFieldRepository interface {
	// Save persists a baked field, replacing any entry with the same key.
	//
	// Returns an error if the field is invalid or saving fails.
	Save(field domain.MorphField) error

	// Load retrieves the field for the given key.
	//
	// Returns domain.ErrFieldNotFound if no entry exists.
	// Returns domain.ErrFieldLengthMismatch if a stored entry does not
	// match its vertex count; the corrupt entry is removed so the caller
	// can simply rebake.
	Load(assetID string, vertexCount int) (domain.MorphField, error)

	// Delete removes a cached field.
	// If the entry doesn't exist, this is a no-op (no error).
	Delete(assetID string, vertexCount int) error

	// Clear removes all cached fields.
	//
	// Returns an error if clearing fails.
	Clear() error
}

// SettingsRepository handles the persistence of visual settings.
// This abstracts the Fyne preferences storage.
//
// Thread-safety: Implementations must be thread-safe.
type SettingsRepository interface {
	// Save persists the complete settings snapshot.
	//
	// Returns an error if saving fails.
	Save(settings domain.VisualSettings) error

	// Load retrieves the saved settings. Fields that were never saved come
	// back with their defaults from domain.DefaultVisualSettings, so a
	// fresh installation loads cleanly.
	//
	// Returns the settings or an error if loading fails.
	Load() (domain.VisualSettings, error)

	// Clear removes all saved settings.
	//
	// Returns an error if clearing fails.
	Clear() error
}
