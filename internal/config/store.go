// Package config handles persisting the staged configuration snapshot so a
// restart comes back with the operator's last settings instead of the
// compiled-in defaults.
package config

import "github.com/ez-emfi/volod/internal/models"

// Store is the interface for persisting the configuration snapshot.
type Store interface {
	// Load loads the persisted snapshot. Returns the compiled-in defaults
	// if no file exists.
	Load() (*models.ConfigSnapshot, error)

	// Save persists the snapshot. Implementations may debounce rapid saves.
	Save(snap *models.ConfigSnapshot) error

	// Path returns the file path used by this store.
	Path() string

	// Flush forces an immediate write of any pending snapshot.
	Flush() error
}
