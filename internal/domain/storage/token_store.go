// Package storage defines the port for durable client-side state.
// The only durable state this program owns is the persisted token set.
package storage

import (
	"console/internal/domain/entity"
)

// TokenStore persists the session's token set across restarts, the way a
// browser client would keep it in durable storage under fixed keys.
type TokenStore interface {
	// Save replaces the persisted token set.
	Save(tokens entity.TokenSet) error

	// Load returns the persisted token set, and whether one exists.
	Load() (entity.TokenSet, bool, error)

	// Clear removes any persisted token set. Clearing an empty store is not
	// an error.
	Clear() error
}
