package store

import (
	"errors"

	"memething/internal/game"
)

var (
	// ErrNotFound means no session exists under the given id.
	ErrNotFound = errors.New("session not found")
	// ErrStaleWrite means the stored record changed between the caller's
	// read and this write. The caller must re-fetch before writing again.
	ErrStaleWrite = errors.New("session changed since it was read")
)

// SessionStore is the record store the session engine synchronizes
// against. The store offers no transactions and no partial updates: the
// only write primitive is a whole-record replace guarded by the version
// the caller fetched. Every implementation must bump Version on each
// successful write and reject writes carrying an outdated version with
// ErrStaleWrite.
type SessionStore interface {
	// Create persists a new session and returns it with its initial
	// version assigned.
	Create(s *game.Session) (*game.Session, error)
	// Fetch returns the current record, or ErrNotFound.
	Fetch(id string) (*game.Session, error)
	// Update replaces the record if s.Version still matches the stored
	// version, returning the record with its new version. Returns
	// ErrStaleWrite otherwise.
	Update(s *game.Session) (*game.Session, error)
	// Delete removes the session and everything it owns.
	Delete(id string) error
	// ListByPlayer returns the sessions a player participates in.
	ListByPlayer(playerID string) ([]*game.Session, error)
	// Subscribe registers a change callback invoked with the session id
	// after every committed create, update, or delete. The returned func
	// unregisters it.
	Subscribe(fn func(sessionID string)) func()
}
