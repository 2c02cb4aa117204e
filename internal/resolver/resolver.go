// Package resolver reconciles concurrent writes to a session record. The
// backing store's only concurrency primitive is fetch-latest, mutate,
// write-back, which is racy whenever two players act on the same session
// near-simultaneously. The resolver re-derives every write from a fresh
// read plus the caller's single event, so a concurrent sibling update that
// landed between read and write is never silently dropped. It is the only
// component allowed to re-issue a mutation.
package resolver

import (
	"errors"
	"log"

	"memething/internal/game"
	"memething/internal/store"
)

// ErrConcurrentModification means the retry budget was exhausted without a
// clean write. The caller should surface it as a try-again condition.
var ErrConcurrentModification = errors.New("session is being modified concurrently, try again")

// DefaultMaxAttempts bounds the read-apply-write retry loop.
const DefaultMaxAttempts = 3

type Resolver struct {
	store       store.SessionStore
	maxAttempts int
}

func New(sessions store.SessionStore, maxAttempts int) *Resolver {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Resolver{store: sessions, maxAttempts: maxAttempts}
}

// SyncCreate builds a new session from the creation event and persists it.
func (r *Resolver) SyncCreate(ev game.CreateSession) (*game.Session, error) {
	session, err := game.Apply(nil, ev)
	if err != nil {
		return nil, err
	}
	return r.store.Create(session)
}

// SyncWrite applies one logical event to the session under the store's
// read-modify-write discipline. The guard is always evaluated against a
// freshly fetched record, never against a client-cached copy; on a stale
// write the same event is re-applied to the new state and retried up to
// the attempt bound.
func (r *Resolver) SyncWrite(sessionID string, ev game.Event) (*game.Session, error) {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		current, err := r.store.Fetch(sessionID)
		if err != nil {
			return nil, err
		}
		next, err := game.Apply(current, ev)
		if err != nil {
			return nil, err
		}
		updated, err := r.store.Update(next)
		if errors.Is(err, store.ErrStaleWrite) {
			log.Printf("stale write session_id=%s event=%s attempt=%d", sessionID, ev.Name(), attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, ErrConcurrentModification
}

// SyncDelete removes a finished session. Deletion cascades to the round
// content the session owns.
func (r *Resolver) SyncDelete(sessionID string) error {
	return r.store.Delete(sessionID)
}
