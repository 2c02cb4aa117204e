package resolver

import (
	"errors"
	"testing"

	"memething/internal/game"
	"memething/internal/store"
)

// contendingStore wraps a MemoryStore and runs a hook before the first
// Update, simulating a sibling client whose write lands between this
// client's read and write.
type contendingStore struct {
	*store.MemoryStore
	before func()
	fired  bool
}

func (c *contendingStore) Update(s *game.Session) (*game.Session, error) {
	if !c.fired && c.before != nil {
		c.fired = true
		c.before()
	}
	return c.MemoryStore.Update(s)
}

func captionReadySession(t *testing.T, sessions store.SessionStore) *game.Session {
	t.Helper()
	session, err := game.Apply(nil, game.CreateSession{
		Initiator: game.Participant{ID: "ada", Name: "Ada"},
		Invitees: []game.Participant{
			{ID: "ben", Name: "Ben"},
			{ID: "cat", Name: "Cat"},
		},
	})
	if err != nil {
		t.Fatalf("build session: %v", err)
	}
	created, err := sessions.Create(session)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	r := New(sessions, 0)
	for _, ev := range []game.Event{
		game.RespondToInvitation{Player: "ben", Accept: true},
		game.RespondToInvitation{Player: "cat", Accept: true},
		game.SubmitDrawing{Player: "ada", ImageKey: "img"},
	} {
		if created, err = r.SyncWrite(created.ID, ev); err != nil {
			t.Fatalf("setup %s: %v", ev.Name(), err)
		}
	}
	if created.Status != game.StatusWaitingForCaptions {
		t.Fatalf("setup ended in %s", created.Status)
	}
	return created
}

func TestSyncWriteRetriesPreserveConcurrentCaptions(t *testing.T) {
	memory := store.NewMemoryStore()
	contended := &contendingStore{MemoryStore: memory}
	session := captionReadySession(t, memory)

	// Ben's caption commits directly against the backing store while Cat's
	// write is in flight, so Cat's first write is stale.
	contended.before = func() {
		sibling := New(memory, 0)
		if _, err := sibling.SyncWrite(session.ID, game.SubmitCaption{Player: "ben", Text: "by ben"}); err != nil {
			t.Errorf("sibling caption: %v", err)
		}
	}

	r := New(contended, 0)
	result, err := r.SyncWrite(session.ID, game.SubmitCaption{Player: "cat", Text: "by cat"})
	if err != nil {
		t.Fatalf("sync write: %v", err)
	}

	drawing := result.CurrentRound().Drawing
	if len(drawing.Captions) != 2 {
		t.Fatalf("both captions must survive, got %d", len(drawing.Captions))
	}
	authors := map[string]bool{}
	for _, c := range drawing.Captions {
		authors[c.Author] = true
	}
	if !authors["ben"] || !authors["cat"] {
		t.Fatalf("missing caption author: %v", authors)
	}
	if result.Status != game.StatusWaitingForResult {
		t.Fatalf("last caption must close the round exactly once, got %s", result.Status)
	}
}

// staleStore accepts reads but rejects every write.
type staleStore struct {
	*store.MemoryStore
	updates int
}

func (s *staleStore) Update(sess *game.Session) (*game.Session, error) {
	s.updates++
	return nil, store.ErrStaleWrite
}

func TestSyncWriteGivesUpAfterMaxAttempts(t *testing.T) {
	memory := store.NewMemoryStore()
	session := captionReadySession(t, memory)
	stale := &staleStore{MemoryStore: memory}

	r := New(stale, 3)
	_, err := r.SyncWrite(session.ID, game.SubmitCaption{Player: "ben", Text: "caption"})
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
	if stale.updates != 3 {
		t.Fatalf("expected 3 attempts, got %d", stale.updates)
	}
}

func TestSyncWriteDoesNotRetryGuardFailures(t *testing.T) {
	memory := store.NewMemoryStore()
	session := captionReadySession(t, memory)
	stale := &staleStore{MemoryStore: memory}

	r := New(stale, 3)
	_, err := r.SyncWrite(session.ID, game.SubmitDrawing{Player: "ada", ImageKey: "again"})
	if !game.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if stale.updates != 0 {
		t.Fatalf("guard failures must not reach the store, got %d writes", stale.updates)
	}
}

func TestSyncWriteUnknownSession(t *testing.T) {
	r := New(store.NewMemoryStore(), 0)
	_, err := r.SyncWrite("missing", game.Quit{Player: "ada"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSyncCreateAndDelete(t *testing.T) {
	memory := store.NewMemoryStore()
	r := New(memory, 0)

	session, err := r.SyncCreate(game.CreateSession{
		Initiator: game.Participant{ID: "ada", Name: "Ada"},
		Invitees:  []game.Participant{{ID: "ben", Name: "Ben"}},
	})
	if err != nil {
		t.Fatalf("sync create: %v", err)
	}
	if session.Version != 1 {
		t.Fatalf("created session must carry version 1, got %d", session.Version)
	}

	if err := r.SyncDelete(session.ID); err != nil {
		t.Fatalf("sync delete: %v", err)
	}
	if _, err := memory.Fetch(session.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("session must be deleted, got %v", err)
	}
}
