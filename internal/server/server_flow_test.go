package server

import (
	"errors"
	"io"
	"net/http"
	"testing"

	"memething/internal/game"
	"memething/internal/images"
	"memething/internal/store"
)

func TestFullGameOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	ada := env.registerPlayer("Ada")
	ben := env.registerPlayer("Ben")
	cat := env.registerPlayer("Cat")

	session := env.createSession(ada, 1, ben, cat)
	if session.Status != game.StatusWaitingForPlayers {
		t.Fatalf("expected waiting_for_players, got %s", session.Status)
	}
	if len(session.Players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(session.Players))
	}

	session = env.applyOK(session.ID, "invitation", map[string]any{
		"player_id": ben.ID, "accept": true,
	})
	session = env.applyOK(session.ID, "invitation", map[string]any{
		"player_id": cat.ID, "accept": false,
	})
	if session.Status != game.StatusWaitingForDrawing {
		t.Fatalf("expected waiting_for_drawing, got %s", session.Status)
	}

	session = env.applyOK(session.ID, "drawing", map[string]any{
		"player_id": ada.ID, "image_data": testImageData(),
	})
	if session.Status != game.StatusWaitingForCaptions {
		t.Fatalf("expected waiting_for_captions, got %s", session.Status)
	}
	drawing := session.CurrentRound().Drawing
	if drawing == nil || drawing.ImageKey == "" {
		t.Fatal("drawing must be stored with an image key")
	}

	// The stored image is retrievable through the API.
	resp := env.request(http.MethodGet, "/api/images/"+drawing.ImageKey, nil)
	expectStatus(t, resp, http.StatusOK)
	payload, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(payload) != "not really a png" {
		t.Fatalf("image payload mismatch: %q", payload)
	}

	session = env.applyOK(session.ID, "captions", map[string]any{
		"player_id": ben.ID, "text": "a fine caption",
	})
	if session.Status != game.StatusWaitingForResult {
		t.Fatalf("expected waiting_for_result, got %s", session.Status)
	}

	captionID := session.CurrentRound().Drawing.Captions[0].ID
	session = env.applyOK(session.ID, "winner", map[string]any{
		"player_id": ada.ID, "caption_id": captionID,
	})
	// pointsToWin was 1, so the single round decides the game.
	if session.Status != game.StatusGameOver {
		t.Fatalf("expected game_over, got %s", session.Status)
	}
	winner, ok := session.Winner()
	if !ok || winner.ID != ben.ID {
		t.Fatalf("expected ben to win, got %#v", winner)
	}
}

func TestMultiRoundOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	ada := env.registerPlayer("Ada")
	ben := env.registerPlayer("Ben")

	session := env.createSession(ada, 2, ben)
	session = env.applyOK(session.ID, "invitation", map[string]any{
		"player_id": ben.ID, "accept": true,
	})

	session = env.applyOK(session.ID, "drawing", map[string]any{
		"player_id": ada.ID, "image_data": testImageData(),
	})
	session = env.applyOK(session.ID, "captions", map[string]any{
		"player_id": ben.ID, "text": "round one",
	})
	captionID := session.CurrentRound().Drawing.Captions[0].ID
	session = env.applyOK(session.ID, "winner", map[string]any{
		"player_id": ada.ID, "caption_id": captionID,
	})
	if session.Status != game.StatusWaitingForNextRound {
		t.Fatalf("expected waiting_for_next_round, got %s", session.Status)
	}

	session = env.applyOK(session.ID, "next-round", nil)
	if session.Status != game.StatusWaitingForDrawing {
		t.Fatalf("expected waiting_for_drawing, got %s", session.Status)
	}
	if session.Players[0].ID != ben.ID {
		t.Fatalf("lead must rotate to ben, got %s", session.Players[0].ID)
	}
	if len(session.Rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(session.Rounds))
	}
}

func TestSessionListAndGet(t *testing.T) {
	env := newTestEnv(t)
	ada := env.registerPlayer("Ada")
	ben := env.registerPlayer("Ben")
	session := env.createSession(ada, 0, ben)

	resp := env.request(http.MethodGet, "/api/sessions/"+session.ID, nil)
	expectStatus(t, resp, http.StatusOK)
	fetched := decodeBody[game.Session](t, resp)
	if fetched.ID != session.ID {
		t.Fatalf("fetched wrong session %s", fetched.ID)
	}
	if fetched.PointsToWin != env.server.cfg.PointsToWin {
		t.Fatalf("zero points_to_win must fall back to the configured default, got %d", fetched.PointsToWin)
	}

	resp = env.request(http.MethodGet, "/api/sessions?player="+ben.ID, nil)
	expectStatus(t, resp, http.StatusOK)
	listing := decodeBody[map[string][]game.Session](t, resp)
	if len(listing["sessions"]) != 1 {
		t.Fatalf("expected 1 session for ben, got %d", len(listing["sessions"]))
	}

	resp = env.request(http.MethodGet, "/api/sessions", nil)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = env.request(http.MethodGet, "/api/sessions/unknown-session", nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestDeleteSessionRemovesImages(t *testing.T) {
	env := newTestEnv(t)
	ada := env.registerPlayer("Ada")
	ben := env.registerPlayer("Ben")

	session := env.createSession(ada, 1, ben)
	session = env.applyOK(session.ID, "invitation", map[string]any{
		"player_id": ben.ID, "accept": true,
	})
	session = env.applyOK(session.ID, "drawing", map[string]any{
		"player_id": ada.ID, "image_data": testImageData(),
	})
	imageKey := session.CurrentRound().Drawing.ImageKey

	resp := env.request(http.MethodDelete, "/api/sessions/"+session.ID, nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	if _, err := env.sessions.Fetch(session.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("session must be gone, got %v", err)
	}
	if _, err := env.images.Load(imageKey); !errors.Is(err, images.ErrImageNotFound) {
		t.Fatalf("drawing image must be gone, got %v", err)
	}

	resp = env.request(http.MethodDelete, "/api/sessions/"+session.ID, nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

// trackingImageStore records the keys that pass through it.
type trackingImageStore struct {
	*images.MemoryStore
	saved   []string
	deleted []string
}

func (s *trackingImageStore) Save(data []byte) (string, error) {
	key, err := s.MemoryStore.Save(data)
	if err == nil {
		s.saved = append(s.saved, key)
	}
	return key, nil
}

func (s *trackingImageStore) Delete(key string) error {
	s.deleted = append(s.deleted, key)
	return s.MemoryStore.Delete(key)
}

func TestRejectedDrawingLeavesNoOrphanedImage(t *testing.T) {
	imageStore := &trackingImageStore{MemoryStore: images.NewMemoryStore()}
	env := newTestEnvWithImages(t, imageStore)
	ada := env.registerPlayer("Ada")
	ben := env.registerPlayer("Ben")

	session := env.createSession(ada, 3, ben)
	env.applyOK(session.ID, "invitation", map[string]any{
		"player_id": ben.ID, "accept": true,
	})

	// Only the lead may draw; the rejected upload must not linger.
	env.postAction(session.ID, "drawing", map[string]any{
		"player_id": ben.ID, "image_data": testImageData(),
	}, http.StatusUnprocessableEntity)

	if len(imageStore.saved) != 1 {
		t.Fatalf("expected 1 saved image, got %d", len(imageStore.saved))
	}
	key := imageStore.saved[0]
	if len(imageStore.deleted) != 1 || imageStore.deleted[0] != key {
		t.Fatalf("rejected upload must be deleted, saved=%v deleted=%v", imageStore.saved, imageStore.deleted)
	}
	if _, err := imageStore.Load(key); !errors.Is(err, images.ErrImageNotFound) {
		t.Fatalf("payload must be gone, got %v", err)
	}

	// A committed drawing keeps its payload.
	session = env.applyOK(session.ID, "drawing", map[string]any{
		"player_id": ada.ID, "image_data": testImageData(),
	})
	if _, err := imageStore.Load(session.CurrentRound().Drawing.ImageKey); err != nil {
		t.Fatalf("committed payload must stay, got %v", err)
	}
	if len(imageStore.deleted) != 1 {
		t.Fatalf("committed upload must not be deleted, deleted=%v", imageStore.deleted)
	}
}

func TestEventErrorStatuses(t *testing.T) {
	env := newTestEnv(t)
	ada := env.registerPlayer("Ada")
	ben := env.registerPlayer("Ben")
	cat := env.registerPlayer("Cat")

	session := env.createSession(ada, 3, ben, cat)

	// Replayed invitation response is a state conflict.
	env.applyOK(session.ID, "invitation", map[string]any{"player_id": ben.ID, "accept": true})
	env.postAction(session.ID, "invitation", map[string]any{"player_id": ben.ID, "accept": true}, http.StatusConflict)

	env.applyOK(session.ID, "invitation", map[string]any{"player_id": cat.ID, "accept": true})
	env.applyOK(session.ID, "drawing", map[string]any{"player_id": ada.ID, "image_data": testImageData()})

	// The lead captioning their own drawing is a content violation.
	env.postAction(session.ID, "captions", map[string]any{"player_id": ada.ID, "text": "mine"}, http.StatusUnprocessableEntity)

	env.applyOK(session.ID, "captions", map[string]any{"player_id": ben.ID, "text": "one"})
	env.applyOK(session.ID, "captions", map[string]any{"player_id": cat.ID, "text": "two"})

	// A caption id from nowhere cannot win.
	env.postAction(session.ID, "winner", map[string]any{"player_id": ada.ID, "caption_id": "bogus"}, http.StatusUnprocessableEntity)

	// Unknown session and malformed bodies.
	env.postAction("no-such-session", "quit", map[string]any{"player_id": ada.ID}, http.StatusNotFound)
	env.postAction(session.ID, "captions", map[string]any{"player_id": ""}, http.StatusBadRequest)
	env.postAction(session.ID, "drawing", map[string]any{"player_id": ben.ID, "image_data": "%%%"}, http.StatusBadRequest)
}

func TestCreateSessionRequiresRegisteredPlayers(t *testing.T) {
	env := newTestEnv(t)
	ada := env.registerPlayer("Ada")

	resp := env.request(http.MethodPost, "/api/sessions", map[string]any{
		"initiator_id": "ghost",
		"invitee_ids":  []string{ada.ID},
	})
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = env.request(http.MethodPost, "/api/sessions", map[string]any{
		"initiator_id": ada.ID,
		"invitee_ids":  []string{"ghost"},
	})
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestQuitOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	ada := env.registerPlayer("Ada")
	ben := env.registerPlayer("Ben")

	session := env.createSession(ada, 3, ben)
	session = env.applyOK(session.ID, "invitation", map[string]any{
		"player_id": ben.ID, "accept": true,
	})
	session = env.applyOK(session.ID, "quit", map[string]any{"player_id": ben.ID})
	if session.Status != game.StatusGameOver {
		t.Fatalf("expected game_over after quit, got %s", session.Status)
	}
}
