package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"memething/internal/config"
	"memething/internal/game"
	"memething/internal/images"
	"memething/internal/roster"
	"memething/internal/store"
)

type testEnv struct {
	t        *testing.T
	server   *Server
	http     *httptest.Server
	sessions *store.MemoryStore
	images   images.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithImages(t, images.NewMemoryStore())
}

func newTestEnvWithImages(t *testing.T, imageStore images.Store) *testEnv {
	t.Helper()
	sessions := store.NewMemoryStore()
	srv := New(sessions, imageStore, config.Default())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{
		t:        t,
		server:   srv,
		http:     ts,
		sessions: sessions,
		images:   imageStore,
	}
}

func (e *testEnv) request(method, path string, body any) *http.Response {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.http.URL+path, reader)
	if err != nil {
		e.t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}

func (e *testEnv) registerPlayer(name string) roster.Player {
	e.t.Helper()
	resp := e.request(http.MethodPost, "/api/players", map[string]string{"name": name})
	expectStatus(e.t, resp, http.StatusCreated)
	return decodeBody[roster.Player](e.t, resp)
}

func (e *testEnv) createSession(initiator roster.Player, pointsToWin int, invitees ...roster.Player) game.Session {
	e.t.Helper()
	ids := make([]string, 0, len(invitees))
	for _, p := range invitees {
		ids = append(ids, p.ID)
	}
	resp := e.request(http.MethodPost, "/api/sessions", map[string]any{
		"initiator_id":  initiator.ID,
		"invitee_ids":   ids,
		"points_to_win": pointsToWin,
	})
	expectStatus(e.t, resp, http.StatusCreated)
	return decodeBody[game.Session](e.t, resp)
}

func (e *testEnv) postAction(sessionID, action string, body any, wantStatus int) *http.Response {
	e.t.Helper()
	resp := e.request(http.MethodPost, "/api/sessions/"+sessionID+"/"+action, body)
	expectStatus(e.t, resp, wantStatus)
	return resp
}

func (e *testEnv) applyOK(sessionID, action string, body any) game.Session {
	e.t.Helper()
	resp := e.postAction(sessionID, action, body, http.StatusOK)
	return decodeBody[game.Session](e.t, resp)
}

func testImageData() string {
	return base64.StdEncoding.EncodeToString([]byte("not really a png"))
}
