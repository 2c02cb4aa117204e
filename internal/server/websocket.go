package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"memething/internal/notify"

	"github.com/gorilla/websocket"
)

// wsHub tracks one connection per (session, player). Deliveries over the
// hub are advisory category events only; a client re-fetches the session
// over the API after each one.
type wsHub struct {
	mu       sync.Mutex
	sessions map[string]map[*websocket.Conn]string
}

func newWSHub() *wsHub {
	return &wsHub{
		sessions: make(map[string]map[*websocket.Conn]string),
	}
}

func (h *wsHub) Add(sessionID, playerID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.sessions[sessionID]
	if group == nil {
		group = make(map[*websocket.Conn]string)
		h.sessions[sessionID] = group
	}
	group[conn] = playerID
}

func (h *wsHub) Remove(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.sessions[sessionID]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.sessions, sessionID)
	}
}

// Notify delivers the advisory event to the notification's target players.
// An empty target set reaches every connection on the session.
func (h *wsHub) Notify(n notify.Notification) {
	h.mu.Lock()
	group := h.sessions[n.SessionID]
	conns := make([]*websocket.Conn, 0, len(group))
	for conn, playerID := range group {
		if len(n.Targets) == 0 || contains(n.Targets, playerID) {
			conns = append(conns, conn)
		}
	}
	h.mu.Unlock()

	data, err := json.Marshal(map[string]string{
		"session_id": n.SessionID,
		"category":   string(n.Category),
	})
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(n.SessionID, conn)
		}
	}
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseWebsocketPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if _, err := s.sessions.Fetch(sessionID); err != nil {
		http.NotFound(w, r)
		return
	}
	playerID := r.URL.Query().Get("player")
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected session_id=%s player_id=%s remote=%s", sessionID, playerID, r.RemoteAddr)
	s.ws.Add(sessionID, playerID, conn)
	// Initial advisory nudge so a freshly connected client fetches the
	// authoritative state it may have missed.
	s.ws.Notify(notify.Notification{
		SessionID: sessionID,
		Category:  notify.CategoryGameUpdate,
		Targets:   []string{playerID},
	})
	go s.readWS(sessionID, conn)
}

func (s *Server) readWS(sessionID string, conn *websocket.Conn) {
	defer s.ws.Remove(sessionID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("ws disconnected session_id=%s error=%v", sessionID, err)
			return
		}
	}
}
