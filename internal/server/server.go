package server

import (
	"net/http"

	"memething/internal/config"
	"memething/internal/game"
	"memething/internal/images"
	"memething/internal/notify"
	"memething/internal/resolver"
	"memething/internal/roster"
	"memething/internal/store"
)

type Server struct {
	cfg        config.Config
	sessions   store.SessionStore
	resolver   *resolver.Resolver
	roster     *roster.MemoryProvider
	images     images.Store
	dispatcher *notify.Dispatcher
	ws         *wsHub
}

func New(sessions store.SessionStore, imageStore images.Store, cfg config.Config) *Server {
	return &Server{
		cfg:        cfg,
		sessions:   sessions,
		resolver:   resolver.New(sessions, cfg.SyncMaxAttempts),
		roster:     roster.NewMemoryProvider(),
		images:     imageStore,
		dispatcher: notify.NewDispatcher(sessions),
		ws:         newWSHub(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/players", s.handleRegisterPlayer)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/", s.handleSessionSubroutes)
	mux.HandleFunc("POST /api/sessions/", s.handleSessionSubroutes)
	mux.HandleFunc("DELETE /api/sessions/", s.handleSessionSubroutes)
	mux.HandleFunc("GET /api/images/", s.handleImage)
	mux.HandleFunc("GET /ws/sessions/", s.handleWebsocket)
	return mux
}

// OnSessionChanged registers an in-process handler for one session's
// re-fetch triggers, for callers embedding the server rather than
// connecting over websocket.
func (s *Server) OnSessionChanged(sessionID string, fn notify.Handler) func() {
	return s.dispatcher.OnSessionChanged(sessionID, fn)
}

// publish fans a committed transition out: the dispatch plan decides the
// categories and target players, the websocket hub carries the advisory
// events, and local handlers get the same delivery.
func (s *Server) publish(before game.SessionStatus, session *game.Session, actor string) {
	for _, notification := range notify.Plan(before, session, actor) {
		s.ws.Notify(notification)
		s.dispatcher.Deliver(notification.SessionID, notification.Category)
	}
}

func (s *Server) publishEnded(sessionID string) {
	notification := notify.Notification{
		SessionID: sessionID,
		Category:  notify.CategoryGameEnded,
	}
	s.ws.Notify(notification)
	s.dispatcher.Deliver(sessionID, notify.CategoryGameEnded)
}
