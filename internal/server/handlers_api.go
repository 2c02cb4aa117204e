package server

import (
	"errors"
	"log"
	"net/http"

	"memething/internal/game"
	"memething/internal/resolver"
	"memething/internal/roster"
	"memething/internal/store"
)

type registerPlayerRequest struct {
	Name string `json:"name"`
}

type createSessionRequest struct {
	InitiatorID string   `json:"initiator_id"`
	InviteeIDs  []string `json:"invitee_ids"`
	PointsToWin int      `json:"points_to_win"`
}

type invitationRequest struct {
	PlayerID string `json:"player_id"`
	Accept   bool   `json:"accept"`
}

type drawingRequest struct {
	PlayerID  string `json:"player_id"`
	ImageData string `json:"image_data"`
}

type captionRequest struct {
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
}

type winnerRequest struct {
	PlayerID  string `json:"player_id"`
	CaptionID string `json:"caption_id"`
}

type quitRequest struct {
	PlayerID string `json:"player_id"`
}

func (s *Server) handleRegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var req registerPlayerRequest
	if err := readJSON(r.Body, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	player := s.roster.Register(req.Name)
	log.Printf("player registered player_id=%s", player.ID)
	writeJSON(w, http.StatusCreated, player)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	initiator, err := s.roster.ResolvePlayer(req.InitiatorID)
	if err != nil {
		writeError(w, http.StatusNotFound, "initiator is not a registered player")
		return
	}
	invitees := make([]game.Participant, 0, len(req.InviteeIDs))
	for _, id := range req.InviteeIDs {
		invitee, err := s.roster.ResolvePlayer(id)
		if err != nil {
			writeError(w, http.StatusNotFound, "invitee is not a registered player")
			return
		}
		invitees = append(invitees, game.Participant{ID: invitee.ID, Name: invitee.DisplayName})
	}
	pointsToWin := req.PointsToWin
	if pointsToWin <= 0 {
		pointsToWin = s.cfg.PointsToWin
	}

	session, err := s.resolver.SyncCreate(game.CreateSession{
		Initiator:   game.Participant{ID: initiator.ID, Name: initiator.DisplayName},
		Invitees:    invitees,
		PointsToWin: pointsToWin,
		MinPlayers:  s.cfg.MinPlayers,
	})
	if err != nil {
		s.writeEventError(w, err)
		return
	}
	log.Printf("session created session_id=%s players=%d points_to_win=%d",
		session.ID, len(session.Players), session.PointsToWin)
	writeJSON(w, http.StatusCreated, session)
	s.publish("", session, initiator.ID)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "player query parameter is required")
		return
	}
	list, err := s.sessions.ListByPlayer(playerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": list,
	})
}

func (s *Server) handleSessionSubroutes(w http.ResponseWriter, r *http.Request) {
	sessionID, action, ok := parseSessionPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if action == "" {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, sessionID)
		case http.MethodDelete:
			s.handleDeleteSession(w, r, sessionID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch action {
	case "invitation":
		s.handleInvitation(w, r, sessionID)
	case "drawing":
		s.handleDrawing(w, r, sessionID)
	case "captions":
		s.handleCaption(w, r, sessionID)
	case "winner":
		s.handleWinner(w, r, sessionID)
	case "next-round":
		s.handleNextRound(w, r, sessionID)
	case "quit":
		s.handleQuit(w, r, sessionID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := s.sessions.Fetch(sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := s.sessions.Fetch(sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch session")
		return
	}
	if err := s.resolver.SyncDelete(sessionID); err != nil {
		s.writeEventError(w, err)
		return
	}
	// The session owned its drawings; their payloads go with it.
	for _, round := range session.Rounds {
		if round.Drawing != nil && round.Drawing.ImageKey != "" {
			if err := s.images.Delete(round.Drawing.ImageKey); err != nil {
				log.Printf("image delete failed session_id=%s key=%s error=%v",
					sessionID, round.Drawing.ImageKey, err)
			}
		}
	}
	log.Printf("session deleted session_id=%s", sessionID)
	w.WriteHeader(http.StatusNoContent)
	s.publishEnded(sessionID)
}

func (s *Server) handleInvitation(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req invitationRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	s.applyEvent(w, sessionID, game.RespondToInvitation{
		Player: req.PlayerID,
		Accept: req.Accept,
	}, req.PlayerID)
}

func (s *Server) handleDrawing(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req drawingRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	image, err := decodeImageData(req.ImageData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image_data is not valid base64 image data")
		return
	}
	key, err := s.images.Save(image)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	ok := s.applyEvent(w, sessionID, game.SubmitDrawing{
		Player:   req.PlayerID,
		ImageKey: key,
	}, req.PlayerID)
	if !ok {
		// The event never committed, so the payload has no owner.
		if err := s.images.Delete(key); err != nil {
			log.Printf("orphaned image cleanup failed key=%s error=%v", key, err)
		}
	}
}

func (s *Server) handleCaption(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req captionRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	s.applyEvent(w, sessionID, game.SubmitCaption{
		Player: req.PlayerID,
		Text:   req.Text,
	}, req.PlayerID)
}

func (s *Server) handleWinner(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req winnerRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID == "" || req.CaptionID == "" {
		writeError(w, http.StatusBadRequest, "player_id and caption_id are required")
		return
	}
	s.applyEvent(w, sessionID, game.ChooseWinner{
		Player:    req.PlayerID,
		CaptionID: req.CaptionID,
	}, req.PlayerID)
}

func (s *Server) handleNextRound(w http.ResponseWriter, r *http.Request, sessionID string) {
	s.applyEvent(w, sessionID, game.StartNextRound{}, "")
}

func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req quitRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	s.applyEvent(w, sessionID, game.Quit{Player: req.PlayerID}, req.PlayerID)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	key, ok := parseImagePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data, err := s.images.Load(key)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// applyEvent routes one player action through the resolver and publishes
// the committed transition. It reports whether the event committed.
func (s *Server) applyEvent(w http.ResponseWriter, sessionID string, ev game.Event, actor string) bool {
	prior, err := s.sessions.Fetch(sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return false
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch session")
		return false
	}

	session, err := s.resolver.SyncWrite(sessionID, ev)
	if err != nil {
		s.writeEventError(w, err)
		return false
	}
	log.Printf("event applied session_id=%s event=%s status=%s version=%d",
		sessionID, ev.Name(), session.Status, session.Version)
	writeJSON(w, http.StatusOK, session)
	s.publish(prior.Status, session, actor)
	return true
}

// writeEventError maps the error taxonomy onto HTTP statuses. Guard
// failures and retry exhaustion are concurrency signals (409); round
// content violations are caller logic errors (422).
func (s *Server) writeEventError(w http.ResponseWriter, err error) {
	var invalid *game.InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusConflict, invalid.Error())
	case errors.Is(err, resolver.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, roster.ErrUnknownPlayer):
		writeError(w, http.StatusNotFound, "unknown player")
	case errors.Is(err, game.ErrNotLeadPlayer),
		errors.Is(err, game.ErrRoundAlreadyHasDrawing),
		errors.Is(err, game.ErrDuplicateCaption),
		errors.Is(err, game.ErrLeadPlayerCannotCaption),
		errors.Is(err, game.ErrCaptionNotFound),
		errors.Is(err, game.ErrWinnerAlreadySelected):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("store error error=%v", err)
		writeError(w, http.StatusInternalServerError, "store error")
	}
}
