package game

import (
	"fmt"
	"time"
)

// Defaults for session settings. Both are configurable at creation; the
// minimum player count in particular is a deliberate setting, not a
// hardcoded rule.
const (
	DefaultPointsToWin = 3
	DefaultMinPlayers  = 2
)

// Apply computes the next session state for an event. It works on a deep
// copy, so the input session is never mutated: on any error the caller's
// state is exactly what it was. A guard failure is returned as
// *InvalidTransitionError and usually means the caller's view is stale,
// because a concurrent update advanced the session first.
func Apply(s *Session, ev Event) (*Session, error) {
	if create, ok := ev.(CreateSession); ok {
		if s != nil {
			return nil, invalidTransition(s.Status, ev.Name(), "session already exists")
		}
		return applyCreate(create)
	}
	if s == nil {
		return nil, invalidTransition("", ev.Name(), "session does not exist")
	}

	next := s.Clone()
	var err error
	switch event := ev.(type) {
	case RespondToInvitation:
		err = applyRespond(next, event)
	case SubmitDrawing:
		err = applySubmitDrawing(next, event)
	case SubmitCaption:
		err = applySubmitCaption(next, event)
	case ChooseWinner:
		err = applyChooseWinner(next, event)
	case StartNextRound:
		err = applyStartNextRound(next)
	case Quit:
		err = applyQuit(next, event)
	default:
		err = invalidTransition(next.Status, ev.Name(), "unknown event")
	}
	if err != nil {
		return nil, err
	}
	return next, nil
}

func applyCreate(ev CreateSession) (*Session, error) {
	if ev.Initiator.ID == "" {
		return nil, invalidTransition("", ev.Name(), "initiator is required")
	}
	if len(ev.Invitees) == 0 {
		return nil, invalidTransition("", ev.Name(), "at least one invitee is required")
	}
	pointsToWin := ev.PointsToWin
	if pointsToWin <= 0 {
		pointsToWin = DefaultPointsToWin
	}
	minPlayers := ev.MinPlayers
	if minPlayers < 2 {
		minPlayers = DefaultMinPlayers
	}

	players := make([]PlayerEntry, 0, len(ev.Invitees)+1)
	players = append(players, PlayerEntry{
		ID:     ev.Initiator.ID,
		Name:   ev.Initiator.Name,
		Status: PlayerAccepted,
	})
	for _, invitee := range ev.Invitees {
		if invitee.ID == ev.Initiator.ID {
			return nil, invalidTransition("", ev.Name(), "initiator cannot be invited")
		}
		players = append(players, PlayerEntry{
			ID:     invitee.ID,
			Name:   invitee.Name,
			Status: PlayerInvited,
		})
	}

	return &Session{
		ID:          newID(),
		Players:     players,
		PointsToWin: pointsToWin,
		MinPlayers:  minPlayers,
		Status:      StatusWaitingForPlayers,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func applyRespond(s *Session, ev RespondToInvitation) error {
	if s.Status != StatusWaitingForPlayers {
		return invalidTransition(s.Status, ev.Name(), "session is not waiting for players")
	}
	player, ok := s.FindPlayer(ev.Player)
	if !ok {
		return invalidTransition(s.Status, ev.Name(), "player is not part of the session")
	}
	if player.Status != PlayerInvited {
		return invalidTransition(s.Status, ev.Name(), "player has already responded")
	}
	if ev.Accept {
		player.Status = PlayerAccepted
	} else {
		player.Status = PlayerDenied
	}
	if !s.AllPlayersResponded() {
		return nil
	}
	if s.AcceptedPlayerCount() < s.MinPlayers {
		s.Status = StatusGameOver
		return nil
	}
	startRound(s)
	return nil
}

func applySubmitDrawing(s *Session, ev SubmitDrawing) error {
	if s.Status != StatusWaitingForDrawing {
		return invalidTransition(s.Status, ev.Name(), "session is not waiting for a drawing")
	}
	if _, err := CreateDrawing(s, ev.Player, ev.ImageKey); err != nil {
		return err
	}
	s.Players[0].Status = PlayerSentDrawing
	s.Status = StatusWaitingForCaptions
	return nil
}

func applySubmitCaption(s *Session, ev SubmitCaption) error {
	if s.Status != StatusWaitingForCaptions {
		return invalidTransition(s.Status, ev.Name(), "session is not waiting for captions")
	}
	player, ok := s.FindPlayer(ev.Player)
	if !ok {
		return invalidTransition(s.Status, ev.Name(), "player is not part of the session")
	}
	switch player.Status {
	case PlayerSentCaption:
		return invalidTransition(s.Status, ev.Name(), "player already submitted a caption")
	case PlayerDenied, PlayerQuit:
		return invalidTransition(s.Status, ev.Name(), "player is no longer active")
	}
	round := s.CurrentRound()
	if round == nil || round.Drawing == nil {
		return invalidTransition(s.Status, ev.Name(), "round has no drawing")
	}
	if _, err := CreateCaption(s, round.Drawing, ev.Player, ev.Text); err != nil {
		return err
	}
	player.Status = PlayerSentCaption
	if s.AllCaptionsSubmitted() {
		s.Status = StatusWaitingForResult
	}
	return nil
}

func applyChooseWinner(s *Session, ev ChooseWinner) error {
	if s.Status != StatusWaitingForResult {
		return invalidTransition(s.Status, ev.Name(), "session is not waiting for a result")
	}
	if lead := s.LeadPlayer(); lead == nil || lead.ID != ev.Player {
		return invalidTransition(s.Status, ev.Name(), "only the lead player picks the winner")
	}
	round := s.CurrentRound()
	if round == nil || round.Drawing == nil {
		return invalidTransition(s.Status, ev.Name(), "round has no drawing")
	}
	caption, err := SelectWinner(round.Drawing, ev.CaptionID)
	if err != nil {
		return err
	}
	winner, ok := s.FindPlayer(caption.Author)
	if !ok {
		return fmt.Errorf("caption author %s is not part of the session", caption.Author)
	}
	winner.Points++
	if _, done := s.Winner(); done {
		s.Status = StatusGameOver
	} else {
		s.Status = StatusWaitingForNextRound
	}
	return nil
}

func applyStartNextRound(s *Session) error {
	if s.Status != StatusWaitingForNextRound {
		return invalidTransition(s.Status, StartNextRound{}.Name(), "session is not between rounds")
	}
	rotateLead(s)
	for i := range s.Players {
		switch s.Players[i].Status {
		case PlayerDenied, PlayerQuit:
		default:
			s.Players[i].Status = PlayerReady
		}
	}
	startRound(s)
	return nil
}

func applyQuit(s *Session, ev Quit) error {
	if s.Terminal() {
		return invalidTransition(s.Status, ev.Name(), "session has ended")
	}
	player, ok := s.FindPlayer(ev.Player)
	if !ok {
		return invalidTransition(s.Status, ev.Name(), "player is not part of the session")
	}
	if player.Status == PlayerQuit || player.Status == PlayerDenied {
		return invalidTransition(s.Status, ev.Name(), "player already left the session")
	}
	wasLead := s.Players[0].ID == ev.Player
	player.Status = PlayerQuit
	if s.ActivePlayerCount() < 2 {
		s.Status = StatusGameOver
		return nil
	}
	// A quit lead would leave nobody able to draw or pick the winner, so
	// the lead role passes to the next active player immediately.
	if wasLead {
		rotateLead(s)
	}
	// A quitter may have been the last player everyone was waiting on.
	if s.Status == StatusWaitingForCaptions && s.AllCaptionsSubmitted() {
		s.Status = StatusWaitingForResult
	}
	return nil
}

// startRound appends a fresh round and moves the session to the drawing
// phase. The head of the player order may have denied or quit since it was
// set, so the lead role is handed on before the round opens.
func startRound(s *Session) {
	if lead := s.LeadPlayer(); lead != nil && (lead.Status == PlayerDenied || lead.Status == PlayerQuit) {
		rotateLead(s)
	}
	s.Rounds = append(s.Rounds, Round{Number: len(s.Rounds) + 1})
	s.Status = StatusWaitingForDrawing
}

// rotateLead moves the current lead player to the back of the order. The
// next active player becomes lead; denied and quit players are skipped by
// rotating again so Players[0] always names a participant who can draw.
func rotateLead(s *Session) {
	if len(s.Players) < 2 {
		return
	}
	for range s.Players {
		s.Players = append(s.Players[1:], s.Players[0])
		lead := s.Players[0]
		if lead.Status != PlayerDenied && lead.Status != PlayerQuit {
			return
		}
	}
}
