package game

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the session-level lifecycle state.
type SessionStatus string

const (
	StatusWaitingForPlayers   SessionStatus = "waiting_for_players"
	StatusWaitingForDrawing   SessionStatus = "waiting_for_drawing"
	StatusWaitingForCaptions  SessionStatus = "waiting_for_captions"
	StatusWaitingForResult    SessionStatus = "waiting_for_result"
	StatusWaitingForNextRound SessionStatus = "waiting_for_next_round"
	StatusGameOver            SessionStatus = "game_over"
)

// PlayerStatus tracks a single player's progress within the session.
type PlayerStatus string

const (
	PlayerInvited     PlayerStatus = "invited"
	PlayerAccepted    PlayerStatus = "accepted"
	PlayerDenied      PlayerStatus = "denied"
	PlayerQuit        PlayerStatus = "quit"
	PlayerSentDrawing PlayerStatus = "sent_drawing"
	PlayerSentCaption PlayerStatus = "sent_caption"
	// PlayerReady marks a player waiting on the new round's drawing. It is
	// distinct from PlayerInvited so an invitation response can never be
	// confused with a round reset.
	PlayerReady PlayerStatus = "ready"
)

// PlayerEntry is one player's record within a session. Keeping id, status
// and points in a single ordered sequence means the three can never drift
// out of index alignment.
type PlayerEntry struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Status PlayerStatus `json:"status"`
	Points int          `json:"points"`
}

// Session is one complete match from invitation to game over. Players[0] is
// always the lead player for the active round; the slice order changes only
// through lead rotation.
type Session struct {
	ID          string        `json:"id"`
	Players     []PlayerEntry `json:"players"`
	PointsToWin int           `json:"points_to_win"`
	MinPlayers  int           `json:"min_players"`
	Status      SessionStatus `json:"status"`
	Rounds      []Round       `json:"rounds"`
	CreatedAt   time.Time     `json:"created_at"`
	Version     int64         `json:"version"`
}

// Round pairs the lead player's drawing with the captions submitted
// against it. Rounds are append-only.
type Round struct {
	Number  int      `json:"number"`
	Drawing *Drawing `json:"drawing,omitempty"`
}

// Drawing is the image artifact submitted by the lead player each round.
// Immutable after creation except for the winning-caption back-reference.
type Drawing struct {
	ID             string    `json:"id"`
	Author         string    `json:"author"`
	ImageKey       string    `json:"image_key"`
	WinningCaption string    `json:"winning_caption,omitempty"`
	Captions       []Caption `json:"captions"`
	CreatedAt      time.Time `json:"created_at"`
}

// Caption is a text submission by a non-lead player against the current
// round's drawing.
type Caption struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Won       bool      `json:"won"`
	CreatedAt time.Time `json:"created_at"`
}

func newID() string {
	return uuid.NewString()
}

// CurrentRound returns the active round, or nil before the first round
// starts.
func (s *Session) CurrentRound() *Round {
	if len(s.Rounds) == 0 {
		return nil
	}
	return &s.Rounds[len(s.Rounds)-1]
}

// LeadPlayer returns the lead player for the active round.
func (s *Session) LeadPlayer() *PlayerEntry {
	if len(s.Players) == 0 {
		return nil
	}
	return &s.Players[0]
}

// FindPlayer returns the entry for the given player id.
func (s *Session) FindPlayer(playerID string) (*PlayerEntry, bool) {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			return &s.Players[i], true
		}
	}
	return nil, false
}

// AllPlayersResponded reports whether every invitation has been answered.
func (s *Session) AllPlayersResponded() bool {
	for _, p := range s.Players {
		if p.Status == PlayerInvited {
			return false
		}
	}
	return true
}

// AllCaptionsSubmitted reports whether every active player has contributed
// to the round: the lead sent the drawing and everyone else a caption.
func (s *Session) AllCaptionsSubmitted() bool {
	for _, p := range s.Players {
		switch p.Status {
		case PlayerDenied, PlayerQuit:
			continue
		case PlayerSentDrawing, PlayerSentCaption:
			continue
		default:
			return false
		}
	}
	return true
}

// ActivePlayerCount counts players still participating.
func (s *Session) ActivePlayerCount() int {
	count := 0
	for _, p := range s.Players {
		if p.Status != PlayerDenied && p.Status != PlayerQuit {
			count++
		}
	}
	return count
}

// AcceptedPlayerCount counts players who accepted the invitation.
func (s *Session) AcceptedPlayerCount() int {
	count := 0
	for _, p := range s.Players {
		if p.Status == PlayerAccepted {
			count++
		}
	}
	return count
}

// Winner returns the winning player once one has reached the points
// threshold. Ties break on higher points, then on player order.
func (s *Session) Winner() (PlayerEntry, bool) {
	best := -1
	for i, p := range s.Players {
		if p.Points < s.PointsToWin {
			continue
		}
		if best == -1 || p.Points > s.Players[best].Points {
			best = i
		}
	}
	if best == -1 {
		return PlayerEntry{}, false
	}
	return s.Players[best], true
}

// Terminal reports whether the session has ended.
func (s *Session) Terminal() bool {
	return s.Status == StatusGameOver
}

// Clone returns a deep copy of the session. Transitions operate on clones
// so a failed guard never leaves a half-mutated state behind.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Players = make([]PlayerEntry, len(s.Players))
	copy(out.Players, s.Players)
	out.Rounds = make([]Round, len(s.Rounds))
	for i, round := range s.Rounds {
		out.Rounds[i] = round
		if round.Drawing != nil {
			drawing := *round.Drawing
			drawing.Captions = make([]Caption, len(round.Drawing.Captions))
			copy(drawing.Captions, round.Drawing.Captions)
			out.Rounds[i].Drawing = &drawing
		}
	}
	return &out
}
