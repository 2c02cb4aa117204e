package game

// Event is a single player action against a session. Events are explicit
// values consumed by Apply; transport and notification layers never mutate
// session state directly.
type Event interface {
	Name() string
}

// Participant identifies a player being placed into a new session.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateSession starts a new session. The initiator becomes the first lead
// player; invitees must still respond.
type CreateSession struct {
	Initiator   Participant
	Invitees    []Participant
	PointsToWin int
	MinPlayers  int
}

// RespondToInvitation accepts or declines an invitation.
type RespondToInvitation struct {
	Player string
	Accept bool
}

// SubmitDrawing records the lead player's drawing for the current round.
// ImageKey is the opaque reference returned by image storage.
type SubmitDrawing struct {
	Player   string
	ImageKey string
}

// SubmitCaption adds a caption from a non-lead player.
type SubmitCaption struct {
	Player string
	Text   string
}

// ChooseWinner marks the winning caption for the current round.
type ChooseWinner struct {
	Player    string
	CaptionID string
}

// StartNextRound rotates the lead player and opens a fresh round.
type StartNextRound struct{}

// Quit removes a player from further participation.
type Quit struct {
	Player string
}

func (CreateSession) Name() string       { return "create_session" }
func (RespondToInvitation) Name() string { return "respond_to_invitation" }
func (SubmitDrawing) Name() string       { return "submit_drawing" }
func (SubmitCaption) Name() string       { return "submit_caption" }
func (ChooseWinner) Name() string        { return "choose_winner" }
func (StartNextRound) Name() string      { return "start_next_round" }
func (Quit) Name() string                { return "quit" }
