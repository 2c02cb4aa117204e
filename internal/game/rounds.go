package game

import "time"

// Round content management. These functions enforce the per-round
// invariants on drawings and captions independent of the session status
// bookkeeping in transitions.go, so a direct caller gets the same
// guarantees the state machine does.

// CreateDrawing attaches the lead player's drawing to the current round.
func CreateDrawing(s *Session, playerID, imageKey string) (*Drawing, error) {
	lead := s.LeadPlayer()
	if lead == nil || lead.ID != playerID {
		return nil, ErrNotLeadPlayer
	}
	round := s.CurrentRound()
	if round == nil {
		return nil, errNoActiveRound
	}
	if round.Drawing != nil {
		return nil, ErrRoundAlreadyHasDrawing
	}
	round.Drawing = &Drawing{
		ID:        newID(),
		Author:    playerID,
		ImageKey:  imageKey,
		CreatedAt: time.Now().UTC(),
	}
	return round.Drawing, nil
}

// CreateCaption appends a caption to the drawing. Each non-lead player gets
// at most one caption per drawing.
func CreateCaption(s *Session, drawing *Drawing, playerID, text string) (*Caption, error) {
	if drawing.Author == playerID {
		return nil, ErrLeadPlayerCannotCaption
	}
	for _, caption := range drawing.Captions {
		if caption.Author == playerID {
			return nil, ErrDuplicateCaption
		}
	}
	drawing.Captions = append(drawing.Captions, Caption{
		ID:        newID(),
		Author:    playerID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
	return &drawing.Captions[len(drawing.Captions)-1], nil
}

// SelectWinner marks the chosen caption as the round winner and records the
// back-reference on the drawing. At most one caption per drawing ever wins.
func SelectWinner(drawing *Drawing, captionID string) (*Caption, error) {
	if drawing.WinningCaption != "" {
		return nil, ErrWinnerAlreadySelected
	}
	for i := range drawing.Captions {
		if drawing.Captions[i].Won {
			return nil, ErrWinnerAlreadySelected
		}
	}
	for i := range drawing.Captions {
		if drawing.Captions[i].ID == captionID {
			drawing.Captions[i].Won = true
			drawing.WinningCaption = captionID
			return &drawing.Captions[i], nil
		}
	}
	return nil, ErrCaptionNotFound
}
