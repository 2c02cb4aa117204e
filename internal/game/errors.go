package game

import (
	"errors"
	"fmt"
)

// Round content errors. These always indicate a caller logic bug, never a
// transient condition.
var (
	ErrNotLeadPlayer           = errors.New("player is not the lead player")
	ErrRoundAlreadyHasDrawing  = errors.New("round already has a drawing")
	ErrDuplicateCaption        = errors.New("player already captioned this drawing")
	ErrLeadPlayerCannotCaption = errors.New("lead player cannot caption their own drawing")
	ErrCaptionNotFound         = errors.New("caption does not belong to this drawing")
	ErrWinnerAlreadySelected   = errors.New("winner already selected for this drawing")
)

var errNoActiveRound = errors.New("session has no active round")

// InvalidTransitionError reports a transition whose guard was not met. The
// session is left untouched. Callers should treat this as a sign their view
// of the session is stale and re-fetch rather than retry.
type InvalidTransitionError struct {
	Status SessionStatus
	Event  string
	Guard  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: event %s in status %s: %s", e.Event, e.Status, e.Guard)
}

func invalidTransition(status SessionStatus, event, guard string) error {
	return &InvalidTransitionError{Status: status, Event: event, Guard: guard}
}

// IsInvalidTransition reports whether err is a guard failure.
func IsInvalidTransition(err error) bool {
	var e *InvalidTransitionError
	return errors.As(err, &e)
}
