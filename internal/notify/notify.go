// Package notify maps committed session transitions to the notification
// categories other players must receive, and turns inbound delivery events
// back into re-fetch triggers. Notifications are advisory only: the
// transport guarantees neither delivery nor payload completeness, so a
// delivery never carries state, it only tells a client to fetch the
// authoritative record.
package notify

import "memething/internal/game"

// Category names one kind of player-facing notification.
type Category string

const (
	CategoryNewInvitation Category = "NEW_GAME_INVITATION"
	CategoryGameUpdate    Category = "GAME_UPDATE"
	CategoryResultUpdate  Category = "RESULT_UPDATE"
	CategoryGameEnded     Category = "GAME_ENDED"
)

// Notification is one outbound delivery request: a category plus the
// players it should reach.
type Notification struct {
	SessionID string   `json:"session_id"`
	Category  Category `json:"category"`
	Targets   []string `json:"targets"`
}

// Plan returns the notifications a committed transition must fire. The
// actor who caused the transition is never a target; they already know.
func Plan(before game.SessionStatus, session *game.Session, actor string) []Notification {
	if session == nil {
		return nil
	}
	var out []Notification

	if before == "" {
		// Session creation: only the invited players need to hear about it.
		if targets := playersWithStatus(session, game.PlayerInvited); len(targets) > 0 {
			out = append(out, Notification{
				SessionID: session.ID,
				Category:  CategoryNewInvitation,
				Targets:   targets,
			})
		}
		return out
	}

	if before == game.StatusWaitingForResult &&
		(session.Status == game.StatusWaitingForNextRound || session.Status == game.StatusGameOver) {
		out = append(out, Notification{
			SessionID: session.ID,
			Category:  CategoryResultUpdate,
			Targets:   otherPlayers(session, actor),
		})
		// The result is the whole signal for this transition; only a game
		// ending adds anything on top.
		if session.Status == game.StatusWaitingForNextRound {
			return out
		}
	}

	if session.Status == game.StatusGameOver {
		out = append(out, Notification{
			SessionID: session.ID,
			Category:  CategoryGameEnded,
			Targets:   otherPlayers(session, actor),
		})
		return out
	}

	out = append(out, Notification{
		SessionID: session.ID,
		Category:  CategoryGameUpdate,
		Targets:   otherPlayers(session, actor),
	})
	return out
}

func playersWithStatus(session *game.Session, status game.PlayerStatus) []string {
	var ids []string
	for _, p := range session.Players {
		if p.Status == status {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func otherPlayers(session *game.Session, actor string) []string {
	var ids []string
	for _, p := range session.Players {
		if p.ID == actor {
			continue
		}
		if p.Status == game.PlayerDenied || p.Status == game.PlayerQuit {
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids
}
