// Package roster supplies stable player identities and display names. The
// session engine treats it as a read-only lookup; account management lives
// elsewhere.
package roster

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownPlayer means the id does not resolve to a registered player.
var ErrUnknownPlayer = errors.New("unknown player")

// Player is the identity the engine needs: an opaque stable id and a name
// to show other players.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Provider resolves player ids to identities.
type Provider interface {
	ResolvePlayer(id string) (Player, error)
}

// MemoryProvider is a Provider backed by an in-process map, seeded through
// Register.
type MemoryProvider struct {
	mu      sync.Mutex
	players map[string]Player
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{players: make(map[string]Player)}
}

// Register creates a new player identity.
func (m *MemoryProvider) Register(displayName string) Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	player := Player{ID: uuid.NewString(), DisplayName: displayName}
	m.players[player.ID] = player
	return player
}

func (m *MemoryProvider) ResolvePlayer(id string) (Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	player, ok := m.players[id]
	if !ok {
		return Player{}, ErrUnknownPlayer
	}
	return player, nil
}
