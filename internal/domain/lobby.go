package domain

// LobbyPhase is the lifecycle stage of a room lobby.
type LobbyPhase string

const (
	// LobbyOpen indicates the room accepts joins and ready toggles.
	LobbyOpen LobbyPhase = "open"
	// LobbyStarting indicates the host triggered the start and the room is
	// handing off into a round.
	LobbyStarting LobbyPhase = "starting"
	// LobbyClosed indicates the room was torn down.
	LobbyClosed LobbyPhase = "closed"
)

// Player holds per-member room state.
type Player struct {
	UserID   string
	Username string
	Score    int
	Ready    bool
	IsHost   bool
}

// Lobby tracks room membership and ready consensus before a round starts.
// Join order is preserved for stable seat presentation.
type Lobby struct {
	Phase      LobbyPhase
	Players    map[string]*Player
	Order      []string // user ids in join order
	HostID     string
	MaxPlayers int
}

// NewLobby returns an open lobby for up to maxPlayers members.
func NewLobby(maxPlayers int) *Lobby {
	return &Lobby{
		Phase:      LobbyOpen,
		Players:    make(map[string]*Player),
		MaxPlayers: maxPlayers,
	}
}

// IsFull reports whether the room reached its configured capacity.
func (l *Lobby) IsFull() bool {
	return len(l.Players) >= l.MaxPlayers
}

// AllReady reports whether the room can start: every non-host member is ready
// and the player count equals the configured capacity. A single-player room
// is trivially ready once its host is present.
func (l *Lobby) AllReady() bool {
	if len(l.Players) != l.MaxPlayers {
		return false
	}
	if l.MaxPlayers == 1 {
		return true
	}
	for _, p := range l.Players {
		if p.IsHost {
			continue
		}
		if !p.Ready {
			return false
		}
	}
	return true
}

// Host returns the host player, if present.
func (l *Lobby) Host() (*Player, bool) {
	p, ok := l.Players[l.HostID]
	return p, ok
}

// Member returns the player for a user id.
func (l *Lobby) Member(userID string) (*Player, bool) {
	p, ok := l.Players[userID]
	return p, ok
}
