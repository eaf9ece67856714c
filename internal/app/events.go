package app

import "github.com/wisitphol/gametest-3/internal/domain"

// EventKind identifies emitted app events for dispatch to the relay adapter.
type EventKind string

const (
	EventPlayerJoined   EventKind = "player_joined"
	EventPlayerLeft     EventKind = "player_left"
	EventReadyChanged   EventKind = "ready_changed"
	EventRoomClosed     EventKind = "room_closed"
	EventGameStarted    EventKind = "game_started"
	EventZetCalled      EventKind = "zet_called"
	EventClaimExpired   EventKind = "claim_expired"
	EventZetAvailable   EventKind = "zet_available"
	EventTripleMatched  EventKind = "triple_matched"
	EventTripleRejected EventKind = "triple_rejected"
	EventCardsDrawn     EventKind = "cards_drawn"
	EventDeckLow        EventKind = "deck_low"
	EventRoundEnded     EventKind = "round_ended"
)

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user ids; empty means broadcast to the room
}

type PlayerJoinedPayload struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	IsHost      bool   `json:"is_host"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
}

type PlayerLeftPayload struct {
	UserID      string `json:"user_id"`
	PlayerCount int    `json:"player_count"`
}

type ReadyChangedPayload struct {
	UserID   string `json:"user_id"`
	Ready    bool   `json:"ready"`
	AllReady bool   `json:"all_ready"`
}

type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

// PlayerSummary mirrors one member's public state.
type PlayerSummary struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type GameStartedPayload struct {
	Board         []domain.Card   `json:"board"`
	DeckRemaining int             `json:"deck_remaining"`
	RoundSeconds  float64         `json:"round_seconds"`
	Players       []PlayerSummary `json:"players"`
}

type ZetCalledPayload struct {
	UserID        string  `json:"user_id"`
	WindowSeconds float64 `json:"window_seconds"`
}

type ClaimExpiredPayload struct {
	CooldownSeconds float64 `json:"cooldown_seconds"`
}

type TripleMatchedPayload struct {
	UserID     string        `json:"user_id"`
	Cards      []domain.Card `json:"cards"`
	Score      int           `json:"score"`
	TotalScore int           `json:"total_score"`
}

type TripleRejectedPayload struct {
	UserID string        `json:"user_id"`
	Cards  []domain.Card `json:"cards"`
}

type CardsDrawnPayload struct {
	Cards         []domain.Card `json:"cards"`
	DeckRemaining int           `json:"deck_remaining"`
}

type DeckLowPayload struct {
	DeckRemaining int `json:"deck_remaining"`
}

type RoundEndedPayload struct {
	Standings []PlayerSummary `json:"standings"`
}
