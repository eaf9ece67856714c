package ports

import "context"

// PlayerRecord mirrors one member's public state in the room document.
type PlayerRecord struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

// RoomRecord is the discovery document kept per room code. It is never
// authoritative for gameplay; the in-memory room state is.
type RoomRecord struct {
	RoomCode string                  `json:"room_code"`
	Mode     string                  `json:"mode"`
	MatchID  string                  `json:"match_id"`
	Players  map[string]PlayerRecord `json:"players"`
}

// RoomStorePort defines the document-store interface for room discovery
// metadata. Implementations are best-effort: callers log failures and keep
// playing from in-memory state.
type RoomStorePort interface {
	// SaveRoom writes the full room record under its room code.
	SaveRoom(ctx context.Context, record RoomRecord) error

	// UpdatePlayer upserts a single player mirror inside the room record.
	UpdatePlayer(ctx context.Context, roomCode, playerKey string, record PlayerRecord) error

	// GetRoom reads a room record; ok is false when the code is unknown.
	GetRoom(ctx context.Context, roomCode string) (RoomRecord, bool, error)

	// RemoveRoom deletes the room record on teardown.
	RemoveRoom(ctx context.Context, roomCode string) error
}
