package nakama

const (
	// RpcCreateRoom creates a private room and returns its code.
	RpcCreateRoom = "create_room"
	// RpcJoinRoom resolves a room code to a joinable match id.
	RpcJoinRoom = "join_room"
	// RpcQuickMatch finds or creates a public lobby-phase room.
	RpcQuickMatch = "quick_match"
	// RpcRejoinToken issues a signed token for rejoining a running room.
	RpcRejoinToken = "rejoin_token"

	// MatchNameRGBZet is the authoritative match handler name registered with Nakama.
	MatchNameRGBZet = "rgbzet_match"

	// StorageCollectionRooms is the storage collection holding room discovery
	// documents, keyed by room code.
	StorageCollectionRooms = "withfriends"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpToggleReady  int64 = 1
	OpStartGame    int64 = 2
	OpCallZet      int64 = 3
	OpSubmitTriple int64 = 4
	OpDrawCards    int64 = 5

	// Server -> Client events
	OpPlayerJoined   int64 = 101
	OpPlayerLeft     int64 = 102
	OpReadyChanged   int64 = 103
	OpGameStarted    int64 = 104
	OpZetCalled      int64 = 105
	OpClaimExpired   int64 = 106
	OpZetAvailable   int64 = 107
	OpTripleMatched  int64 = 108
	OpTripleRejected int64 = 109
	OpCardsDrawn     int64 = 110
	OpDeckLow        int64 = 111
	OpTimerSync      int64 = 112
	OpRoundEnded     int64 = 113
	OpRoomClosed     int64 = 114
	OpGameError      int64 = 120
)
