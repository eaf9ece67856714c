package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/wisitphol/gametest-3/internal/app"
)

// roomCodeLength is the length of the shareable room code shown to players.
const roomCodeLength = 6

// NewRoomCode generates a short shareable room code.
func NewRoomCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:roomCodeLength])
}

// CreateRoomRequest is the payload for RpcCreateRoom.
type CreateRoomRequest struct {
	MaxPlayers int    `json:"max_players"`
	Mode       string `json:"mode"`
}

// CreateRoomResponse returns the new room's match id and shareable code.
type CreateRoomResponse struct {
	MatchID  string `json:"match_id"`
	RoomCode string `json:"room_code"`
}

// JoinRoomRequest is the payload for RpcJoinRoom.
type JoinRoomRequest struct {
	RoomCode    string `json:"room_code"`
	RejoinToken string `json:"rejoin_token,omitempty"`
}

// JoinRoomResponse resolves a room code to a joinable match.
type JoinRoomResponse struct {
	MatchID string `json:"match_id"`
	Phase   string `json:"phase"`
}

// QuickMatchResponse is returned to clients requesting a public room.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RejoinTokenRequest is the payload for RpcRejoinToken.
type RejoinTokenRequest struct {
	RoomCode string `json:"room_code"`
}

// RejoinTokenResponse carries the signed rejoin token.
type RejoinTokenResponse struct {
	Token string `json:"token"`
}

func rpcCreateRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	req := CreateRoomRequest{MaxPlayers: 4, Mode: "withfriends"}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", fmt.Errorf("invalid create room payload: %w", err)
		}
	}
	if req.MaxPlayers < 1 || req.MaxPlayers > 4 {
		return "", fmt.Errorf("max_players must be between 1 and 4")
	}

	roomCode := NewRoomCode()
	matchID, err := nk.MatchCreate(ctx, MatchNameRGBZet, map[string]interface{}{
		"room_code":   roomCode,
		"max_players": req.MaxPlayers,
		"mode":        req.Mode,
	})
	if err != nil {
		logger.Error("RpcCreateRoom [User:%s]: Failed to create match: %v", userID, err)
		return "", err
	}

	logger.Info("RpcCreateRoom [User:%s]: Created room %s (match %s)", userID, roomCode, matchID)
	b, _ := json.Marshal(CreateRoomResponse{MatchID: matchID, RoomCode: roomCode})
	return string(b), nil
}

func rpcJoinRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req JoinRoomRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", fmt.Errorf("invalid join room payload: %w", err)
	}
	if req.RoomCode == "" {
		return "", fmt.Errorf("room_code is required")
	}

	query := fmt.Sprintf("+label.game:rgbzet +label.code:%s", req.RoomCode)
	limit := 1
	authoritative := true
	minSize := 0
	maxSize := 4

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("RpcJoinRoom [User:%s]: Failed to list matches: %v", userID, err)
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("room %s not found", req.RoomCode)
	}

	match := matches[0]
	var label Label
	if err := json.Unmarshal([]byte(match.GetLabel().GetValue()), &label); err != nil {
		logger.Warn("RpcJoinRoom [User:%s]: Unparseable label for room %s: %v", userID, req.RoomCode, err)
	}

	if err := joinGate(ctx, label, userID, req.RoomCode, req.RejoinToken); err != nil {
		return "", err
	}

	b, _ := json.Marshal(JoinRoomResponse{MatchID: match.MatchId, Phase: label.Phase})
	return string(b), nil
}

// joinGate decides whether a join request may proceed for the room's
// advertised phase. A closed room admits nobody; a running round only admits
// returning members, who prove prior membership with a rejoin token before
// the match id is handed out.
func joinGate(ctx context.Context, label Label, userID, roomCode, rejoinToken string) error {
	if label.Phase == "closed" {
		return fmt.Errorf("room %s is closed", roomCode)
	}
	if label.Phase == "" || label.Phase == "lobby" {
		return nil
	}

	tokens := rejoinTokens(ctx)
	if tokens == nil {
		return fmt.Errorf("room %s is already playing", roomCode)
	}
	claims, err := tokens.Verify(rejoinToken)
	if err != nil || claims.UserID != userID || claims.RoomCode != roomCode {
		return fmt.Errorf("room %s is already playing", roomCode)
	}
	return nil
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	// Find any open public lobby for our game.
	query := "+label.open:>=1 +label.game:rgbzet +label.phase:lobby +label.mode:quick"
	limit := 1
	authoritative := true
	minSize := 0
	maxSize := 3 // leave at least one open seat

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("RpcQuickMatch [User:%s]: Failed to list matches: %v", userID, err)
		return "", err
	}

	if len(matches) > 0 {
		b, _ := json.Marshal(QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false})
		return string(b), nil
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameRGBZet, map[string]interface{}{"mode": "quick"})
	if err != nil {
		logger.Error("RpcQuickMatch [User:%s]: Failed to create match: %v", userID, err)
		return "", err
	}

	b, _ := json.Marshal(QuickMatchResponse{MatchID: matchID, IsNew: true})
	return string(b), nil
}

func rpcRejoinToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", fmt.Errorf("authentication required")
	}

	var req RejoinTokenRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", fmt.Errorf("invalid rejoin token payload: %w", err)
	}
	if req.RoomCode == "" {
		return "", fmt.Errorf("room_code is required")
	}

	tokens := rejoinTokens(ctx)
	if tokens == nil {
		return "", fmt.Errorf("rejoin tokens are not configured")
	}

	store := NewNakamaRoomStore(nk)
	room, ok, err := store.GetRoom(ctx, req.RoomCode)
	if err != nil {
		logger.Error("RpcRejoinToken [User:%s]: Failed to read room %s: %v", userID, req.RoomCode, err)
		return "", err
	}
	member := false
	if ok {
		for _, p := range room.Players {
			if p.UserID == userID {
				member = true
				break
			}
		}
	}
	if !member {
		return "", fmt.Errorf("not a member of room %s", req.RoomCode)
	}

	token, err := tokens.Issue(userID, req.RoomCode)
	if err != nil {
		logger.Error("RpcRejoinToken [User:%s]: Failed to issue token: %v", userID, err)
		return "", err
	}

	b, _ := json.Marshal(RejoinTokenResponse{Token: token})
	return string(b), nil
}

// rejoinTokens builds the token service from runtime env config, or nil when
// no secret is configured.
func rejoinTokens(ctx context.Context) *app.RejoinTokenService {
	env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if !ok {
		return nil
	}
	secret := env["rgbzet_rejoin_secret"]
	if secret == "" {
		return nil
	}
	ttl := time.Hour
	return app.NewRejoinTokenService(secret, "rgbzet", ttl)
}
