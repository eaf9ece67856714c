package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/wisitphol/gametest-3/internal/app"
	"github.com/wisitphol/gametest-3/internal/config"
	"github.com/wisitphol/gametest-3/internal/domain"
	"github.com/wisitphol/gametest-3/internal/ports"
)

// Label is the match label advertised for room discovery queries.
type Label struct {
	Open  int    `json:"open"`
	Game  string `json:"game"`
	Phase string `json:"phase"`
	Code  string `json:"code"`
	Mode  string `json:"mode"`
}

// MatchState holds the authoritative runtime state for one room. One Nakama
// match is one room; all mutation happens on the match loop.
type MatchState struct {
	RoomCode string
	Mode     string
	MatchID  string

	Lobby *domain.Lobby
	Round *domain.Round // nil while in the lobby

	Presences map[string]runtime.Presence
	App       *app.Service
	Store     ports.RoomStorePort
	Cfg       config.RoomConfig

	Tick int64
	// sinceTimerSync counts loop ticks since the last remaining-time broadcast.
	sinceTimerSync int
}

// SubmitTripleRequest is the client payload for OpSubmitTriple.
type SubmitTripleRequest struct {
	CardIDs []int `json:"card_ids"`
}

// DrawCardsRequest is the client payload for OpDrawCards.
type DrawCardsRequest struct {
	Count int `json:"count"`
}

// TimerSyncPayload carries the authoritative remaining round time.
type TimerSyncPayload struct {
	RemainingSeconds float64 `json:"remaining_seconds"`
}

// GameErrorPayload is sent to a single offending client.
type GameErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit boots a new room in the lobby phase. Room tuning comes from the
// loaded config, overridden per server by runtime env vars and per room by
// match creation params.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	cfg := config.GetRoomConfig()
	applyEnvOverrides(ctx, &cfg)

	roomCode, _ := params["room_code"].(string)
	if roomCode == "" {
		roomCode = NewRoomCode()
	}
	mode, _ := params["mode"].(string)
	if mode == "" {
		mode = "quick"
	}
	if mp, ok := paramInt(params, "max_players"); ok && mp >= 1 && mp <= 4 {
		cfg.MaxPlayers = mp
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)

	state := &MatchState{
		RoomCode:  roomCode,
		Mode:      mode,
		MatchID:   matchID,
		Lobby:     domain.NewLobby(cfg.MaxPlayers),
		Presences: make(map[string]runtime.Presence),
		App:       app.NewService(cfg, nil),
		Store:     NewNakamaRoomStore(nk),
		Cfg:       cfg,
	}

	if err := state.Store.SaveRoom(ctx, ports.RoomRecord{
		RoomCode: roomCode,
		Mode:     mode,
		MatchID:  matchID,
		Players:  map[string]ports.PlayerRecord{},
	}); err != nil {
		// Discovery metadata only; the room plays on without it.
		logger.Warn("MatchInit: Failed to write room record for %s: %v", roomCode, err)
	}

	labelBytes, err := json.Marshal(buildLabel(state))
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1 // one loop tick per second drives the round clock
	return state, tickRate, string(labelBytes)
}

// MatchJoinAttempt admits members while the lobby is open and lets existing
// members reconnect mid-round.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	s, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	if _, member := s.Lobby.Member(presence.GetUserId()); member {
		return s, true, ""
	}
	if s.Lobby.Phase != domain.LobbyOpen {
		if allowTokenRejoin(ctx, s, presence.GetUserId(), metadata) {
			return s, true, ""
		}
		return s, false, "match_in_progress"
	}
	if s.Lobby.IsFull() {
		return s, false, "match_full"
	}
	return s, true, ""
}

// allowTokenRejoin admits a non-member presenting a valid rejoin token for
// this room, provided they actually played in the running round.
func allowTokenRejoin(ctx context.Context, s *MatchState, userID string, metadata map[string]string) bool {
	if s.Round == nil {
		return false
	}
	if _, played := s.Round.Scores[userID]; !played {
		return false
	}
	tokens := rejoinTokens(ctx)
	if tokens == nil {
		return false
	}
	claims, err := tokens.Verify(metadata["rejoin_token"])
	return err == nil && claims.UserID == userID && claims.RoomCode == s.RoomCode
}

// MatchJoin registers presences with the lobby, broadcasts membership events
// and mirrors the member list into the room document.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	s, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		s.Presences[p.GetUserId()] = p

		events, err := s.App.Join(s.Lobby, p.GetUserId(), p.GetUsername())
		if err != nil {
			logger.Warn("MatchJoin: User %s could not join room %s: %v", p.GetUserId(), s.RoomCode, err)
			continue
		}
		mh.broadcastEvents(s, dispatcher, logger, events)
	}

	mh.mirrorRoom(ctx, s, logger)
	mh.updateLabel(s, dispatcher, logger)
	return s
}

// MatchLeave removes presences. A departing host tears the whole room down:
// the backing document is removed, remaining members are notified and the
// match terminates.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	s, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	hostLeft := false
	for _, p := range presences {
		delete(s.Presences, p.GetUserId())

		// A non-host dropping mid-round keeps their seat, score and room
		// document entry so a rejoin token can bring them back.
		if s.Round != nil && p.GetUserId() != s.Lobby.HostID {
			mh.broadcastEvents(s, dispatcher, logger, s.App.Disconnect(s.Lobby, p.GetUserId()))
			continue
		}

		events, left := s.App.Leave(s.Lobby, p.GetUserId())
		mh.broadcastEvents(s, dispatcher, logger, events)
		if left {
			hostLeft = true
		}
	}

	if hostLeft {
		s.App.CancelRound(s.Round)
		s.Round = nil
		if err := s.Store.RemoveRoom(ctx, s.RoomCode); err != nil {
			logger.Warn("MatchLeave: Failed to remove room record for %s: %v", s.RoomCode, err)
		}
		logger.Info("MatchLeave: Host left, tearing down room %s.", s.RoomCode)
		return nil
	}

	if len(s.Lobby.Players) == 0 {
		if err := s.Store.RemoveRoom(ctx, s.RoomCode); err != nil {
			logger.Warn("MatchLeave: Failed to remove room record for %s: %v", s.RoomCode, err)
		}
		logger.Info("MatchLeave: Room %s is empty, terminating.", s.RoomCode)
		return nil
	}

	mh.mirrorRoom(ctx, s, logger)
	mh.updateLabel(s, dispatcher, logger)
	return s
}

// MatchLoop processes client messages in delivery order, then advances the
// round clock by one tick.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	s, ok := state.(*MatchState)
	if !ok {
		return state
	}

	s.Tick = tick
	now := time.Now()

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpToggleReady:
			mh.handleToggleReady(s, dispatcher, logger, msg)
		case OpStartGame:
			mh.handleStartGame(s, dispatcher, logger, msg)
		case OpCallZet:
			mh.handleCallZet(s, dispatcher, logger, msg, now)
		case OpSubmitTriple:
			mh.handleSubmitTriple(ctx, s, dispatcher, logger, msg, now)
		case OpDrawCards:
			mh.handleDrawCards(s, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if s.Round != nil {
		events := s.App.TickRound(s.Lobby, s.Round, 1.0, now)
		mh.broadcastEvents(s, dispatcher, logger, events)

		if s.Round.Phase == domain.RoundEnded {
			mh.finishRound(ctx, s, dispatcher, logger)
		} else {
			s.sinceTimerSync++
			if s.sinceTimerSync >= s.Cfg.TimerSyncTicks {
				s.sinceTimerSync = 0
				mh.broadcast(dispatcher, logger, OpTimerSync, TimerSyncPayload{RemainingSeconds: s.Round.Remaining}, nil)
			}
		}
	}

	return s
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated after %d ticks", tick)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

/* ---- message handlers ---- */

func (mh *matchHandler) handleToggleReady(s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	events, err := s.App.ToggleReady(s.Lobby, msg.GetUserId())
	if err != nil {
		logger.Warn("ToggleReady: User %s rejected: %v", msg.GetUserId(), err)
		mh.sendError(s, dispatcher, logger, msg.GetUserId(), 400, err.Error())
		return
	}
	mh.broadcastEvents(s, dispatcher, logger, events)
}

func (mh *matchHandler) handleStartGame(s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	round, events, err := s.App.RequestStart(s.Lobby, msg.GetUserId())
	if err != nil {
		logger.Warn("StartGame: User %s rejected: %v", msg.GetUserId(), err)
		mh.sendError(s, dispatcher, logger, msg.GetUserId(), 400, err.Error())
		return
	}

	s.Round = round
	s.sinceTimerSync = 0
	mh.broadcastEvents(s, dispatcher, logger, events)
	mh.updateLabel(s, dispatcher, logger)
	logger.Info("StartGame: Round started in room %s with %d players.", s.RoomCode, len(s.Lobby.Players))
}

func (mh *matchHandler) handleCallZet(s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData, now time.Time) {
	if s.Round == nil {
		mh.sendError(s, dispatcher, logger, msg.GetUserId(), 400, app.ErrNotPlaying.Error())
		return
	}

	events, err := s.App.CallZet(s.Round, msg.GetUserId(), now)
	if err != nil {
		// Losing the call race is normal; reject quietly.
		mh.sendError(s, dispatcher, logger, msg.GetUserId(), 409, err.Error())
		return
	}
	mh.broadcastEvents(s, dispatcher, logger, events)
}

func (mh *matchHandler) handleSubmitTriple(ctx context.Context, s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData, now time.Time) {
	if s.Round == nil {
		mh.sendError(s, dispatcher, logger, msg.GetUserId(), 400, app.ErrNotPlaying.Error())
		return
	}

	var req SubmitTripleRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Warn("SubmitTriple: Invalid payload from %s: %v", msg.GetUserId(), err)
		mh.sendError(s, dispatcher, logger, msg.GetUserId(), 400, "invalid payload")
		return
	}

	events, err := s.App.SubmitTriple(s.Round, msg.GetUserId(), req.CardIDs, now)
	if err != nil {
		logger.Warn("SubmitTriple: User %s rejected: %v", msg.GetUserId(), err)
		mh.sendError(s, dispatcher, logger, msg.GetUserId(), 400, err.Error())
		return
	}
	mh.broadcastEvents(s, dispatcher, logger, events)

	for _, ev := range events {
		if ev.Kind != app.EventTripleMatched {
			continue
		}
		p := ev.Payload.(app.TripleMatchedPayload)
		mh.mirrorScore(ctx, s, logger, p.UserID, p.TotalScore)
	}
}

func (mh *matchHandler) handleDrawCards(s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if s.Round == nil {
		mh.sendError(s, dispatcher, logger, msg.GetUserId(), 400, app.ErrNotPlaying.Error())
		return
	}
	// Only the host client drives deck reveals so draws never interleave.
	if msg.GetUserId() != s.Lobby.HostID {
		mh.sendError(s, dispatcher, logger, msg.GetUserId(), 403, app.ErrNotHost.Error())
		return
	}

	var req DrawCardsRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil || req.Count <= 0 {
		mh.sendError(s, dispatcher, logger, msg.GetUserId(), 400, "invalid payload")
		return
	}

	events, err := s.App.DrawCards(s.Round, req.Count)
	if err != nil {
		logger.Warn("DrawCards: Rejected draw of %d in room %s: %v", req.Count, s.RoomCode, err)
		mh.sendError(s, dispatcher, logger, msg.GetUserId(), 400, err.Error())
		return
	}
	mh.broadcastEvents(s, dispatcher, logger, events)
}

/* ---- round teardown ---- */

// finishRound persists final scores and returns the room to an open lobby
// with ready flags cleared.
func (mh *matchHandler) finishRound(ctx context.Context, s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for _, p := range s.Lobby.Players {
		p.Score = s.Round.ScoreOf(p.UserID)
	}

	// Seats held for mid-round rejoins are released once the round is over.
	for _, id := range append([]string(nil), s.Lobby.Order...) {
		if _, connected := s.Presences[id]; connected {
			continue
		}
		events, _ := s.App.Leave(s.Lobby, id)
		mh.broadcastEvents(s, dispatcher, logger, events)
	}

	mh.mirrorRoom(ctx, s, logger)

	s.Round = nil
	s.Lobby.Phase = domain.LobbyOpen
	for _, p := range s.Lobby.Players {
		p.Ready = s.Lobby.MaxPlayers == 1
	}
	mh.updateLabel(s, dispatcher, logger)
	logger.Info("Round finished in room %s.", s.RoomCode)
}

/* ---- dispatch helpers ---- */

// opCodeFor maps app event kinds to wire op codes.
func opCodeFor(kind app.EventKind) (int64, bool) {
	switch kind {
	case app.EventPlayerJoined:
		return OpPlayerJoined, true
	case app.EventPlayerLeft:
		return OpPlayerLeft, true
	case app.EventReadyChanged:
		return OpReadyChanged, true
	case app.EventGameStarted:
		return OpGameStarted, true
	case app.EventZetCalled:
		return OpZetCalled, true
	case app.EventClaimExpired:
		return OpClaimExpired, true
	case app.EventZetAvailable:
		return OpZetAvailable, true
	case app.EventTripleMatched:
		return OpTripleMatched, true
	case app.EventTripleRejected:
		return OpTripleRejected, true
	case app.EventCardsDrawn:
		return OpCardsDrawn, true
	case app.EventDeckLow:
		return OpDeckLow, true
	case app.EventRoundEnded:
		return OpRoundEnded, true
	case app.EventRoomClosed:
		return OpRoomClosed, true
	}
	return 0, false
}

func (mh *matchHandler) broadcastEvents(s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		opCode, ok := opCodeFor(ev.Kind)
		if !ok {
			logger.Warn("Unknown event kind: %v", ev.Kind)
			continue
		}

		var recipients []runtime.Presence
		if len(ev.Recipients) > 0 {
			for _, uid := range ev.Recipients {
				if p, ok := s.Presences[uid]; ok {
					recipients = append(recipients, p)
				}
			}
			if len(recipients) == 0 {
				continue
			}
		}

		mh.broadcast(dispatcher, logger, opCode, ev.Payload, recipients)
	}
}

func (mh *matchHandler) broadcast(dispatcher runtime.MatchDispatcher, logger runtime.Logger, opCode int64, payload any, recipients []runtime.Presence) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal payload for opcode %d: %v", opCode, err)
		return
	}
	if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast opcode %d: %v", opCode, err)
	}
}

// sendError sends a GameErrorPayload to a specific user.
func (mh *matchHandler) sendError(s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	presence, ok := s.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	mh.broadcast(dispatcher, logger, OpGameError, GameErrorPayload{Code: code, Message: message}, []runtime.Presence{presence})
}

/* ---- storage mirrors (best-effort) ---- */

func (mh *matchHandler) mirrorRoom(ctx context.Context, s *MatchState, logger runtime.Logger) {
	record := ports.RoomRecord{
		RoomCode: s.RoomCode,
		Mode:     s.Mode,
		MatchID:  s.MatchID,
		Players:  make(map[string]ports.PlayerRecord, len(s.Lobby.Players)),
	}
	for i, id := range s.Lobby.Order {
		p := s.Lobby.Players[id]
		record.Players[playerKey(i)] = ports.PlayerRecord{UserID: p.UserID, Name: p.Username, Score: p.Score}
	}
	if err := s.Store.SaveRoom(ctx, record); err != nil {
		logger.Warn("Failed to mirror room %s to storage: %v", s.RoomCode, err)
	}
}

func (mh *matchHandler) mirrorScore(ctx context.Context, s *MatchState, logger runtime.Logger, userID string, score int) {
	for i, id := range s.Lobby.Order {
		if id != userID {
			continue
		}
		p := s.Lobby.Players[id]
		record := ports.PlayerRecord{UserID: p.UserID, Name: p.Username, Score: score}
		if err := s.Store.UpdatePlayer(ctx, s.RoomCode, playerKey(i), record); err != nil {
			logger.Warn("Failed to mirror score for %s in room %s: %v", userID, s.RoomCode, err)
		}
		return
	}
}

func playerKey(index int) string {
	return "player_" + strconv.Itoa(index+1)
}

/* ---- label / config helpers ---- */

func buildLabel(s *MatchState) Label {
	phase := "lobby"
	if s.Round != nil {
		phase = "playing"
	} else if s.Lobby.Phase == domain.LobbyClosed {
		phase = "closed"
	}
	open := s.Lobby.MaxPlayers - len(s.Lobby.Players)
	if phase != "lobby" {
		open = 0
	}
	return Label{
		Open:  open,
		Game:  "rgbzet",
		Phase: phase,
		Code:  s.RoomCode,
		Mode:  s.Mode,
	}
}

func (mh *matchHandler) updateLabel(s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelBytes, err := json.Marshal(buildLabel(s))
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func applyEnvOverrides(ctx context.Context, cfg *config.RoomConfig) {
	env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if !ok {
		return
	}
	if v, ok := env["rgbzet_round_seconds"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RoundSeconds = f
		}
	}
	if v, ok := env["rgbzet_claim_window_seconds"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.ClaimWindowSeconds = f
		}
	}
	if v, ok := env["rgbzet_cooldown_seconds"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.CooldownSeconds = f
		}
	}
	if v, ok := env["rgbzet_deck_size"]; ok {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.DeckSize = i
		}
	}
}

func paramInt(params map[string]interface{}, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i, true
		}
	}
	return 0, false
}
