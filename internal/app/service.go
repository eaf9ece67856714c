package app

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/wisitphol/gametest-3/internal/config"
	"github.com/wisitphol/gametest-3/internal/domain"
)

var (
	ErrNotInLobby      = errors.New("room is not in the lobby phase")
	ErrNotPlaying      = errors.New("room is not in a running round")
	ErrRoomFull        = errors.New("room is full")
	ErrNotHost         = errors.New("actor is not the room host")
	ErrPlayersNotReady = errors.New("not all players are ready")
	ErrUnknownPlayer   = errors.New("player not found in room")
	ErrUnknownCard     = errors.New("card id not in catalog")
)

// Service contains RGBZET use-cases operating on domain state. All methods
// mutate the given lobby/round in place and return the events the relay
// adapter must dispatch, in order.
type Service struct {
	cfg config.RoomConfig
	rng *rand.Rand
}

// NewService constructs a Service with provided rng or a time-seeded default.
func NewService(cfg config.RoomConfig, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{cfg: cfg, rng: rng}
}

// Join adds a member to the lobby. The first joiner becomes host; in a
// single-player room the host is ready immediately.
func (s *Service) Join(l *domain.Lobby, userID, username string) ([]Event, error) {
	// Membership first: a reconnecting member is welcome in any phase.
	if p, ok := l.Players[userID]; ok {
		p.Username = username
		return nil, nil
	}

	if l.Phase != domain.LobbyOpen {
		return nil, ErrNotInLobby
	}

	if l.IsFull() {
		return nil, ErrRoomFull
	}

	isHost := len(l.Players) == 0
	p := &domain.Player{
		UserID:   userID,
		Username: username,
		IsHost:   isHost,
		Ready:    l.MaxPlayers == 1,
	}
	l.Players[userID] = p
	l.Order = append(l.Order, userID)
	if isHost {
		l.HostID = userID
	}

	return []Event{{
		Kind: EventPlayerJoined,
		Payload: PlayerJoinedPayload{
			UserID:      userID,
			Username:    username,
			IsHost:      isHost,
			PlayerCount: len(l.Players),
			MaxPlayers:  l.MaxPlayers,
		},
	}}, nil
}

// Leave removes a member. A departing host is fatal to the room: the lobby
// closes and the returned flag tells the adapter to tear the room down. The
// lobby never survives a host change.
func (s *Service) Leave(l *domain.Lobby, userID string) ([]Event, bool) {
	if _, ok := l.Players[userID]; !ok {
		return nil, false
	}

	delete(l.Players, userID)
	for i, id := range l.Order {
		if id == userID {
			l.Order = append(l.Order[:i], l.Order[i+1:]...)
			break
		}
	}

	events := []Event{{
		Kind:    EventPlayerLeft,
		Payload: PlayerLeftPayload{UserID: userID, PlayerCount: len(l.Players)},
	}}

	if userID == l.HostID {
		l.Phase = domain.LobbyClosed
		events = append(events, Event{
			Kind:    EventRoomClosed,
			Payload: RoomClosedPayload{Reason: "host_left"},
		})
		return events, true
	}

	return events, false
}

// Disconnect records a mid-round connection drop. The seat and score survive
// so the player can return with a rejoin token; only the departure is
// broadcast.
func (s *Service) Disconnect(l *domain.Lobby, userID string) []Event {
	if _, ok := l.Players[userID]; !ok {
		return nil
	}
	return []Event{{
		Kind:    EventPlayerLeft,
		Payload: PlayerLeftPayload{UserID: userID, PlayerCount: len(l.Players)},
	}}
}

// ToggleReady flips a member's ready flag. Every flag change is broadcast
// since start gating depends on room-wide consensus.
func (s *Service) ToggleReady(l *domain.Lobby, userID string) ([]Event, error) {
	if l.Phase != domain.LobbyOpen {
		return nil, ErrNotInLobby
	}
	p, ok := l.Member(userID)
	if !ok {
		return nil, ErrUnknownPlayer
	}

	p.Ready = !p.Ready
	return []Event{{
		Kind: EventReadyChanged,
		Payload: ReadyChangedPayload{
			UserID:   userID,
			Ready:    p.Ready,
			AllReady: l.AllReady(),
		},
	}}, nil
}

// RequestStart performs the host-gated lobby-to-round hand-off: it validates
// the actor and ready consensus, builds a freshly shuffled deck, resets all
// scores and opens the round timer.
func (s *Service) RequestStart(l *domain.Lobby, actorID string) (*domain.Round, []Event, error) {
	if l.Phase != domain.LobbyOpen {
		return nil, nil, ErrNotInLobby
	}
	if actorID != l.HostID {
		return nil, nil, ErrNotHost
	}
	if !l.AllReady() {
		return nil, nil, ErrPlayersNotReady
	}

	l.Phase = domain.LobbyStarting

	deck := domain.NewDeck(domain.Catalog(), s.cfg.DeckSize, s.rng)
	deck.Shuffle()

	board, err := deck.Draw(s.cfg.InitialBoardSize)
	if err != nil {
		return nil, nil, err
	}

	scores := make(map[string]int, len(l.Players))
	for _, p := range l.Players {
		p.Score = 0
		scores[p.UserID] = 0
	}

	round := &domain.Round{
		Phase:     domain.RoundPlaying,
		Deck:      deck,
		Claim:     domain.NewClaimArbiter(s.claimWindow(), s.cooldown()),
		Scores:    scores,
		Remaining: s.cfg.RoundSeconds,
	}

	events := []Event{{
		Kind: EventGameStarted,
		Payload: GameStartedPayload{
			Board:         board,
			DeckRemaining: deck.Remaining(),
			RoundSeconds:  round.Remaining,
			Players:       s.summaries(l),
		},
	}}

	return round, events, nil
}

// CallZet arbitrates the shared ZET button: the first caller wins the
// submission window, all others get domain.ErrAlreadyClaimed.
func (s *Service) CallZet(r *domain.Round, userID string, now time.Time) ([]Event, error) {
	if r.Phase != domain.RoundPlaying {
		return nil, ErrNotPlaying
	}
	if _, ok := r.Scores[userID]; !ok {
		return nil, ErrUnknownPlayer
	}
	if err := r.Claim.Call(userID, now); err != nil {
		return nil, err
	}

	return []Event{{
		Kind: EventZetCalled,
		Payload: ZetCalledPayload{
			UserID:        userID,
			WindowSeconds: s.cfg.ClaimWindowSeconds,
		},
	}}, nil
}

// SubmitTriple judges the claimant's three cards. A match scores the triple
// and removes the cards from play; a miss returns them (a data-model no-op,
// card positions are owned by the client). Either way the arbiter enters
// cooldown. Resolving a submission after the round ended is a no-op.
func (s *Service) SubmitTriple(r *domain.Round, userID string, cardIDs []int, now time.Time) ([]Event, error) {
	if r.Phase != domain.RoundPlaying {
		return nil, ErrNotPlaying
	}

	// Resolve ids before touching the arbiter so a garbled payload does not
	// consume the claim.
	cards := make([]domain.Card, 0, len(cardIDs))
	for _, id := range cardIDs {
		c, ok := domain.CardByID(id)
		if !ok {
			return nil, ErrUnknownCard
		}
		cards = append(cards, c)
	}

	if err := r.Claim.Submit(userID, len(cards), now); err != nil {
		return nil, err
	}

	if !domain.IsZet(cards[0], cards[1], cards[2]) {
		return []Event{{
			Kind:    EventTripleRejected,
			Payload: TripleRejectedPayload{UserID: userID, Cards: cards},
		}}, nil
	}

	score := domain.TripleScore(cards[0], cards[1], cards[2])
	s.onMatched(r, userID, score)

	return []Event{{
		Kind: EventTripleMatched,
		Payload: TripleMatchedPayload{
			UserID:     userID,
			Cards:      cards,
			Score:      score,
			TotalScore: r.Scores[userID],
		},
	}}, nil
}

// onMatched is the sole score mutation path.
func (s *Service) onMatched(r *domain.Round, userID string, score int) {
	r.Scores[userID] += score
}

// DrawCards deals the next n cards from the shared deck. Crossing the
// low-stock threshold emits an advisory DeckLow signal for the client's deck
// visual; it is not a gameplay rule.
func (s *Service) DrawCards(r *domain.Round, n int) ([]Event, error) {
	if r.Phase != domain.RoundPlaying {
		return nil, ErrNotPlaying
	}

	before := r.Deck.Remaining()
	cards, err := r.Deck.Draw(n)
	if err != nil {
		return nil, err
	}

	events := []Event{{
		Kind: EventCardsDrawn,
		Payload: CardsDrawnPayload{
			Cards:         cards,
			DeckRemaining: r.Deck.Remaining(),
		},
	}}

	if before >= s.cfg.DeckLowThreshold && r.Deck.Remaining() < s.cfg.DeckLowThreshold {
		events = append(events, Event{
			Kind:    EventDeckLow,
			Payload: DeckLowPayload{DeckRemaining: r.Deck.Remaining()},
		})
	}

	return events, nil
}

// TickRound advances the round clock by dt seconds and applies time-driven
// arbiter transitions. The round-ended transition fires exactly once; ticking
// a finished round is a no-op.
func (s *Service) TickRound(l *domain.Lobby, r *domain.Round, dt float64, now time.Time) []Event {
	if r.Phase != domain.RoundPlaying {
		return nil
	}

	var events []Event

	switch r.Claim.Tick(now) {
	case domain.ClaimReleased:
		events = append(events, Event{
			Kind:    EventClaimExpired,
			Payload: ClaimExpiredPayload{CooldownSeconds: s.cfg.CooldownSeconds},
		})
	case domain.ClaimRearmed:
		events = append(events, Event{Kind: EventZetAvailable, Payload: struct{}{}})
	}

	r.Remaining -= dt
	if r.Remaining <= 0 {
		r.Remaining = 0
		r.Phase = domain.RoundEnded
		events = append(events, Event{
			Kind:    EventRoundEnded,
			Payload: RoundEndedPayload{Standings: s.standings(l, r)},
		})
	}

	return events
}

// CancelRound ends a round without a result, e.g. on host departure. Safe to
// call with an open claim and idempotent.
func (s *Service) CancelRound(r *domain.Round) {
	if r == nil {
		return
	}
	r.Phase = domain.RoundEnded
}

func (s *Service) summaries(l *domain.Lobby) []PlayerSummary {
	out := make([]PlayerSummary, 0, len(l.Order))
	for _, id := range l.Order {
		p := l.Players[id]
		out = append(out, PlayerSummary{UserID: p.UserID, Username: p.Username, Score: p.Score})
	}
	return out
}

func (s *Service) standings(l *domain.Lobby, r *domain.Round) []PlayerSummary {
	out := make([]PlayerSummary, 0, len(l.Order))
	for _, id := range l.Order {
		p, ok := l.Players[id]
		if !ok {
			continue
		}
		out = append(out, PlayerSummary{UserID: p.UserID, Username: p.Username, Score: r.ScoreOf(id)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func (s *Service) claimWindow() time.Duration {
	return time.Duration(s.cfg.ClaimWindowSeconds * float64(time.Second))
}

func (s *Service) cooldown() time.Duration {
	return time.Duration(s.cfg.CooldownSeconds * float64(time.Second))
}
