package app

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/wisitphol/gametest-3/internal/config"
	"github.com/wisitphol/gametest-3/internal/domain"
)

var testEpoch = time.Unix(1_700_000_000, 0)

func newTestService(mutate func(*config.RoomConfig)) *Service {
	cfg := config.DefaultRoomConfig()
	cfg.MaxPlayers = 2
	if mutate != nil {
		mutate(&cfg)
	}
	return NewService(cfg, rand.New(rand.NewSource(7)))
}

func joinAll(t *testing.T, s *Service, l *domain.Lobby, users ...string) {
	t.Helper()
	for _, u := range users {
		if _, err := s.Join(l, u, "name_"+u); err != nil {
			t.Fatalf("Join(%s) failed: %v", u, err)
		}
	}
}

func readyLobby(t *testing.T, s *Service) *domain.Lobby {
	t.Helper()
	l := domain.NewLobby(2)
	joinAll(t, s, l, "host", "p2")
	if _, err := s.ToggleReady(l, "p2"); err != nil {
		t.Fatalf("ToggleReady failed: %v", err)
	}
	return l
}

func startedRound(t *testing.T, s *Service) (*domain.Lobby, *domain.Round) {
	t.Helper()
	l := readyLobby(t, s)
	round, _, err := s.RequestStart(l, "host")
	if err != nil {
		t.Fatalf("RequestStart failed: %v", err)
	}
	return l, round
}

func TestJoinAssignsHostAndBroadcasts(t *testing.T) {
	s := newTestService(nil)
	l := domain.NewLobby(2)

	events, err := s.Join(l, "u1", "alice")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventPlayerJoined {
		t.Fatalf("Join events = %+v, want one EventPlayerJoined", events)
	}
	p := events[0].Payload.(PlayerJoinedPayload)
	if !p.IsHost || p.Username != "alice" || p.PlayerCount != 1 {
		t.Fatalf("unexpected payload: %+v", p)
	}
	if l.HostID != "u1" {
		t.Fatalf("HostID = %q, want u1", l.HostID)
	}

	events, err = s.Join(l, "u2", "bob")
	if err != nil {
		t.Fatalf("second Join failed: %v", err)
	}
	if events[0].Payload.(PlayerJoinedPayload).IsHost {
		t.Fatalf("second joiner must not be host")
	}

	if _, err := s.Join(l, "u3", "carol"); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("third Join error = %v, want ErrRoomFull", err)
	}
}

func TestJoinSinglePlayerIsReadyImmediately(t *testing.T) {
	s := newTestService(func(c *config.RoomConfig) { c.MaxPlayers = 1 })
	l := domain.NewLobby(1)

	joinAll(t, s, l, "solo")
	if !l.AllReady() {
		t.Fatalf("single-player lobby should be trivially ready")
	}
}

func TestLeaveHostTearsDownRoom(t *testing.T) {
	s := newTestService(nil)
	l := domain.NewLobby(2)
	joinAll(t, s, l, "host", "p2")

	events, hostLeft := s.Leave(l, "host")
	if !hostLeft {
		t.Fatalf("host departure not flagged")
	}
	if l.Phase != domain.LobbyClosed {
		t.Fatalf("lobby phase = %s, want closed", l.Phase)
	}

	var closed bool
	for _, ev := range events {
		if ev.Kind == EventRoomClosed {
			closed = true
			if ev.Payload.(RoomClosedPayload).Reason != "host_left" {
				t.Fatalf("unexpected close reason: %+v", ev.Payload)
			}
		}
	}
	if !closed {
		t.Fatalf("no EventRoomClosed emitted, events = %+v", events)
	}
}

func TestJoinMemberReconnectWhilePlaying(t *testing.T) {
	s := newTestService(nil)
	l := readyLobby(t, s)
	if _, _, err := s.RequestStart(l, "host"); err != nil {
		t.Fatalf("RequestStart failed: %v", err)
	}

	// A returning member is welcome even though the lobby is no longer open.
	events, err := s.Join(l, "p2", "fresh_name")
	if err != nil {
		t.Fatalf("member reconnect failed: %v", err)
	}
	if events != nil {
		t.Fatalf("reconnect must not re-announce the player, got %+v", events)
	}
	if l.Players["p2"].Username != "fresh_name" {
		t.Fatalf("reconnect did not refresh the display name")
	}
}

func TestDisconnectKeepsSeat(t *testing.T) {
	s := newTestService(nil)
	l := domain.NewLobby(2)
	joinAll(t, s, l, "host", "p2")

	events := s.Disconnect(l, "p2")
	if len(events) != 1 || events[0].Kind != EventPlayerLeft {
		t.Fatalf("events = %+v, want one EventPlayerLeft", events)
	}
	if _, ok := l.Member("p2"); !ok {
		t.Fatalf("disconnect must not release the seat")
	}

	if events := s.Disconnect(l, "ghost"); events != nil {
		t.Fatalf("disconnect of a non-member emitted events: %+v", events)
	}
}

func TestLeaveNonHostKeepsRoomOpen(t *testing.T) {
	s := newTestService(nil)
	l := domain.NewLobby(2)
	joinAll(t, s, l, "host", "p2")

	events, hostLeft := s.Leave(l, "p2")
	if hostLeft {
		t.Fatalf("non-host departure flagged as host departure")
	}
	if l.Phase != domain.LobbyOpen {
		t.Fatalf("lobby phase = %s, want open", l.Phase)
	}
	if len(events) != 1 || events[0].Kind != EventPlayerLeft {
		t.Fatalf("events = %+v, want one EventPlayerLeft", events)
	}
}

func TestToggleReadyBroadcastsConsensus(t *testing.T) {
	s := newTestService(nil)
	l := domain.NewLobby(2)
	joinAll(t, s, l, "host", "p2")

	events, err := s.ToggleReady(l, "p2")
	if err != nil {
		t.Fatalf("ToggleReady failed: %v", err)
	}
	p := events[0].Payload.(ReadyChangedPayload)
	if !p.Ready || !p.AllReady {
		t.Fatalf("unexpected payload: %+v", p)
	}

	// Toggling back withdraws consensus.
	events, err = s.ToggleReady(l, "p2")
	if err != nil {
		t.Fatalf("second ToggleReady failed: %v", err)
	}
	p = events[0].Payload.(ReadyChangedPayload)
	if p.Ready || p.AllReady {
		t.Fatalf("unexpected payload after untoggle: %+v", p)
	}

	if _, err := s.ToggleReady(l, "ghost"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("ToggleReady(ghost) error = %v, want ErrUnknownPlayer", err)
	}
}

func TestRequestStartGating(t *testing.T) {
	s := newTestService(nil)

	t.Run("NotHost", func(t *testing.T) {
		l := readyLobby(t, s)
		if _, _, err := s.RequestStart(l, "p2"); !errors.Is(err, ErrNotHost) {
			t.Fatalf("error = %v, want ErrNotHost", err)
		}
	})

	t.Run("PlayersNotReady", func(t *testing.T) {
		l := domain.NewLobby(2)
		joinAll(t, s, l, "host", "p2")
		if _, _, err := s.RequestStart(l, "host"); !errors.Is(err, ErrPlayersNotReady) {
			t.Fatalf("error = %v, want ErrPlayersNotReady", err)
		}
	})

	t.Run("NotFull", func(t *testing.T) {
		l := domain.NewLobby(2)
		joinAll(t, s, l, "host")
		if _, _, err := s.RequestStart(l, "host"); !errors.Is(err, ErrPlayersNotReady) {
			t.Fatalf("error = %v, want ErrPlayersNotReady", err)
		}
	})
}

func TestRequestStartBuildsRound(t *testing.T) {
	s := newTestService(nil)
	l := readyLobby(t, s)
	// Carry a stale score to prove the reset.
	l.Players["p2"].Score = 42

	round, events, err := s.RequestStart(l, "host")
	if err != nil {
		t.Fatalf("RequestStart failed: %v", err)
	}

	if l.Phase != domain.LobbyStarting {
		t.Fatalf("lobby phase = %s, want starting", l.Phase)
	}
	if round.Phase != domain.RoundPlaying {
		t.Fatalf("round phase = %s, want playing", round.Phase)
	}
	if round.Remaining != 120 {
		t.Fatalf("round remaining = %f, want 120", round.Remaining)
	}
	for id, score := range round.Scores {
		if score != 0 {
			t.Fatalf("score for %s = %d, want 0", id, score)
		}
	}

	if len(events) != 1 || events[0].Kind != EventGameStarted {
		t.Fatalf("events = %+v, want one EventGameStarted", events)
	}
	p := events[0].Payload.(GameStartedPayload)
	if len(p.Board) != 4 {
		t.Fatalf("initial board size = %d, want 4", len(p.Board))
	}
	if p.DeckRemaining != 76 {
		t.Fatalf("deck remaining = %d, want 76 (80-card deck minus board)", p.DeckRemaining)
	}
	if len(p.Players) != 2 || p.Players[0].UserID != "host" {
		t.Fatalf("players = %+v, want join order starting with host", p.Players)
	}
}

func TestCallZetFirstCallerWins(t *testing.T) {
	s := newTestService(nil)
	_, round := startedRound(t, s)

	events, err := s.CallZet(round, "p2", testEpoch)
	if err != nil {
		t.Fatalf("first CallZet failed: %v", err)
	}
	if events[0].Kind != EventZetCalled || events[0].Payload.(ZetCalledPayload).UserID != "p2" {
		t.Fatalf("unexpected events: %+v", events)
	}

	if _, err := s.CallZet(round, "host", testEpoch); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Fatalf("second CallZet error = %v, want ErrAlreadyClaimed", err)
	}
	if _, err := s.CallZet(round, "ghost", testEpoch); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("CallZet(ghost) error = %v, want ErrUnknownPlayer", err)
	}
}

func TestSubmitTripleMatched(t *testing.T) {
	s := newTestService(nil)
	_, round := startedRound(t, s)

	if _, err := s.CallZet(round, "p2", testEpoch); err != nil {
		t.Fatalf("CallZet failed: %v", err)
	}

	// Cards 0,1,2 differ in every attribute: a valid ZET worth 2+3+4.
	events, err := s.SubmitTriple(round, "p2", []int{0, 1, 2}, testEpoch.Add(time.Second))
	if err != nil {
		t.Fatalf("SubmitTriple failed: %v", err)
	}
	if events[0].Kind != EventTripleMatched {
		t.Fatalf("events = %+v, want EventTripleMatched", events)
	}
	p := events[0].Payload.(TripleMatchedPayload)
	if p.Score != 9 || p.TotalScore != 9 {
		t.Fatalf("payload = %+v, want score 9", p)
	}
	if round.ScoreOf("p2") != 9 {
		t.Fatalf("score = %d, want 9", round.ScoreOf("p2"))
	}
	if round.Claim.Phase() != domain.ClaimCooldown {
		t.Fatalf("claim phase = %s, want cooldown", round.Claim.Phase())
	}
}

func TestSubmitTripleRejected(t *testing.T) {
	s := newTestService(nil)
	_, round := startedRound(t, s)

	if _, err := s.CallZet(round, "p2", testEpoch); err != nil {
		t.Fatalf("CallZet failed: %v", err)
	}

	// Cards 0,1,3 share the color red on two cards: not a ZET.
	events, err := s.SubmitTriple(round, "p2", []int{0, 1, 3}, testEpoch.Add(time.Second))
	if err != nil {
		t.Fatalf("SubmitTriple failed: %v", err)
	}
	if events[0].Kind != EventTripleRejected {
		t.Fatalf("events = %+v, want EventTripleRejected", events)
	}
	if round.ScoreOf("p2") != 0 {
		t.Fatalf("rejected triple must not score, got %d", round.ScoreOf("p2"))
	}
}

func TestSubmitTripleGuards(t *testing.T) {
	s := newTestService(nil)
	_, round := startedRound(t, s)

	if _, err := s.CallZet(round, "p2", testEpoch); err != nil {
		t.Fatalf("CallZet failed: %v", err)
	}

	// A garbled payload must not consume the claim.
	if _, err := s.SubmitTriple(round, "p2", []int{0, 1, 99}, testEpoch.Add(time.Second)); !errors.Is(err, ErrUnknownCard) {
		t.Fatalf("error = %v, want ErrUnknownCard", err)
	}
	if round.Claim.Phase() != domain.ClaimActive {
		t.Fatalf("claim phase = %s, want active after bad card id", round.Claim.Phase())
	}

	if _, err := s.SubmitTriple(round, "host", []int{0, 1, 2}, testEpoch.Add(time.Second)); !errors.Is(err, domain.ErrNotClaimant) {
		t.Fatalf("error = %v, want ErrNotClaimant", err)
	}

	s.CancelRound(round)
	if _, err := s.SubmitTriple(round, "p2", []int{0, 1, 2}, testEpoch.Add(time.Second)); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("error after cancel = %v, want ErrNotPlaying", err)
	}
}

func TestDrawCardsDeckLowCrossing(t *testing.T) {
	s := newTestService(func(c *config.RoomConfig) { c.DeckSize = 15 })
	_, round := startedRound(t, s)

	// 15-card deck minus the 4-card board leaves 11.
	events, err := s.DrawCards(round, 1)
	if err != nil {
		t.Fatalf("DrawCards failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("no DeckLow expected at 10 remaining, events = %+v", events)
	}

	events, err = s.DrawCards(round, 1)
	if err != nil {
		t.Fatalf("DrawCards failed: %v", err)
	}
	if len(events) != 2 || events[1].Kind != EventDeckLow {
		t.Fatalf("expected DeckLow on crossing the threshold, events = %+v", events)
	}

	// The advisory fires only on the crossing.
	events, err = s.DrawCards(round, 1)
	if err != nil {
		t.Fatalf("DrawCards failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("DeckLow repeated after crossing, events = %+v", events)
	}

	if _, err := s.DrawCards(round, 100); !errors.Is(err, domain.ErrDeckExhausted) {
		t.Fatalf("oversized draw error = %v, want ErrDeckExhausted", err)
	}
}

func TestTickRoundEndsExactlyOnce(t *testing.T) {
	s := newTestService(func(c *config.RoomConfig) { c.RoundSeconds = 2 })
	lobby, round := startedRound(t, s)

	if events := s.TickRound(lobby, round, 1.0, testEpoch); len(events) != 0 {
		t.Fatalf("unexpected events on first tick: %+v", events)
	}

	events := s.TickRound(lobby, round, 1.0, testEpoch.Add(time.Second))
	if len(events) != 1 || events[0].Kind != EventRoundEnded {
		t.Fatalf("events = %+v, want one EventRoundEnded", events)
	}
	if round.Phase != domain.RoundEnded {
		t.Fatalf("round phase = %s, want ended", round.Phase)
	}

	// Ticking a finished round is a no-op.
	for i := 0; i < 3; i++ {
		if events := s.TickRound(lobby, round, 1.0, testEpoch.Add(time.Duration(2+i)*time.Second)); len(events) != 0 {
			t.Fatalf("tick after end emitted events: %+v", events)
		}
	}
}

func TestTickRoundStandingsSorted(t *testing.T) {
	s := newTestService(func(c *config.RoomConfig) { c.RoundSeconds = 1 })
	lobby, round := startedRound(t, s)
	round.Scores["p2"] = 12
	round.Scores["host"] = 5

	events := s.TickRound(lobby, round, 1.0, testEpoch)
	if len(events) != 1 {
		t.Fatalf("events = %+v, want one EventRoundEnded", events)
	}
	standings := events[0].Payload.(RoundEndedPayload).Standings
	if len(standings) != 2 || standings[0].UserID != "p2" || standings[0].Score != 12 {
		t.Fatalf("standings = %+v, want p2 first with 12", standings)
	}
}

func TestTickRoundClaimLifecycleEvents(t *testing.T) {
	s := newTestService(nil)
	lobby, round := startedRound(t, s)

	if _, err := s.CallZet(round, "p2", testEpoch); err != nil {
		t.Fatalf("CallZet failed: %v", err)
	}

	// The claim window (4s) expires unsubmitted.
	events := s.TickRound(lobby, round, 1.0, testEpoch.Add(4*time.Second))
	if len(events) != 1 || events[0].Kind != EventClaimExpired {
		t.Fatalf("events = %+v, want EventClaimExpired", events)
	}

	// The cooldown (7s) elapses and the button re-arms.
	events = s.TickRound(lobby, round, 1.0, testEpoch.Add(11*time.Second))
	if len(events) != 1 || events[0].Kind != EventZetAvailable {
		t.Fatalf("events = %+v, want EventZetAvailable", events)
	}
}
