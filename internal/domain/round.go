package domain

// RoundPhase is the lifecycle stage of a round.
type RoundPhase string

const (
	// RoundPlaying indicates the round timer is running.
	RoundPlaying RoundPhase = "playing"
	// RoundEnded indicates the round finished by timeout or teardown.
	RoundEnded RoundPhase = "ended"
)

// Round holds the authoritative state for one timed round of a room: the
// shared deck, the ZET arbiter and the per-player score map. It is owned by
// exactly one room and mutated only on that room's event loop.
type Round struct {
	Phase     RoundPhase
	Deck      *Deck
	Claim     *ClaimArbiter
	Scores    map[string]int
	Remaining float64 // seconds until the round ends
}

// ScoreOf returns the current score for a player, zero for unknown ids.
func (r *Round) ScoreOf(playerID string) int {
	return r.Scores[playerID]
}
