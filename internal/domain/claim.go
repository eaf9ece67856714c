package domain

import (
	"errors"
	"time"
)

// ClaimPhase is the state of the ZET call arbiter.
type ClaimPhase string

const (
	// ClaimIdle means the ZET button is armed and the next caller wins.
	ClaimIdle ClaimPhase = "idle"
	// ClaimActive means one player holds the exclusive submission window.
	ClaimActive ClaimPhase = "active"
	// ClaimCooldown means the button is locked until the cooldown elapses.
	ClaimCooldown ClaimPhase = "cooldown"
)

var (
	ErrAlreadyClaimed = errors.New("zet already claimed")
	ErrNotClaimant    = errors.New("actor does not hold the zet claim")
	ErrClaimExpired   = errors.New("zet claim window expired")
	ErrWrongCardCount = errors.New("a zet submission needs exactly three cards")
)

// ClaimTransition is a time-driven arbiter state change observed by Tick.
type ClaimTransition int

const (
	// ClaimNone means no transition occurred this tick.
	ClaimNone ClaimTransition = iota
	// ClaimReleased means an active claim expired unsubmitted and the
	// arbiter moved to cooldown.
	ClaimReleased
	// ClaimRearmed means the cooldown elapsed and the button is idle again.
	ClaimRearmed
)

// ClaimArbiter coordinates the shared ZET call for one room: first caller
// wins an exclusive, time-boxed submission window, everyone else is rejected
// until the cooldown after resolution has passed. All transitions happen on
// the room's single event loop; timestamps are supplied by the caller.
type ClaimArbiter struct {
	phase         ClaimPhase
	claimantID    string
	deadline      time.Time
	cooldownUntil time.Time

	window   time.Duration
	cooldown time.Duration
}

// NewClaimArbiter builds an idle arbiter with the given submission window and
// post-resolution cooldown.
func NewClaimArbiter(window, cooldown time.Duration) *ClaimArbiter {
	return &ClaimArbiter{
		phase:    ClaimIdle,
		window:   window,
		cooldown: cooldown,
	}
}

// Phase returns the current arbiter state.
func (a *ClaimArbiter) Phase() ClaimPhase {
	return a.phase
}

// Claimant returns the holder of the active claim, if any.
func (a *ClaimArbiter) Claimant() (string, bool) {
	if a.phase != ClaimActive {
		return "", false
	}
	return a.claimantID, true
}

// Deadline returns the submission deadline of the active claim.
func (a *ClaimArbiter) Deadline() time.Time {
	return a.deadline
}

// Call grants the exclusive submission window to playerID. Only succeeds from
// idle; concurrent or late callers get ErrAlreadyClaimed and are not queued.
func (a *ClaimArbiter) Call(playerID string, now time.Time) error {
	if a.phase != ClaimIdle {
		return ErrAlreadyClaimed
	}
	a.phase = ClaimActive
	a.claimantID = playerID
	a.deadline = now.Add(a.window)
	return nil
}

// Submit validates a triple submission against the active claim. On success
// the arbiter enters cooldown; judging the cards is the caller's business.
// Validation failures leave the claim open so the claimant may retry until
// the deadline.
func (a *ClaimArbiter) Submit(playerID string, cardCount int, now time.Time) error {
	if a.phase != ClaimActive || a.claimantID != playerID {
		return ErrNotClaimant
	}
	if !now.Before(a.deadline) {
		return ErrClaimExpired
	}
	if cardCount != 3 {
		return ErrWrongCardCount
	}
	a.enterCooldown(now)
	return nil
}

// Tick applies at most one elapsed time-driven transition: an expired claim
// releases into cooldown, an elapsed cooldown re-arms the button. Each
// transition is observed exactly once.
func (a *ClaimArbiter) Tick(now time.Time) ClaimTransition {
	switch a.phase {
	case ClaimActive:
		if !now.Before(a.deadline) {
			a.enterCooldown(now)
			return ClaimReleased
		}
	case ClaimCooldown:
		if !now.Before(a.cooldownUntil) {
			a.phase = ClaimIdle
			return ClaimRearmed
		}
	}
	return ClaimNone
}

func (a *ClaimArbiter) enterCooldown(now time.Time) {
	a.phase = ClaimCooldown
	a.claimantID = ""
	a.cooldownUntil = now.Add(a.cooldown)
}
