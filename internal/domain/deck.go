package domain

import (
	"errors"
	"math/rand"
	"time"
)

// ErrDeckExhausted is returned when a draw requests more cards than remain.
var ErrDeckExhausted = errors.New("deck exhausted")

// Deck owns the ordered card sequence for one round. Cards before the draw
// index have been dealt; cards at or after it remain. Draw is the only
// consumer-facing mutation point.
type Deck struct {
	cards     []Card
	drawIndex int
	rng       *rand.Rand
}

// NewDeck samples size cards independently and uniformly, with replacement,
// from the given catalog. A nil rng falls back to a time-seeded source.
func NewDeck(catalog []Card, size int, rng *rand.Rand) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	cards := make([]Card, size)
	for i := range cards {
		cards[i] = catalog[rng.Intn(len(catalog))]
	}
	return &Deck{cards: cards, rng: rng}
}

// Shuffle permutes the remaining region in place with a Fisher-Yates walk.
// Already-drawn cards are untouched.
func (d *Deck) Shuffle() {
	for i := d.drawIndex; i < len(d.cards); i++ {
		j := i + d.rng.Intn(len(d.cards)-i)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw returns the next n cards and advances the draw index. Fails with
// ErrDeckExhausted when fewer than n cards remain; the deck is unchanged in
// that case.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n > d.Remaining() {
		return nil, ErrDeckExhausted
	}
	out := make([]Card, n)
	copy(out, d.cards[d.drawIndex:d.drawIndex+n])
	d.drawIndex += n
	return out, nil
}

// Remaining returns the number of cards not yet drawn.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.drawIndex
}

// Drawn returns the number of cards dealt so far.
func (d *Deck) Drawn() int {
	return d.drawIndex
}

// RemainingCards returns a snapshot copy of the undrawn region.
func (d *Deck) RemainingCards() []Card {
	out := make([]Card, d.Remaining())
	copy(out, d.cards[d.drawIndex:])
	return out
}
