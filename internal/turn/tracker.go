// Package turn implements the turn-order state machine for a room: an
// unordered initial state, a randomly picked ordering, gated turn advancement,
// and a lap counter for the "Turn N" display.
package turn

import (
	"math/rand"

	"github.com/mbxtn/vizzerdrix-server/internal/shuffle"
)

// Tracker holds whose turn it is. The zero value is the "no order set" state
// with the lap counter at turn one.
type Tracker struct {
	Order   []string
	Current int
	Set     bool
	Counter int
}

// New returns a tracker in the initial unordered state.
func New() *Tracker {
	return &Tracker{Counter: 1}
}

// Pick computes a uniformly random permutation of identities and makes it the
// active order, with the first slot live. Calling it again reshuffles. The lap
// counter is left alone so a mid-game reshuffle does not reset the turn
// display.
func (t *Tracker) Pick(rng *rand.Rand, identities []string) {
	order := make([]string, len(identities))
	copy(order, identities)
	shuffle.Shuffle(rng, order)

	t.Order = order
	t.Current = 0
	t.Set = len(order) > 0
}

// Active returns the identity whose turn is live, or "" when no order is set.
func (t *Tracker) Active() string {
	if !t.Set || t.Current < 0 || t.Current >= len(t.Order) {
		return ""
	}
	return t.Order[t.Current]
}

// End advances the turn if caller holds it. Requests from anyone else are
// dropped. The counter increments only when the order wraps back to slot 0,
// counting completed laps.
func (t *Tracker) End(caller string) bool {
	if !t.Set || t.Active() != caller {
		return false
	}

	t.Current = (t.Current + 1) % len(t.Order)
	if t.Current == 0 {
		t.Counter++
	}
	return true
}

// Remove splices identity out of the order and clamps the current index so it
// never points past the end. When the index sat at or after the removed slot
// it is pulled back by one so the same upcoming player is not skipped. An
// emptied order returns to the unordered state.
func (t *Tracker) Remove(identity string) {
	idx := -1
	for i, id := range t.Order {
		if id == identity {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	t.Order = append(t.Order[:idx], t.Order[idx+1:]...)

	if len(t.Order) == 0 {
		t.Set = false
		t.Current = 0
		return
	}

	if t.Current >= idx && t.Current > 0 {
		t.Current--
	}
	if t.Current >= len(t.Order) {
		t.Current = 0
	}
}

// Replace rewrites every occurrence of oldID in the order to newID, keeping
// the turn position. Used when a rejoining connection takes over a seat.
func (t *Tracker) Replace(oldID, newID string) {
	for i, id := range t.Order {
		if id == oldID {
			t.Order[i] = newID
		}
	}
}

// Contains reports whether identity holds a slot in the order.
func (t *Tracker) Contains(identity string) bool {
	for _, id := range t.Order {
		if id == identity {
			return true
		}
	}
	return false
}
