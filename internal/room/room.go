// Package room implements the authoritative per-room state store and its
// registry. The store is deliberately dumb: a move is a whole-record
// replacement for the sender's own zones, never a merge, and the most recent
// one wins. Cross-player consistency comes only from the fact that each
// mutating method runs to completion under the room lock and returns the
// snapshot to broadcast.
package room

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/mbxtn/vizzerdrix-server/internal/card"
	"github.com/mbxtn/vizzerdrix-server/internal/protocol"
	"github.com/mbxtn/vizzerdrix-server/internal/shuffle"
	"github.com/mbxtn/vizzerdrix-server/internal/turn"
)

// Room holds the authoritative state for one named game session.
type Room struct {
	Name string

	mu           sync.RWMutex
	players      map[string]*Player
	playZones    map[string][]card.Card
	selections   map[string][]string
	turns        *turn.Tracker
	startingLife int
	rng          *rand.Rand
}

// New creates an empty room. rng drives both library shuffles and turn-order
// picks; seed it for deterministic tests.
func New(name string, startingLife int, rng *rand.Rand) *Room {
	return &Room{
		Name:         name,
		players:      make(map[string]*Player),
		playZones:    make(map[string][]card.Card),
		selections:   make(map[string][]string),
		turns:        turn.New(),
		startingLife: startingLife,
		rng:          rng,
	}
}

// Join creates a fresh player record for identity: library built from the
// decklist and shuffled, command zone from the commanders, empty hand,
// graveyard, exile and play zone, starting life. Missing lists are treated
// as empty rather than rejected. A repeat join for a live identity rebuilds
// the record the same way.
func (r *Room) Join(identity, displayName string, decklist, commanders []string) protocol.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if decklist == nil {
		decklist = []string{}
	}
	if commanders == nil {
		commanders = []string{}
	}

	library := card.BuildLibrary(decklist)
	shuffle.Shuffle(r.rng, library)

	r.players[identity] = &Player{
		DisplayName: displayName,
		Hand:        []card.Card{},
		Library:     library,
		Graveyard:   []card.Card{},
		Exile:       []card.Card{},
		Command:     card.BuildCommand(commanders),
		Life:        r.startingLife,
		Decklist:    cloneStrings(decklist),
		Commanders:  cloneStrings(commanders),
	}
	r.playZones[identity] = []card.Card{}

	return r.snapshotLocked()
}

// ApplyMove overwrites identity's zones and life with the payload, keeping
// the stored display name and the original decklist. The payload is trusted
// as-is; there is no validation of card ids or zone membership. Unknown
// identities are ignored.
func (r *Room) ApplyMove(identity string, mv protocol.Move) (protocol.RoomState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[identity]
	if !ok {
		return protocol.RoomState{}, false
	}

	p.Hand = card.CloneSlice(mv.Hand)
	p.Library = card.CloneSlice(mv.Library)
	p.Graveyard = card.CloneSlice(mv.Graveyard)
	p.Exile = card.CloneSlice(mv.Exile)
	p.Command = card.CloneSlice(mv.Command)
	p.Life = mv.Life
	r.playZones[identity] = card.CloneSlice(mv.PlayZone)

	return r.snapshotLocked(), true
}

// UpdateSelection replaces identity's ephemeral selection set.
func (r *Room) UpdateSelection(identity string, cardIDs []string) protocol.SelectionUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[identity]; ok {
		r.selections[identity] = cloneStrings(cardIDs)
	}

	return protocol.SelectionUpdate{PlayerSelections: r.selectionsLocked()}
}

// PickTurnOrder shuffles the current player identities into a fresh turn
// order with the first slot live. Calling it again reshuffles.
func (r *Room) PickTurnOrder() protocol.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()

	identities := make([]string, 0, len(r.players))
	for id := range r.players {
		identities = append(identities, id)
	}
	sort.Strings(identities)

	r.turns.Pick(r.rng, identities)

	return r.snapshotLocked()
}

// EndTurn advances the turn if caller holds it; anyone else's request is
// silently dropped and the returned ok is false.
func (r *Room) EndTurn(caller string) (protocol.RoomState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	advanced := r.turns.End(caller)
	return r.snapshotLocked(), advanced
}

// Reset rebuilds every player from their stored decklist and commanders:
// fresh shuffled library, commanders back in the command zone, all other
// zones emptied, life back to the starting total. Display names survive;
// selections do not.
func (r *Room) Reset() protocol.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()

	for identity, p := range r.players {
		library := card.BuildLibrary(p.Decklist)
		shuffle.Shuffle(r.rng, library)

		p.Hand = []card.Card{}
		p.Library = library
		p.Graveyard = []card.Card{}
		p.Exile = []card.Card{}
		p.Command = card.BuildCommand(p.Commanders)
		p.Life = r.startingLife
		r.playZones[identity] = []card.Card{}
		delete(r.selections, identity)
	}

	return r.snapshotLocked()
}

// RemovePlayer deletes identity's record, play zone, selection and turn slot,
// clamping the current-turn index. It reports whether the room is now empty.
func (r *Room) RemovePlayer(identity string) (protocol.RoomState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.players, identity)
	delete(r.playZones, identity)
	delete(r.selections, identity)
	r.turns.Remove(identity)

	return r.snapshotLocked(), len(r.players) == 0
}

// Disconnect captures identity's record and play zone for the session
// registry and deletes the live entries. The turn slot is left in place so a
// later rejoin can take it over; a slot whose session expires unclaimed is
// spliced out by RemovePlayer during the registry sweep.
func (r *Room) Disconnect(identity string) (Player, []card.Card, protocol.RoomState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[identity]
	if !ok {
		return Player{}, nil, r.snapshotLocked(), false
	}

	snapshot := p.Clone()
	zone := card.CloneSlice(r.playZones[identity])

	delete(r.players, identity)
	delete(r.playZones, identity)
	delete(r.selections, identity)

	return snapshot, zone, r.snapshotLocked(), true
}

// Restore re-inserts a preserved player record and play zone under a new
// identity and rewrites the old identity's turn slot to the new one, keeping
// the turn position.
func (r *Room) Restore(oldID, newID string, p Player, zone []card.Card) protocol.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()

	restored := p.Clone()
	r.players[newID] = &restored
	r.playZones[newID] = card.CloneSlice(zone)
	r.turns.Replace(oldID, newID)

	return r.snapshotLocked()
}

// RemapIdentity moves a live player record from oldID to newID, covering the
// race where a client reconnects before its previous connection was noticed
// as gone. The old selection is dropped; selections are not preserved across
// rejoin.
func (r *Room) RemapIdentity(oldID, newID string) (protocol.RoomState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[oldID]
	if !ok {
		return protocol.RoomState{}, false
	}

	delete(r.players, oldID)
	r.players[newID] = p

	r.playZones[newID] = r.playZones[oldID]
	delete(r.playZones, oldID)
	delete(r.selections, oldID)

	r.turns.Replace(oldID, newID)

	return r.snapshotLocked(), true
}

// FindLiveByName returns the identity of a connected player with the given
// display name, excluding excludeID. Display names are an operator-trusted
// key; with duplicates the match is unspecified.
func (r *Room) FindLiveByName(displayName, excludeID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for identity, p := range r.players {
		if identity != excludeID && p.DisplayName == displayName {
			return identity, true
		}
	}
	return "", false
}

// HasPlayer reports whether identity is live in the room.
func (r *Room) HasPlayer(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.players[identity]
	return ok
}

// Empty reports whether the room has no live players.
func (r *Room) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.players) == 0
}

// Player returns a clone of identity's record.
func (r *Room) Player(identity string) (Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[identity]
	if !ok {
		return Player{}, false
	}
	return p.Clone(), true
}

// PlayZone returns a clone of identity's play zone.
func (r *Room) PlayZone(identity string) []card.Card {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return card.CloneSlice(r.playZones[identity])
}

// Snapshot returns the full broadcast view of the room.
func (r *Room) Snapshot() protocol.RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() protocol.RoomState {
	players := make(map[string]protocol.PlayerState, len(r.players))
	for identity, p := range r.players {
		players[identity] = protocol.PlayerState{
			DisplayName: p.DisplayName,
			Hand:        card.CloneSlice(p.Hand),
			Library:     card.CloneSlice(p.Library),
			Graveyard:   card.CloneSlice(p.Graveyard),
			Exile:       card.CloneSlice(p.Exile),
			Command:     card.CloneSlice(p.Command),
			Life:        p.Life,
		}
	}

	playZones := make(map[string][]card.Card, len(r.playZones))
	for identity, zone := range r.playZones {
		playZones[identity] = card.CloneSlice(zone)
	}

	order := make([]string, len(r.turns.Order))
	copy(order, r.turns.Order)

	return protocol.RoomState{
		Players:          players,
		PlayZones:        playZones,
		TurnOrder:        order,
		CurrentTurn:      r.turns.Current,
		TurnOrderSet:     r.turns.Set,
		TurnCounter:      r.turns.Counter,
		PlayerSelections: r.selectionsLocked(),
	}
}

func (r *Room) selectionsLocked() map[string][]string {
	selections := make(map[string][]string, len(r.selections))
	for identity, ids := range r.selections {
		selections[identity] = cloneStrings(ids)
	}
	return selections
}
