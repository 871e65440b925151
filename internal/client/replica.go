// Package client holds the client-side half of the synchronization protocol:
// a local replica of the player's own zones, the reconciliation policy that
// decides whether an incoming broadcast overwrites local state, and the
// debounced pusher that sends whole-record snapshots upstream.
package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mbxtn/vizzerdrix-server/internal/card"
	"github.com/mbxtn/vizzerdrix-server/internal/protocol"
)

// Zones is the local mutable copy of the player's own record.
type Zones struct {
	Hand      []card.Card
	Library   []card.Card
	Graveyard []card.Card
	Exile     []card.Card
	Command   []card.Card
	PlayZone  []card.Card
	Life      int
}

func (z *Zones) clone() Zones {
	return Zones{
		Hand:      card.CloneSlice(z.Hand),
		Library:   card.CloneSlice(z.Library),
		Graveyard: card.CloneSlice(z.Graveyard),
		Exile:     card.CloneSlice(z.Exile),
		Command:   card.CloneSlice(z.Command),
		PlayZone:  card.CloneSlice(z.PlayZone),
		Life:      z.Life,
	}
}

// Move converts the zones into the whole-record push payload.
func (z *Zones) Move() protocol.Move {
	c := z.clone()
	return protocol.Move{
		Hand:      c.Hand,
		Library:   c.Library,
		Graveyard: c.Graveyard,
		Exile:     c.Exile,
		Command:   c.Command,
		PlayZone:  c.PlayZone,
		Life:      c.Life,
	}
}

// pendingState is the optimistic-update suppression state machine: Idle, or
// PendingLocalAction until expiresAt.
type pendingState int

const (
	stateIdle pendingState = iota
	statePendingLocalAction
)

// MetadataWarmer prefetches card metadata for names that may need artwork.
// It never blocks and never affects convergence.
type MetadataWarmer interface {
	Warm(names []string)
}

// Replica is a client's private copy of its own zones plus the last adopted
// view of the whole room. All methods are safe for concurrent use by the UI
// loop and the network receive path.
type Replica struct {
	mu sync.Mutex

	identity       string
	viewedIdentity string
	rejoining      bool

	own        Zones
	roomState  protocol.RoomState
	lastSerial string

	pending   pendingState
	expiresAt time.Time

	grace  time.Duration
	clock  clockwork.Clock
	warmer MetadataWarmer
	logger *zap.Logger
}

// NewReplica creates a replica for the given connection identity. The clock
// drives grace-window expiry; pass a fake clock in tests.
func NewReplica(identity string, grace time.Duration, clock clockwork.Clock, logger *zap.Logger) *Replica {
	return &Replica{
		identity:       identity,
		viewedIdentity: identity,
		grace:          grace,
		clock:          clock,
		logger:         logger,
	}
}

// SetWarmer attaches an optional metadata prefetcher.
func (r *Replica) SetWarmer(w MetadataWarmer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warmer = w
}

// SetIdentity rebinds the replica to a new connection identity after a
// rejoin handshake completes.
func (r *Replica) SetIdentity(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.viewedIdentity == r.identity {
		r.viewedIdentity = identity
	}
	r.identity = identity
}

// SetViewedIdentity records whose zones the viewer is looking at. While it is
// someone else's, broadcasts always win.
func (r *Replica) SetViewedIdentity(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewedIdentity = identity
}

// BeginRejoin suspends optimistic suppression until EndRejoin; mid-rejoin the
// broadcast is the unconditional source of truth.
func (r *Replica) BeginRejoin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejoining = true
	r.pending = stateIdle
}

// EndRejoin completes a rejoin under the given fresh identity.
func (r *Replica) EndRejoin(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejoining = false
	if r.viewedIdentity == r.identity {
		r.viewedIdentity = identity
	}
	r.identity = identity
}

// MarkAction records that a local mutation just happened. Until the grace
// window runs out, broadcasts do not overwrite the viewer's own zones.
func (r *Replica) MarkAction(kind, cardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = statePendingLocalAction
	r.expiresAt = r.clock.Now().Add(r.grace)

	r.logger.Debug("local action marked",
		zap.String("kind", kind),
		zap.String("card_id", cardID),
	)
}

// Mutate applies a local edit to the replica's own zones and arms the
// suppression window. The caller pushes the returned payload (usually through
// the debounced Pusher).
func (r *Replica) Mutate(kind, cardID string, fn func(*Zones)) protocol.Move {
	r.mu.Lock()
	fn(&r.own)
	mv := r.own.Move()
	r.pending = statePendingLocalAction
	r.expiresAt = r.clock.Now().Add(r.grace)
	r.mu.Unlock()

	r.logger.Debug("local mutation",
		zap.String("kind", kind),
		zap.String("card_id", cardID),
	)
	return mv
}

// Own returns a copy of the local zones.
func (r *Replica) Own() Zones {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.own.clone()
}

// RoomState returns the last adopted room view.
func (r *Replica) RoomState() protocol.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomState
}

// pendingActiveLocked reports and lazily expires the suppression marker.
func (r *Replica) pendingActiveLocked() bool {
	if r.pending != statePendingLocalAction {
		return false
	}
	if !r.clock.Now().Before(r.expiresAt) {
		r.pending = stateIdle
		return false
	}
	return true
}

// ApplyState reconciles an authoritative broadcast into the replica. It
// reports whether anything changed; an identical re-broadcast is skipped
// without touching local state.
//
// While the viewer is on its own zones, is not mid-rejoin, and a local
// action is inside the grace window, the broadcast's copy of the own record
// is not adopted: only cards present in the broadcast play zone but absent
// locally (another player's concurrent additions) are appended. The merge is
// add-only and never removes or reorders local cards. Everyone else's state
// is adopted as-is either way.
func (r *Replica) ApplyState(state protocol.RoomState) bool {
	serialized, err := json.Marshal(state)
	if err != nil {
		r.logger.Error("failed to serialize broadcast", zap.Error(err))
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if string(serialized) == r.lastSerial {
		return false
	}

	keepOwn := r.viewedIdentity == r.identity && !r.rejoining && r.pendingActiveLocked()

	if keepOwn {
		local := make(map[string]bool, len(r.own.PlayZone))
		for _, c := range r.own.PlayZone {
			local[c.ID] = true
		}
		for _, c := range state.PlayZones[r.identity] {
			if !local[c.ID] {
				r.own.PlayZone = append(r.own.PlayZone, c)
			}
		}
	} else if own, ok := state.Players[r.identity]; ok {
		r.own = Zones{
			Hand:      card.CloneSlice(own.Hand),
			Library:   card.CloneSlice(own.Library),
			Graveyard: card.CloneSlice(own.Graveyard),
			Exile:     card.CloneSlice(own.Exile),
			Command:   card.CloneSlice(own.Command),
			PlayZone:  card.CloneSlice(state.PlayZones[r.identity]),
			Life:      own.Life,
		}
	}

	r.roomState = state
	r.lastSerial = string(serialized)

	if r.warmer != nil {
		r.warmer.Warm(collectNames(state))
	}
	return true
}

// ApplySelections replaces the selection map unconditionally. Selections are
// low-value ephemeral state; last write wins with no grace window.
func (r *Replica) ApplySelections(upd protocol.SelectionUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.roomState.PlayerSelections = upd.PlayerSelections
}

func collectNames(state protocol.RoomState) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(cards []card.Card) {
		for _, c := range cards {
			if !seen[c.Name] {
				seen[c.Name] = true
				names = append(names, c.Name)
			}
		}
	}
	for _, p := range state.Players {
		add(p.Hand)
		add(p.Graveyard)
		add(p.Exile)
		add(p.Command)
	}
	for _, zone := range state.PlayZones {
		add(zone)
	}
	return names
}
