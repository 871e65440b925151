package client

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mbxtn/vizzerdrix-server/internal/card"
	"github.com/mbxtn/vizzerdrix-server/internal/protocol"
)

const grace = 2 * time.Second

func newReplica(clock clockwork.Clock) *Replica {
	return NewReplica("me", grace, clock, zap.NewNop())
}

func stateWith(hand, playZone []card.Card, life int) protocol.RoomState {
	return protocol.RoomState{
		Players: map[string]protocol.PlayerState{
			"me": {
				DisplayName: "Alice",
				Hand:        hand,
				Library:     []card.Card{},
				Graveyard:   []card.Card{},
				Exile:       []card.Card{},
				Command:     []card.Card{},
				Life:        life,
			},
		},
		PlayZones:        map[string][]card.Card{"me": playZone},
		TurnOrder:        []string{"me"},
		TurnCounter:      1,
		PlayerSelections: map[string][]string{},
	}
}

func TestApplyStateAdoptsWholesaleWhenIdle(t *testing.T) {
	r := newReplica(clockwork.NewFakeClock())

	hand := []card.Card{card.New("Forest")}
	changed := r.ApplyState(stateWith(hand, nil, 38))

	require.True(t, changed)
	own := r.Own()
	require.Len(t, own.Hand, 1)
	assert.Equal(t, hand[0].ID, own.Hand[0].ID)
	assert.Equal(t, 38, own.Life)
}

func TestApplyStateSkipsIdenticalBroadcast(t *testing.T) {
	r := newReplica(clockwork.NewFakeClock())
	state := stateWith([]card.Card{card.New("Forest")}, nil, 40)

	assert.True(t, r.ApplyState(state))
	assert.False(t, r.ApplyState(state), "identical serialization is not recomputed")
}

func TestGraceWindowKeepsOwnZones(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newReplica(clock)

	// Local optimistic edit: a card moved to the play zone.
	local := card.New("Grizzly Bears")
	r.Mutate("play", local.ID, func(z *Zones) {
		z.PlayZone = append(z.PlayZone, local)
		z.Life = 40
	})

	// A stale echo arrives without the local card.
	stale := stateWith([]card.Card{card.New("Forest")}, nil, 31)
	require.True(t, r.ApplyState(stale))

	own := r.Own()
	assert.Empty(t, own.Hand, "own zones kept during the grace window")
	require.Len(t, own.PlayZone, 1)
	assert.Equal(t, local.ID, own.PlayZone[0].ID)
	assert.Equal(t, 40, own.Life)
}

func TestGraceWindowAppendsForeignPlayZoneCards(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newReplica(clock)

	mine := card.New("Grizzly Bears")
	r.Mutate("play", mine.ID, func(z *Zones) {
		z.PlayZone = append(z.PlayZone, mine)
	})

	// Broadcast carries another player's gift dropped into my zone, plus my
	// own card.
	foreign := card.New("Sol Ring")
	state := stateWith(nil, []card.Card{mine, foreign}, 40)
	require.True(t, r.ApplyState(state))

	own := r.Own()
	require.Len(t, own.PlayZone, 2)
	assert.Equal(t, mine.ID, own.PlayZone[0].ID, "local cards are never reordered")
	assert.Equal(t, foreign.ID, own.PlayZone[1].ID, "foreign cards are appended")
}

func TestGraceWindowExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newReplica(clock)

	r.MarkAction("draw", "c1")
	clock.Advance(grace + time.Millisecond)

	state := stateWith([]card.Card{card.New("Forest")}, nil, 29)
	require.True(t, r.ApplyState(state))

	own := r.Own()
	assert.Len(t, own.Hand, 1, "expired marker means the broadcast wins")
	assert.Equal(t, 29, own.Life)
}

func TestBroadcastWinsWhileViewingAnotherPlayer(t *testing.T) {
	r := newReplica(clockwork.NewFakeClock())

	r.MarkAction("play", "c1")
	r.SetViewedIdentity("them")

	state := stateWith([]card.Card{card.New("Forest")}, nil, 25)
	require.True(t, r.ApplyState(state))

	assert.Equal(t, 25, r.Own().Life)
}

func TestBroadcastWinsDuringRejoin(t *testing.T) {
	r := newReplica(clockwork.NewFakeClock())

	r.MarkAction("play", "c1")
	r.BeginRejoin()

	state := stateWith([]card.Card{card.New("Forest")}, nil, 25)
	require.True(t, r.ApplyState(state))
	assert.Equal(t, 25, r.Own().Life)
}

func TestEndRejoinRebindsIdentity(t *testing.T) {
	r := newReplica(clockwork.NewFakeClock())
	r.BeginRejoin()
	r.EndRejoin("me2")

	state := stateWith(nil, nil, 33)
	state.Players["me2"] = state.Players["me"]
	delete(state.Players, "me")
	state.PlayZones["me2"] = []card.Card{card.New("Forest")}

	require.True(t, r.ApplyState(state))
	own := r.Own()
	assert.Equal(t, 33, own.Life)
	assert.Len(t, own.PlayZone, 1)
}

func TestApplySelectionsReplacesMap(t *testing.T) {
	r := newReplica(clockwork.NewFakeClock())
	require.True(t, r.ApplyState(stateWith(nil, nil, 40)))

	r.ApplySelections(protocol.SelectionUpdate{
		PlayerSelections: map[string][]string{"them": {"a", "b"}},
	})

	assert.Equal(t, []string{"a", "b"}, r.RoomState().PlayerSelections["them"])

	r.ApplySelections(protocol.SelectionUpdate{
		PlayerSelections: map[string][]string{},
	})
	assert.Empty(t, r.RoomState().PlayerSelections)
}

type recordingWarmer struct {
	names [][]string
}

func (w *recordingWarmer) Warm(names []string) {
	w.names = append(w.names, names)
}

func TestWarmerReceivesCardNames(t *testing.T) {
	r := newReplica(clockwork.NewFakeClock())
	w := &recordingWarmer{}
	r.SetWarmer(w)

	state := stateWith([]card.Card{card.New("Forest")}, []card.Card{card.New("Sol Ring")}, 40)
	require.True(t, r.ApplyState(state))

	require.Len(t, w.names, 1)
	assert.ElementsMatch(t, []string{"Forest", "Sol Ring"}, w.names[0])
}
