package room

import "github.com/mbxtn/vizzerdrix-server/internal/card"

// Player is the authoritative record for one connection in a room. The room
// owns it exclusively; everything handed outside the lock is a clone. The
// original decklist and commander names are kept so a reset can rebuild the
// deck from scratch.
type Player struct {
	DisplayName string
	Hand        []card.Card
	Library     []card.Card
	Graveyard   []card.Card
	Exile       []card.Card
	Command     []card.Card
	Life        int

	Decklist   []string
	Commanders []string
}

// Clone returns a deep copy safe to keep after the room lock is released.
func (p *Player) Clone() Player {
	return Player{
		DisplayName: p.DisplayName,
		Hand:        card.CloneSlice(p.Hand),
		Library:     card.CloneSlice(p.Library),
		Graveyard:   card.CloneSlice(p.Graveyard),
		Exile:       card.CloneSlice(p.Exile),
		Command:     card.CloneSlice(p.Command),
		Life:        p.Life,
		Decklist:    cloneStrings(p.Decklist),
		Commanders:  cloneStrings(p.Commanders),
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
