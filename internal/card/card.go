// Package card defines the wire-level card model shared by the room store,
// the protocol, and the client replica.
package card

import "github.com/google/uuid"

// FaceShown values for double-faced cards.
const (
	FaceFront = "front"
	FaceBack  = "back"
)

// Card is a single game object. A card lives in exactly one zone at a time;
// the positional fields are meaningful only while it sits in a play zone.
// Counters at zero serializes as absent, which clients treat the same way.
type Card struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`

	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`

	Counters int `json:"counters,omitempty"`

	IsCommander   bool `json:"isCommander,omitempty"`
	IsPlaceholder bool `json:"isPlaceholder,omitempty"`
	IsCopy        bool `json:"isCopy,omitempty"`
	IsRelatedCard bool `json:"isRelatedCard,omitempty"`

	FaceShown string `json:"faceShown,omitempty"`
}

// New creates a card with a fresh globally unique id for the given name.
func New(name string) Card {
	return Card{
		ID:          uuid.NewString(),
		Name:        name,
		DisplayName: name,
	}
}

// BuildLibrary constructs library cards from a decklist, one card per name,
// in decklist order. The caller shuffles the result. Top of library is the
// last element.
func BuildLibrary(names []string) []Card {
	cards := make([]Card, 0, len(names))
	for _, name := range names {
		cards = append(cards, New(name))
	}
	return cards
}

// BuildCommand constructs command-zone cards from commander names, with the
// commander flag set.
func BuildCommand(names []string) []Card {
	cards := make([]Card, 0, len(names))
	for _, name := range names {
		c := New(name)
		c.IsCommander = true
		cards = append(cards, c)
	}
	return cards
}

// CloneSlice returns a copy of cards safe to hand outside a lock.
func CloneSlice(cards []Card) []Card {
	if cards == nil {
		return []Card{}
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}
