// Package protocol defines the wire envelope and payloads exchanged between
// clients and the server. Both sides share these types so the whole-record
// move payload and the room-state broadcast stay structurally identical.
package protocol

import (
	"encoding/json"

	"github.com/mbxtn/vizzerdrix-server/internal/card"
)

// Event names carried in the envelope Type field.
const (
	EventJoin            = "join"
	EventJoinSuccess     = "joinSuccess"
	EventJoinError       = "joinError"
	EventRejoin          = "rejoin"
	EventRejoinSuccess   = "rejoinSuccess"
	EventRejoinError     = "rejoinError"
	EventMove            = "move"
	EventUpdateSelection = "updateSelection"
	EventState           = "state"
	EventSelectionUpdate = "selectionUpdate"
	EventPickTurnOrder   = "pickTurnOrder"
	EventEndTurn         = "endTurn"
	EventReset           = "reset"
)

// Message is the envelope for every event in either direction.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode wraps a payload into a marshaled envelope.
func Encode(eventType string, payload any) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if payload != nil {
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Message{Type: eventType, Data: data})
}

// ================= C -> S =================

type Join struct {
	RoomName    string   `json:"roomName"`
	DisplayName string   `json:"displayName"`
	Decklist    []string `json:"decklist"`
	Commanders  []string `json:"commanders"`
}

type Rejoin struct {
	RoomName    string `json:"roomName"`
	DisplayName string `json:"displayName"`
}

// Move is the whole-record replacement for the sender's zones. The server
// never merges it; the most recent Move for an identity wins outright.
type Move struct {
	Hand      []card.Card `json:"hand"`
	Library   []card.Card `json:"library"`
	Graveyard []card.Card `json:"graveyard"`
	Exile     []card.Card `json:"exile"`
	Command   []card.Card `json:"command"`
	PlayZone  []card.Card `json:"playZone"`
	Life      int         `json:"life"`
}

type UpdateSelection struct {
	SelectedCardIDs []string `json:"selectedCardIds"`
}

// ================= S -> C =================

type Ack struct {
	RoomName string `json:"roomName"`
}

type ErrorAck struct {
	Message string `json:"message"`
}

// PlayerState is the broadcast view of one player's record.
type PlayerState struct {
	DisplayName string      `json:"displayName"`
	Hand        []card.Card `json:"hand"`
	Library     []card.Card `json:"library"`
	Graveyard   []card.Card `json:"graveyard"`
	Exile       []card.Card `json:"exile"`
	Command     []card.Card `json:"command"`
	Life        int         `json:"life"`
}

// RoomState is the full authoritative broadcast.
type RoomState struct {
	Players          map[string]PlayerState `json:"players"`
	PlayZones        map[string][]card.Card `json:"playZones"`
	TurnOrder        []string               `json:"turnOrder"`
	CurrentTurn      int                    `json:"currentTurn"`
	TurnOrderSet     bool                   `json:"turnOrderSet"`
	TurnCounter      int                    `json:"turnCounter"`
	PlayerSelections map[string][]string    `json:"playerSelections"`
}

// SelectionUpdate is the selection-only delta broadcast.
type SelectionUpdate struct {
	PlayerSelections map[string][]string `json:"playerSelections"`
}
