package server

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/mbxtn/vizzerdrix-server/internal/protocol"
	"github.com/mbxtn/vizzerdrix-server/internal/room"
	"github.com/mbxtn/vizzerdrix-server/internal/session"
)

// Hub routes decoded protocol events to the room registry and session
// manager and fans broadcasts out to room members. A single mutex serializes
// every event, so each handler runs to completion before the next one and
// broadcasts leave in mutation order (room-local FIFO per connection).
type Hub struct {
	mu         sync.Mutex
	clients    map[string]*client
	memberRoom map[string]string             // identity -> room name
	members    map[string]map[string]*client // room name -> identity -> client

	registry *room.Registry
	sessions *session.Manager
	logger   *zap.Logger
}

// NewHub wires the hub to its registry and session manager.
func NewHub(registry *room.Registry, sessions *session.Manager, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*client),
		memberRoom: make(map[string]string),
		members:    make(map[string]map[string]*client),
		registry:   registry,
		sessions:   sessions,
		logger:     logger,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.identity] = c
}

// unregister tears a connection down. If it was seated in a room the player's
// state is stashed for rejoin; the turn slot stays until the stash is claimed
// or swept.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.identity]; !ok {
		return
	}

	roomName, seated := h.memberRoom[c.identity]
	if seated {
		if rm, ok := h.registry.Get(roomName); ok {
			p, zone, state, live := rm.Disconnect(c.identity)
			if live {
				h.sessions.Stash(c.identity, roomName, p.DisplayName, p, zone)
			}
			if rm.Empty() {
				h.registry.DestroyIfEmpty(roomName)
			} else {
				h.broadcastLocked(roomName, protocol.EventState, state)
			}
		}
		h.leaveRoomLocked(c.identity, roomName)
	}

	delete(h.clients, c.identity)
	close(c.send)

	h.logger.Info("connection closed",
		zap.String("identity", c.identity),
		zap.String("room", roomName),
	)
}

// Handle dispatches one decoded envelope from a connection.
func (h *Hub) Handle(c *client, msg protocol.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch msg.Type {
	case protocol.EventJoin:
		h.handleJoin(c, msg.Data)
	case protocol.EventRejoin:
		h.handleRejoin(c, msg.Data)
	case protocol.EventMove:
		h.handleMove(c, msg.Data)
	case protocol.EventUpdateSelection:
		h.handleSelection(c, msg.Data)
	case protocol.EventPickTurnOrder:
		h.handlePickTurnOrder(c)
	case protocol.EventEndTurn:
		h.handleEndTurn(c)
	case protocol.EventReset:
		h.handleReset(c)
	default:
		h.logger.Debug("unknown event",
			zap.String("identity", c.identity),
			zap.String("type", msg.Type),
		)
	}
}

func (h *Hub) handleJoin(c *client, data json.RawMessage) {
	var req protocol.Join
	if data != nil {
		if err := json.Unmarshal(data, &req); err != nil {
			h.sendTo(c, protocol.EventJoinError, protocol.ErrorAck{Message: "malformed join payload"})
			return
		}
	}
	if req.RoomName == "" {
		h.sendTo(c, protocol.EventJoinError, protocol.ErrorAck{Message: "room name is required"})
		return
	}

	rm := h.registry.GetOrCreate(req.RoomName)
	state := rm.Join(c.identity, req.DisplayName, req.Decklist, req.Commanders)
	h.joinRoomLocked(c, req.RoomName)

	h.logger.Info("player joined",
		zap.String("identity", c.identity),
		zap.String("room", req.RoomName),
		zap.String("display_name", req.DisplayName),
		zap.Int("decklist", len(req.Decklist)),
	)

	h.sendTo(c, protocol.EventJoinSuccess, protocol.Ack{RoomName: req.RoomName})
	h.broadcastLocked(req.RoomName, protocol.EventState, state)
}

// handleRejoin remaps a previous player's state onto this connection's fresh
// identity: a stashed disconnected-session record wins over a live record
// with the same display name. On no match nothing is mutated and only the
// caller hears about it.
func (h *Hub) handleRejoin(c *client, data json.RawMessage) {
	var req protocol.Rejoin
	if data != nil {
		if err := json.Unmarshal(data, &req); err != nil {
			h.sendTo(c, protocol.EventRejoinError, protocol.ErrorAck{Message: "malformed rejoin payload"})
			return
		}
	}
	if req.RoomName == "" || req.DisplayName == "" {
		h.sendTo(c, protocol.EventRejoinError, protocol.ErrorAck{Message: "room name and display name are required"})
		return
	}

	if rec, ok := h.sessions.TakeByName(req.RoomName, req.DisplayName); ok {
		rm := h.registry.GetOrCreate(req.RoomName)
		state := rm.Restore(rec.Identity, c.identity, rec.Player, rec.PlayZone)
		h.joinRoomLocked(c, req.RoomName)

		h.logger.Info("player rejoined from stash",
			zap.String("old_identity", rec.Identity),
			zap.String("identity", c.identity),
			zap.String("room", req.RoomName),
		)

		h.sendTo(c, protocol.EventRejoinSuccess, protocol.Ack{RoomName: req.RoomName})
		h.broadcastLocked(req.RoomName, protocol.EventState, state)
		return
	}

	// The old entry may never have been stashed: the client reconnected
	// before the server noticed the previous connection die.
	if rm, ok := h.registry.Get(req.RoomName); ok {
		if oldID, found := rm.FindLiveByName(req.DisplayName, c.identity); found {
			state, _ := rm.RemapIdentity(oldID, c.identity)
			h.evictLocked(oldID, req.RoomName)
			h.joinRoomLocked(c, req.RoomName)

			h.logger.Info("player rejoined over live record",
				zap.String("old_identity", oldID),
				zap.String("identity", c.identity),
				zap.String("room", req.RoomName),
			)

			h.sendTo(c, protocol.EventRejoinSuccess, protocol.Ack{RoomName: req.RoomName})
			h.broadcastLocked(req.RoomName, protocol.EventState, state)
			return
		}
	}

	h.sendTo(c, protocol.EventRejoinError, protocol.ErrorAck{Message: "no session found for that name"})
}

func (h *Hub) handleMove(c *client, data json.RawMessage) {
	rm, ok := h.roomOf(c)
	if !ok || data == nil {
		return
	}

	var mv protocol.Move
	if err := json.Unmarshal(data, &mv); err != nil {
		h.logger.Debug("dropping malformed move", zap.String("identity", c.identity), zap.Error(err))
		return
	}

	state, ok := rm.ApplyMove(c.identity, mv)
	if !ok {
		return
	}
	h.broadcastLocked(rm.Name, protocol.EventState, state)
}

func (h *Hub) handleSelection(c *client, data json.RawMessage) {
	rm, ok := h.roomOf(c)
	if !ok {
		return
	}

	var req protocol.UpdateSelection
	if data != nil {
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
	}

	upd := rm.UpdateSelection(c.identity, req.SelectedCardIDs)
	h.broadcastLocked(rm.Name, protocol.EventSelectionUpdate, upd)
}

func (h *Hub) handlePickTurnOrder(c *client) {
	rm, ok := h.roomOf(c)
	if !ok {
		return
	}

	state := rm.PickTurnOrder()
	h.logger.Info("turn order picked",
		zap.String("room", rm.Name),
		zap.Strings("order", state.TurnOrder),
	)
	h.broadcastLocked(rm.Name, protocol.EventState, state)
}

func (h *Hub) handleEndTurn(c *client) {
	rm, ok := h.roomOf(c)
	if !ok {
		return
	}

	state, advanced := rm.EndTurn(c.identity)
	if !advanced {
		// Not an error the caller hears about; the request is dropped.
		return
	}
	h.broadcastLocked(rm.Name, protocol.EventState, state)
}

func (h *Hub) handleReset(c *client) {
	rm, ok := h.roomOf(c)
	if !ok {
		return
	}

	state := rm.Reset()
	h.logger.Info("room reset", zap.String("room", rm.Name))
	h.broadcastLocked(rm.Name, protocol.EventState, state)
}

// HandleExpired splices the stale turn slots of swept session records out of
// their rooms. Wired as the session manager's sweep callback.
func (h *Hub) HandleExpired(records []session.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, rec := range records {
		rm, ok := h.registry.Get(rec.RoomName)
		if !ok {
			continue
		}
		state, empty := rm.RemovePlayer(rec.Identity)
		if empty {
			h.registry.DestroyIfEmpty(rec.RoomName)
			continue
		}
		h.broadcastLocked(rec.RoomName, protocol.EventState, state)
	}
}

// ==================== internals (h.mu held) ====================

func (h *Hub) roomOf(c *client) (*room.Room, bool) {
	roomName, ok := h.memberRoom[c.identity]
	if !ok {
		return nil, false
	}
	return h.registry.Get(roomName)
}

func (h *Hub) joinRoomLocked(c *client, roomName string) {
	h.memberRoom[c.identity] = roomName
	if h.members[roomName] == nil {
		h.members[roomName] = make(map[string]*client)
	}
	h.members[roomName][c.identity] = c
}

func (h *Hub) leaveRoomLocked(identity, roomName string) {
	delete(h.memberRoom, identity)
	if conns, ok := h.members[roomName]; ok {
		delete(conns, identity)
		if len(conns) == 0 {
			delete(h.members, roomName)
		}
	}
}

// evictLocked drops a connection whose seat was taken over by a rejoin. Its
// state has already been remapped, so nothing is stashed.
func (h *Hub) evictLocked(identity, roomName string) {
	old, ok := h.clients[identity]
	h.leaveRoomLocked(identity, roomName)
	if !ok {
		return
	}
	delete(h.clients, identity)
	close(old.send)
}

func (h *Hub) sendTo(c *client, eventType string, payload any) {
	msg, err := protocol.Encode(eventType, payload)
	if err != nil {
		h.logger.Error("encode failed", zap.String("type", eventType), zap.Error(err))
		return
	}
	if !c.enqueue(msg) {
		h.logger.Warn("send buffer full, dropping frame",
			zap.String("identity", c.identity),
			zap.String("type", eventType),
		)
	}
}

func (h *Hub) broadcastLocked(roomName, eventType string, payload any) {
	msg, err := protocol.Encode(eventType, payload)
	if err != nil {
		h.logger.Error("encode failed", zap.String("type", eventType), zap.Error(err))
		return
	}

	for identity, member := range h.members[roomName] {
		if !member.enqueue(msg) {
			h.logger.Warn("send buffer full, dropping frame",
				zap.String("identity", identity),
				zap.String("type", eventType),
			)
		}
	}
}
