package client

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mbxtn/vizzerdrix-server/internal/protocol"
)

// Sender is the outbound half of the connection, satisfied by the websocket
// layer. The pusher never retries; a dropped message stays dropped and the
// next debounced push carries the latest state anyway.
type Sender interface {
	Send(eventType string, payload any) error
}

// Pusher coalesces rapid local edits into trailing-edge debounced pushes:
// whole-record move payloads on one timer, selection sets on a faster one.
// Only the most recent payload of each kind survives the wait.
type Pusher struct {
	mu sync.Mutex

	sender   Sender
	clock    clockwork.Clock
	moveWait time.Duration
	selWait  time.Duration

	pendingMove *protocol.Move
	moveTimer   clockwork.Timer

	pendingSel []string
	selTimer   clockwork.Timer

	logger *zap.Logger
}

// NewPusher creates a pusher with the given debounce windows.
func NewPusher(sender Sender, moveWait, selWait time.Duration, clock clockwork.Clock, logger *zap.Logger) *Pusher {
	return &Pusher{
		sender:   sender,
		clock:    clock,
		moveWait: moveWait,
		selWait:  selWait,
		logger:   logger,
	}
}

// QueueMove schedules mv for push, replacing any still-waiting payload and
// restarting the debounce window.
func (p *Pusher) QueueMove(mv protocol.Move) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pendingMove = &mv
	if p.moveTimer == nil {
		p.moveTimer = p.clock.AfterFunc(p.moveWait, p.flushMove)
	} else {
		p.moveTimer.Reset(p.moveWait)
	}
}

// QueueSelection schedules the selection set for push on the faster window.
func (p *Pusher) QueueSelection(cardIDs []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, len(cardIDs))
	copy(ids, cardIDs)
	p.pendingSel = ids

	if p.selTimer == nil {
		p.selTimer = p.clock.AfterFunc(p.selWait, p.flushSelection)
	} else {
		p.selTimer.Reset(p.selWait)
	}
}

// Flush pushes anything still waiting, ignoring the debounce windows. Used
// on shutdown so the last local edits are not lost to a timer.
func (p *Pusher) Flush() {
	p.flushMove()
	p.flushSelection()
}

func (p *Pusher) flushMove() {
	p.mu.Lock()
	mv := p.pendingMove
	p.pendingMove = nil
	if p.moveTimer != nil {
		p.moveTimer.Stop()
		p.moveTimer = nil
	}
	p.mu.Unlock()

	if mv == nil {
		return
	}
	if err := p.sender.Send(protocol.EventMove, *mv); err != nil {
		p.logger.Warn("move push failed", zap.Error(err))
	}
}

func (p *Pusher) flushSelection() {
	p.mu.Lock()
	sel := p.pendingSel
	p.pendingSel = nil
	if p.selTimer != nil {
		p.selTimer.Stop()
		p.selTimer = nil
	}
	p.mu.Unlock()

	if sel == nil {
		return
	}
	if err := p.sender.Send(protocol.EventUpdateSelection, protocol.UpdateSelection{SelectedCardIDs: sel}); err != nil {
		p.logger.Warn("selection push failed", zap.Error(err))
	}
}
