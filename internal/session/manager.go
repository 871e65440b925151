// Package session retains disconnected players' state so a new connection
// can reclaim it. Records are keyed by the old connection identity, matched
// by room plus display name, consumed on successful rejoin, and swept after a
// retention window. The sweep is advisory cleanup: a rejoin after expiry just
// fails and the client starts over.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mbxtn/vizzerdrix-server/internal/card"
	"github.com/mbxtn/vizzerdrix-server/internal/room"
)

// Record preserves one disconnected player's state.
type Record struct {
	Identity       string
	RoomName       string
	DisplayName    string
	Player         room.Player
	PlayZone       []card.Card
	DisconnectedAt time.Time
}

// Manager stores disconnected-session records with a bounded lifetime.
type Manager struct {
	mu      sync.Mutex
	records map[string]*Record

	ttl      time.Duration
	interval time.Duration
	clock    clockwork.Clock
	logger   *zap.Logger
}

// NewManager creates a manager that retains records for ttl and sweeps on the
// given interval. Pass a clockwork.FakeClock in tests to simulate expiry.
func NewManager(ttl, interval time.Duration, clock clockwork.Clock, logger *zap.Logger) *Manager {
	return &Manager{
		records:  make(map[string]*Record),
		ttl:      ttl,
		interval: interval,
		clock:    clock,
		logger:   logger,
	}
}

// Stash records a disconnected player's state under its old identity,
// replacing any previous record for that identity.
func (m *Manager) Stash(identity, roomName, displayName string, p room.Player, zone []card.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[identity] = &Record{
		Identity:       identity,
		RoomName:       roomName,
		DisplayName:    displayName,
		Player:         p.Clone(),
		PlayZone:       card.CloneSlice(zone),
		DisconnectedAt: m.clock.Now(),
	}

	m.logger.Info("session stashed",
		zap.String("identity", identity),
		zap.String("room", roomName),
		zap.String("display_name", displayName),
	)
}

// TakeByName consumes the record matching room and display name, if any.
// With duplicate display names the match is unspecified.
func (m *Manager) TakeByName(roomName, displayName string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for identity, rec := range m.records {
		if rec.RoomName == roomName && rec.DisplayName == displayName {
			delete(m.records, identity)
			return *rec, true
		}
	}
	return Record{}, false
}

// Sweep removes records older than the retention window and returns them so
// the caller can splice their stale turn slots out of live rooms.
func (m *Manager) Sweep() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().Add(-m.ttl)
	var expired []Record
	for identity, rec := range m.records {
		if rec.DisconnectedAt.Before(cutoff) {
			expired = append(expired, *rec)
			delete(m.records, identity)
		}
	}

	if len(expired) > 0 {
		m.logger.Info("swept expired sessions", zap.Int("count", len(expired)))
	}
	return expired
}

// Run sweeps on the manager's interval until ctx is canceled. onExpired, when
// non-nil, receives each batch of expired records.
func (m *Manager) Run(ctx context.Context, onExpired func([]Record)) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if expired := m.Sweep(); len(expired) > 0 && onExpired != nil {
				onExpired(expired)
			}
		}
	}
}

// Count returns the number of retained records.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.records)
}
