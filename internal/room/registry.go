package room

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry owns the mapping from room name to live room state. Rooms are
// created on first join and destroyed once their player map empties.
type Registry struct {
	mu           sync.RWMutex
	rooms        map[string]*Room
	startingLife int
	logger       *zap.Logger
}

// NewRegistry creates a registry whose rooms start players at startingLife.
func NewRegistry(startingLife int, logger *zap.Logger) *Registry {
	return &Registry{
		rooms:        make(map[string]*Room),
		startingLife: startingLife,
		logger:       logger,
	}
}

// GetOrCreate returns the room with the given name, creating it if absent.
func (g *Registry) GetOrCreate(name string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.rooms[name]; ok {
		return r
	}

	r := New(name, g.startingLife, rand.New(rand.NewSource(time.Now().UnixNano())))
	g.rooms[name] = r

	g.logger.Info("room created", zap.String("room", name))
	return r
}

// Get returns the room with the given name if it exists.
func (g *Registry) Get(name string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.rooms[name]
	return r, ok
}

// DestroyIfEmpty removes the named room when it has no live players left and
// reports whether it did.
func (g *Registry) DestroyIfEmpty(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[name]
	if !ok || !r.Empty() {
		return false
	}

	delete(g.rooms, name)
	g.logger.Info("room destroyed", zap.String("room", name))
	return true
}

// Count returns the number of live rooms.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.rooms)
}
