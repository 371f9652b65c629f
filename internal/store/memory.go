// internal/store/memory.go
//
// In-memory implementation of the session registry.
// Active games live only in memory; a restart drops them.
//
// Characteristics:
//   - Stores *game.Session objects keyed by session id.
//   - Sharded by xxhash of the id; each shard has its own RWMutex, so
//     unrelated games never contend on one lock.
//   - Errors are returned for missing session ids on Get().

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/robalobadob/crossword-battle/internal/game"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

const shardCount = 32

// Store defines the registry interface for game sessions.
type Store interface {
	// Save inserts or replaces a session.
	Save(ctx context.Context, s *game.Session) error

	// Get retrieves a session by id.
	// Returns ErrNotFound if the session is not registered.
	Get(ctx context.Context, id string) (*game.Session, error)

	// Delete drops a session; unknown ids are ignored.
	Delete(ctx context.Context, id string) error

	// Len reports the number of registered sessions.
	Len() int
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
}

// memory is a sharded map-based Store implementation.
type memory struct {
	shards [shardCount]*shard
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	m := &memory{}
	for i := range m.shards {
		m.shards[i] = &shard{sessions: make(map[string]*game.Session)}
	}
	return m
}

func (m *memory) shardFor(id string) *shard {
	return m.shards[xxhash.Sum64String(id)%shardCount]
}

// Save adds or updates the session in its shard.
func (m *memory) Save(ctx context.Context, s *game.Session) error {
	sh := m.shardFor(s.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.sessions[s.ID] = s
	return nil
}

// Get looks up a session by id.
func (m *memory) Get(ctx context.Context, id string) (*game.Session, error) {
	sh := m.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	if s, ok := sh.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

// Delete removes a session from its shard.
func (m *memory) Delete(ctx context.Context, id string) error {
	sh := m.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.sessions, id)
	return nil
}

// Len sums the shard sizes.
func (m *memory) Len() int {
	n := 0
	for _, sh := range m.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
