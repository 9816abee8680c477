// internal/store/memory.go
//
// In-memory registry of live game sessions, one per device.
//
// Characteristics:
//   - Stores *game.Session keyed by device ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Idle sessions are closed by Sweep, which also cancels their clocks.
//     A session with a live event subscriber is never idle.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordripple/internal/game"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("store: session not found")

// Store defines the registry interface for live sessions.
type Store interface {
	// Save registers s under key, closing any session it replaces.
	Save(ctx context.Context, key string, s *game.Session) error

	// Get retrieves the session for key.
	// Returns ErrNotFound if none is registered.
	Get(ctx context.Context, key string) (*game.Session, error)

	// Delete closes and forgets the session for key.
	Delete(ctx context.Context, key string)
}

// Memory is an in-memory map-based Store implementation.
type Memory struct {
	mu       sync.RWMutex             // guards sessions map
	sessions map[string]*game.Session // keyed by device ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() *Memory {
	return &Memory{sessions: make(map[string]*game.Session)}
}

// Save adds or replaces the session for key.
func (m *Memory) Save(_ context.Context, key string, s *game.Session) error {
	m.mu.Lock()
	old := m.sessions[key]
	m.sessions[key] = s
	m.mu.Unlock()
	if old != nil && old != s {
		old.Close()
	}
	return nil
}

// Get looks up a session by key.
func (m *Memory) Get(_ context.Context, key string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

// Delete removes and closes the session for key, if any.
func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	s := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// Len returns the number of live sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes every unwatched session last touched before cutoff and returns
// how many were removed.
func (m *Memory) Sweep(cutoff time.Time) int {
	var stale []*game.Session
	m.mu.Lock()
	for key, s := range m.sessions {
		if !s.Watched() && s.LastAccess().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

// CloseAll closes every session, flushing any classic score still in its
// expiry grace. Used at shutdown.
func (m *Memory) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*game.Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}

// StartSweeper removes sessions idle for longer than ttl every interval until
// ctx is done.
func (m *Memory) StartSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(time.Now().Add(-ttl)); n > 0 {
					log.Info().Int("removed", n).Int("live", m.Len()).Msg("swept idle sessions")
				}
			}
		}
	}()
}
