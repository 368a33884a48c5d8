package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/insights/internal/metrics"
	"github.com/dennisdiepolder/monti/insights/internal/records"
)

// ErrNotFound is returned for unknown or expired sessions
var ErrNotFound = errors.New("session not found")

// Session is one signed-in user's workspace. It owns exactly one record store.
type Session struct {
	ID        string
	User      string
	Role      string
	CreatedAt time.Time
	Store     *records.Store

	mu       sync.Mutex
	lastSeen time.Time
}

// LastSeen returns when the session was last used
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// Manager tracks live sessions and expires idle ones
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	seed     bool
	now      func() time.Time
	logger   zerolog.Logger
}

// NewManager creates a Manager. Sessions idle for longer than ttl are dropped
// by Sweep. With seed set, new sessions start with sample interactions.
func NewManager(ttl time.Duration, seed bool, logger zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		seed:     seed,
		now:      time.Now,
		logger:   logger.With().Str("component", "sessions").Logger(),
	}
}

// TTL returns the idle timeout
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create starts a new session for user
func (m *Manager) Create(user, role string) *Session {
	s := m.newSession(uuid.NewString(), user, role)

	m.mu.Lock()
	m.sessions[s.ID] = s
	active := len(m.sessions)
	m.mu.Unlock()

	m.created(s, active)
	return s
}

// Ensure returns the live session with the given id, creating it if it does
// not exist or has expired. It backs the fixed session of a bypassed gate.
// Concurrent callers for the same id all receive the same session.
func (m *Manager) Ensure(id, user, role string) *Session {
	if s, err := m.Get(id); err == nil {
		return s
	}

	m.mu.Lock()
	now := m.now()
	if s, ok := m.sessions[id]; ok && now.Sub(s.LastSeen()) <= m.ttl {
		m.mu.Unlock()
		s.touch(now)
		return s
	}
	s := m.newSession(id, user, role)
	m.sessions[id] = s
	active := len(m.sessions)
	m.mu.Unlock()

	m.created(s, active)
	return s
}

// newSession builds a session and seeds it before it is published
func (m *Manager) newSession(id, user, role string) *Session {
	now := m.now()
	s := &Session{
		ID:        id,
		User:      user,
		Role:      role,
		CreatedAt: now,
		Store:     records.NewStore(),
		lastSeen:  now,
	}
	if m.seed {
		if err := s.Store.ReplaceAll(SampleRecords(now)); err != nil {
			m.logger.Error().Err(err).Msg("failed to seed sample data")
		}
	}
	return s
}

func (m *Manager) created(s *Session, active int) {
	metrics.Get().RecordSessionCreated()
	metrics.Get().SetActiveSessions(active)
	m.logger.Info().
		Str("session_id", s.ID).
		Str("user", s.User).
		Int("records", s.Store.Len()).
		Msg("session created")
}

// Get returns a live session and marks it as used
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	now := m.now()
	if now.Sub(s.LastSeen()) > m.ttl {
		return nil, ErrNotFound
	}
	s.touch(now)
	return s, nil
}

// Delete ends a session. Unknown ids are ignored.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	active := len(m.sessions)
	m.mu.Unlock()

	if ok {
		metrics.Get().SetActiveSessions(active)
		m.logger.Info().Str("session_id", id).Msg("session ended")
	}
}

// Len returns the number of tracked sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops every session idle for longer than the ttl and returns how
// many were removed
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastSeen()) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	active := len(m.sessions)
	m.mu.Unlock()

	if removed > 0 {
		metrics.Get().RecordSessionsExpired(removed)
		m.logger.Info().Int("expired", removed).Int("active", active).Msg("expired idle sessions")
	}
	metrics.Get().SetActiveSessions(active)
	return removed
}

// Run sweeps expired sessions every interval until ctx is cancelled
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", interval).Dur("ttl", m.ttl).Msg("session janitor started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("session janitor stopped")
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
