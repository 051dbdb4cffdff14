package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/wricardo/mcp-training/riddlematch/game/clock"
	"github.com/wricardo/mcp-training/riddlematch/game/engine"
	"github.com/wricardo/mcp-training/riddlematch/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
)

// Manager handles game session lifecycle. Sessions leave the manager only
// as copies; the stored records are touched under mu alone.
type Manager struct {
	sessions map[string]*service.Session
	clock    clock.Clock
	options  []engine.Option
	mu       sync.RWMutex
}

// NewManager creates a new session manager. clk stamps session access times
// and drives every game the manager creates; nil means the wall clock. The
// engine options are applied to every game as well.
func NewManager(clk clock.Clock, opts ...engine.Option) *Manager {
	if clk == nil {
		clk = clock.Real()
	}
	return &Manager{
		sessions: make(map[string]*service.Session),
		clock:    clk,
		options:  append([]engine.Option{engine.WithClock(clk)}, opts...),
	}
}

// Create creates a new idle session with the given ID and catalog.
// An empty ID gets a random 4-character one.
func (m *Manager) Create(id, catalogID string, catalog *engine.Catalog, renderers service.RendererFactory) (service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateUniqueIDLocked()
	}

	// IDs are unique regardless of case
	if _, exists := m.sessions[strings.ToLower(id)]; exists {
		return service.Session{}, ErrSessionAlreadyExists
	}

	opts := append([]engine.Option(nil), m.options...)
	if renderers != nil {
		opts = append(opts, engine.WithRenderer(renderers(id)))
	}

	game, err := engine.NewGameSession(catalog, opts...)
	if err != nil {
		return service.Session{}, fmt.Errorf("failed to create game: %w", err)
	}

	now := m.clock.Now()
	session := &service.Session{
		ID:             id,
		Game:           game,
		Catalog:        game.GetCatalog(),
		CatalogID:      catalogID,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	m.sessions[strings.ToLower(id)] = session
	return *session, nil
}

// Touch records an access to a session and returns a copy of it (case-insensitive)
func (m *Manager) Touch(id string) (service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return service.Session{}, ErrSessionNotFound
	}

	session.LastAccessedAt = m.clock.Now()
	return *session, nil
}

// List returns copies of all active sessions, oldest first
func (m *Manager) List() []service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := lo.Map(lo.Values(m.sessions), func(s *service.Session, _ int) service.Session { return *s })
	sortByCreation(result)
	return result
}

// Delete ends the game of a session and removes it
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	session, exists := m.sessions[strings.ToLower(id)]
	if exists {
		delete(m.sessions, strings.ToLower(id))
	}
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}

	// Stop pending timers so nothing renders for a removed session
	session.Game.End(engine.EndTimedOut)
	return nil
}

// CleanupExpiredSessions ends and removes sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := m.clock.Now().Add(-maxAge)

	m.mu.Lock()
	expired := lo.PickBy(m.sessions, func(_ string, s *service.Session) bool {
		return s.LastAccessedAt.Before(cutoff)
	})
	for key := range expired {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	for _, session := range expired {
		session.Game.End(engine.EndTimedOut)
		log.Printf("Expired session %s (last accessed %s)", session.ID, session.LastAccessedAt.Format(time.RFC3339))
	}

	return len(expired)
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateUniqueIDLocked generates a random 4-character session ID not yet in use
func (m *Manager) generateUniqueIDLocked() string {
	for {
		id := generateSessionID()
		if _, exists := m.sessions[id]; !exists {
			return id
		}
	}
}

// generateSessionID generates a random 4-character session ID
func generateSessionID() string {
	// 2 random bytes give 4 hex characters
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func sortByCreation(sessions []service.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}
