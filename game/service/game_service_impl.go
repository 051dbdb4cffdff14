package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"github.com/wricardo/mcp-training/riddlematch/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrCatalogNotFound = errors.New("catalog not found")
	ErrInvalidCatalog  = errors.New("invalid catalog")
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	catalogs CatalogManager
	notifier StateNotifier
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance. notifier may be nil.
func NewGameService(sessions SessionManager, catalogs CatalogManager, notifier StateNotifier) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		catalogs: catalogs,
		notifier: notifier,
	}
}

// CreateSession creates a new game session and starts its first riddle
func (s *gameServiceImpl) CreateSession(ctx context.Context, catalogID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var catalog *engine.Catalog
	var err error
	if catalogID != "" {
		catalog, err = s.catalogs.LoadCatalog(catalogID)
		if err != nil {
			if errors.Is(err, ErrCatalogNotFound) {
				available, listErr := s.catalogs.ListCatalogs()
				if listErr == nil && len(available) > 0 {
					ids := lo.Map(available, func(c *CatalogInfo, _ int) string { return c.CatalogID })
					return nil, fmt.Errorf("%w: '%s'. Available catalogs: %v", ErrCatalogNotFound, catalogID, ids)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/catalogs to list available catalogs", ErrCatalogNotFound, catalogID)
			}
			return nil, fmt.Errorf("failed to load catalog %s: %w", catalogID, err)
		}
	} else {
		catalog = s.catalogs.GetDefault()
		catalogID = s.getCatalogID(catalog.Name)
	}

	sess, err := s.sessions.Create("", catalogID, catalog, s.rendererFor)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.Game.Start()

	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.sessions.List(), func(sess Session, _ int) *SessionInfo {
		return sessionInfo(sess)
	}), nil
}

// DeleteSession ends and removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Start restarts the game of a session with a freshly shuffled catalog
func (s *gameServiceImpl) Start(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, ActionStart, func(game *engine.GameSession) (bool, engine.MatchOutcome) {
		game.Start()
		return true, ""
	})
}

// Reveal flips the riddle card of a session
func (s *gameServiceImpl) Reveal(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, ActionReveal, func(game *engine.GameSession) (bool, engine.MatchOutcome) {
		return game.Reveal(), ""
	})
}

// AttemptMatch drops the icon card bearing answer onto the riddle
func (s *gameServiceImpl) AttemptMatch(ctx context.Context, sessionID, answer string) (*ActionResult, error) {
	return s.act(sessionID, ActionMatch, func(game *engine.GameSession) (bool, engine.MatchOutcome) {
		outcome := game.AttemptMatch(answer)
		return outcome != engine.MatchRejected, outcome
	})
}

// BeginDrag picks up an icon card
func (s *gameServiceImpl) BeginDrag(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, ActionDragStart, func(game *engine.GameSession) (bool, engine.MatchOutcome) {
		return game.BeginDrag(), ""
	})
}

// EndDrag releases the icon card and schedules the input unlock
func (s *gameServiceImpl) EndDrag(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, ActionDragEnd, func(game *engine.GameSession) (bool, engine.MatchOutcome) {
		game.UnlockInput()
		return true, ""
	})
}

// GetGameState returns the current snapshot of a session
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	return sess.Game.GetState(), nil
}

// ListCatalogs returns all available catalogs
func (s *gameServiceImpl) ListCatalogs(ctx context.Context) ([]*CatalogInfo, error) {
	return s.catalogs.ListCatalogs()
}

// LoadCatalog loads a catalog by ID
func (s *gameServiceImpl) LoadCatalog(ctx context.Context, catalogID string) (*engine.Catalog, error) {
	return s.catalogs.LoadCatalog(catalogID)
}

// SaveCatalog validates and stores a catalog
func (s *gameServiceImpl) SaveCatalog(ctx context.Context, catalogID string, catalog *engine.Catalog) error {
	return s.catalogs.SaveCatalog(catalogID, catalog)
}

// act runs a gesture against a session and wraps the snapshot it leaves behind
func (s *gameServiceImpl) act(sessionID, action string, gesture func(*engine.GameSession) (bool, engine.MatchOutcome)) (*ActionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	accepted, outcome := gesture(sess.Game)
	state := sess.Game.GetState()

	return &ActionResult{
		Action:    action,
		Accepted:  accepted,
		Outcome:   outcome,
		Message:   state.Status,
		GameState: state,
	}, nil
}

// touch looks up a session and records the access
func (s *gameServiceImpl) touch(sessionID string) (Session, error) {
	sess, err := s.sessions.Touch(sessionID)
	if err != nil {
		return Session{}, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return sess, nil
}

// rendererFor forwards every render of a session to the notifier
func (s *gameServiceImpl) rendererFor(sessionID string) engine.Renderer {
	return engine.RenderFunc(func(state *engine.GameState) {
		if s.notifier != nil {
			s.notifier.NotifyState(sessionID, state)
		}
	})
}

// getCatalogID returns the catalog_id for a display name, used for consistent API responses
func (s *gameServiceImpl) getCatalogID(name string) string {
	available, err := s.catalogs.ListCatalogs()
	if err == nil {
		if info, ok := lo.Find(available, func(c *CatalogInfo) bool { return c.Name == name }); ok {
			return info.CatalogID
		}
	}
	if name == "" {
		return "default"
	}
	return name
}

func sessionInfo(sess Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		CatalogID:      sess.CatalogID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Game.GetState(),
	}
}
