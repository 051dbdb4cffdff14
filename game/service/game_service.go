package service

import (
	"context"

	"github.com/wricardo/mcp-training/riddlematch/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, catalogID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Gestures
	Start(ctx context.Context, sessionID string) (*ActionResult, error)
	Reveal(ctx context.Context, sessionID string) (*ActionResult, error)
	AttemptMatch(ctx context.Context, sessionID, answer string) (*ActionResult, error)
	BeginDrag(ctx context.Context, sessionID string) (*ActionResult, error)
	EndDrag(ctx context.Context, sessionID string) (*ActionResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Catalogs
	ListCatalogs(ctx context.Context) ([]*CatalogInfo, error)
	LoadCatalog(ctx context.Context, catalogID string) (*engine.Catalog, error)
	SaveCatalog(ctx context.Context, catalogID string, catalog *engine.Catalog) error
}

// RendererFactory builds the renderer of a session once its ID is known
type RendererFactory func(sessionID string) engine.Renderer

// SessionManager defines session storage operations. Sessions are handed
// out as copies so callers never share the stored record.
type SessionManager interface {
	Create(id, catalogID string, catalog *engine.Catalog, renderers RendererFactory) (Session, error)
	Touch(id string) (Session, error)
	List() []Session
	Delete(id string) error
}

// CatalogManager handles riddle catalog loading
type CatalogManager interface {
	LoadCatalog(name string) (*engine.Catalog, error)
	ListCatalogs() ([]*CatalogInfo, error)
	GetDefault() *engine.Catalog
	SaveCatalog(name string, catalog *engine.Catalog) error
}

// StateNotifier receives every snapshot a session renders, including the
// ones produced by timers. NotifyState runs under the session lock and must
// not block.
type StateNotifier interface {
	NotifyState(sessionID string, state *engine.GameState)
}

// NotifierFunc adapts a function to the StateNotifier interface
type NotifierFunc func(sessionID string, state *engine.GameState)

// NotifyState calls f(sessionID, state)
func (f NotifierFunc) NotifyState(sessionID string, state *engine.GameState) {
	f(sessionID, state)
}
