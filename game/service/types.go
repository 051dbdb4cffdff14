package service

import (
	"time"

	"github.com/wricardo/mcp-training/riddlematch/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	CatalogID      string            `json:"catalog_id"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

// ActionResult contains the result of a gesture on a session
type ActionResult struct {
	Action    string              `json:"action"`
	Accepted  bool                `json:"accepted"`
	Outcome   engine.MatchOutcome `json:"outcome,omitempty"`
	Message   string              `json:"message"`
	GameState *engine.GameState   `json:"game_state"`
}

// CatalogInfo provides information about a riddle catalog
type CatalogInfo struct {
	Filename    string   `json:"filename"`
	CatalogID   string   `json:"catalog_id"` // The identifier to use for session creation
	Name        string   `json:"name"`       // Display name
	Description string   `json:"description"`
	Subject     string   `json:"subject,omitempty"`
	RiddleCount int      `json:"riddle_count"`
	Answers     []string `json:"answers"`
}

// Session represents an active game session
type Session struct {
	ID             string
	Game           *engine.GameSession
	Catalog        *engine.Catalog
	CatalogID      string
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Gesture action names shared by the REST, WebSocket and MCP transports
const (
	ActionStart     = "start"
	ActionReveal    = "reveal"
	ActionMatch     = "match"
	ActionDragStart = "drag_start"
	ActionDragEnd   = "drag_end"
)
