// Package service provides the business logic layer for Riddle Match.
//
// The service package implements:
//   - Multi-session game management
//   - Catalog listing, loading and saving
//   - Gesture dispatch (start, reveal, match, drag)
//   - Forwarding of every rendered snapshot to a StateNotifier
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// CatalogManager manages riddle catalog loading and validation.
// StateNotifier receives snapshots, including those produced by countdown ticks
// and delayed transitions that no request triggered.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own GameSession with independent
// timers; the renderer of each session is built by the service so that pushes
// are tagged with the session ID.
//
// Usage:
//
//	hub := websocket.NewHub()
//	sessionMgr := session.NewManager(clock.Real())
//	catalogMgr, _ := config.NewManager("catalogs")
//	gameService := service.NewGameService(sessionMgr, catalogMgr, hub)
//
//	info, err := gameService.CreateSession(ctx, "community")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameService.Reveal(ctx, info.ID)
//	result, err := gameService.AttemptMatch(ctx, info.ID, "Citizen")
package service
