// Package session provides session management for Riddle Match.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session lifecycle management
//   - Concurrent access control
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Session represents an individual game session with its own GameSession,
// the catalog it plays, and metadata like creation time and last access time.
//
// Session Identifiers:
//
// Sessions use 4-character hexadecimal IDs for easy reference. The manager
// ensures IDs are unique and provides collision-resistant generation using
// cryptographic randomness.
//
// Concurrency:
//
// The session manager is thread-safe and supports concurrent operations.
// Multiple goroutines can safely create, retrieve, and modify different
// sessions simultaneously. Sessions are returned as copies taken under the
// manager lock; the game inside a copy is shared and locks itself.
//
// Usage:
//
//	manager := session.NewManager(clock.Real())
//
//	// Create a new session
//	sess, err := manager.Create("", "community", catalog, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Retrieve a copy of an existing session, recording the access
//	sess, err = manager.Touch(sessionID)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// List all active sessions
//	sessions := manager.List()
//
// Cleanup:
//
// Sessions can be explicitly deleted or may expire based on inactivity.
// Either way the session's game is ended first, which cancels its countdown
// and every other pending timer. Sessions live in memory only.
package session
