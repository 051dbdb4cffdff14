// Package mcp exposes Riddle Match to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// the api package, so agents and browsers share the same sessions.
//
// MCP Tools:
//   - create_session, list_sessions, get_session, delete_session
//   - game_state: phase, round, countdown, revealed riddle and icon pile
//   - start_game, reveal_riddle, match_icon: the player gestures
//   - list_catalogs: available riddle decks
//   - game_instructions: rules and tips
//
// Transport Modes:
//
// The same MCP server is served over stdio for local agents, and the main
// server accepts JSON-RPC messages as POST requests on /mcp.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
