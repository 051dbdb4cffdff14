// Package websocket provides WebSocket transport for Riddle Match.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - Push of every rendered snapshot, including countdown ticks
//   - Gesture commands sent by the browser
//   - Connection lifecycle management
//
// Architecture:
//
// A central Hub owns all connections. Its Run goroutine is the only code
// touching the client map; everything else talks to it over channels. The
// broadcast channel is buffered and NotifyState never blocks, because game
// timers push snapshots while holding their session lock.
//
// Message Protocol:
//
// Outgoing messages are JSON, one per frame:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//
// Incoming gesture commands:
//
//	{"type": "reveal"}
//	{"type": "drag_start"}
//	{"type": "drop", "answer": "Citizen"}
//	{"type": "drag_end"}
//	{"type": "restart"}
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"), handler)
//	})
package websocket
