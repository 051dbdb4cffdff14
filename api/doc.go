// Package api provides the HTTP REST API for Riddle Match.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session and start its game ({"catalog_id": "community"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - End and remove a session
//
// Gestures:
//   - GET /api/sessions/{id}/state - Current snapshot
//   - POST /api/sessions/{id}/start - Restart with a reshuffled deck
//   - POST /api/sessions/{id}/reveal - Flip the riddle card
//   - POST /api/sessions/{id}/drag-start - Pick up an icon card
//   - POST /api/sessions/{id}/match - Drop a card ({"answer": "Citizen"})
//   - POST /api/sessions/{id}/drag-end - Release the card
//
// Catalogs:
//   - GET /api/catalogs - List catalogs
//   - GET /api/catalogs/{id} - Get one catalog
//   - POST /api/catalogs - Validate and save a catalog (?id= overrides the derived ID)
//
// Other:
//   - GET /ws?session={id} - WebSocket state push and gesture commands
//   - GET /healthz - Health check
//
// Every response carries an X-Request-Id header. API routes can be rate
// limited per client IP with WithRateLimit.
//
// Errors are returned as JSON with an appropriate status code:
//
//	{"error": "session ab12: session not found"}
package api
