package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/mcp-training/riddlematch/game/engine"
	"github.com/wricardo/mcp-training/riddlematch/game/service"
	"github.com/wricardo/mcp-training/riddlematch/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	limiter *rateLimiter
}

// Option configures a Server
type Option func(*Server)

// WithRateLimit enables per-client-IP rate limiting of the API routes.
// A non-positive rps disables it.
func WithRateLimit(rps, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = newRateLimiter(rps, burst)
		}
	}
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(requestIDMiddleware)

	api := s.router.PathPrefix("/api").Subrouter()
	if s.limiter != nil {
		api.Use(s.limiter.middleware)
	}

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/start", s.handleStart).Methods("POST")
	api.HandleFunc("/sessions/{id}/reveal", s.handleReveal).Methods("POST")
	api.HandleFunc("/sessions/{id}/match", s.handleMatch).Methods("POST")
	api.HandleFunc("/sessions/{id}/drag-start", s.handleDragStart).Methods("POST")
	api.HandleFunc("/sessions/{id}/drag-end", s.handleDragEnd).Methods("POST")

	// Catalogs
	api.HandleFunc("/catalogs", s.handleListCatalogs).Methods("GET")
	api.HandleFunc("/catalogs", s.handleCreateCatalog).Methods("POST")
	api.HandleFunc("/catalogs/{name}", s.handleGetCatalog).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service sentinel errors to status codes
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrCatalogNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidCatalog):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CatalogID string `json:"catalog_id,omitempty"`
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	session, err := s.service.CreateSession(r.Context(), req.CatalogID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[SESSION] created session=%s catalog=%s request=%s", session.ID, session.CatalogID, RequestID(r.Context()))
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total := len(sessions)

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	limit := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventSessionDeleted, nil)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.respondAction(w, r, s.service.Start)
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	s.respondAction(w, r, s.service.Reveal)
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	s.respondAction(w, r, s.service.BeginDrag)
}

func (s *Server) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	s.respondAction(w, r, s.service.EndDrag)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Answer string `json:"answer"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		respondError(w, http.StatusBadRequest, "answer is required")
		return
	}

	result, err := s.service.AttemptMatch(r.Context(), sessionID, req.Answer)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// Compact server log for observability
	log.Printf("[MATCH] session=%s answer=%q outcome=%s score=%d/%d time=%d",
		sessionID, req.Answer, result.Outcome, result.GameState.Score, result.GameState.TotalRiddles, result.GameState.TimeRemaining)

	respondJSON(w, http.StatusOK, result)
}

// respondAction runs a gesture without a request body
func (s *Server) respondAction(w http.ResponseWriter, r *http.Request, action func(context.Context, string) (*service.ActionResult, error)) {
	sessionID := mux.Vars(r)["id"]

	result, err := action(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[%s] session=%s accepted=%t phase=%s", strings.ToUpper(result.Action), sessionID, result.Accepted, result.GameState.Phase)
	respondJSON(w, http.StatusOK, result)
}

// Catalog Handlers

func (s *Server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	catalogs, err := s.service.ListCatalogs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, catalogs)
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	catalogID := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	catalog, err := s.service.LoadCatalog(r.Context(), catalogID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, catalog)
}

func (s *Server) handleCreateCatalog(w http.ResponseWriter, r *http.Request) {
	var catalog engine.Catalog

	if err := json.NewDecoder(r.Body).Decode(&catalog); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if catalog.Name == "" {
		respondError(w, http.StatusBadRequest, "Catalog name is required")
		return
	}

	catalogID := r.URL.Query().Get("id")
	if catalogID == "" {
		catalogID = catalogIDFromName(catalog.Name)
	}

	if err := s.service.SaveCatalog(r.Context(), catalogID, &catalog); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Catalog saved successfully",
		"catalog_id": catalogID,
	})
}

// catalogIDFromName derives a file-safe ID such as "my-jobs" from "My Jobs"
func catalogIDFromName(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID, websocket.CommandHandlerFunc(s.handleCommand))

	// Bring the new client up to date
	s.hub.NotifyState(sessionID, state)
}

// handleCommand applies a gesture sent over the WebSocket
func (s *Server) handleCommand(ctx context.Context, sessionID string, cmd websocket.Command) error {
	var err error
	switch cmd.Type {
	case websocket.CommandReveal:
		_, err = s.service.Reveal(ctx, sessionID)
	case websocket.CommandDragStart:
		_, err = s.service.BeginDrag(ctx, sessionID)
	case websocket.CommandDragEnd:
		_, err = s.service.EndDrag(ctx, sessionID)
	case websocket.CommandRestart:
		_, err = s.service.Start(ctx, sessionID)
	case websocket.CommandDrop:
		var result *service.ActionResult
		result, err = s.service.AttemptMatch(ctx, sessionID, cmd.Answer)
		if err == nil {
			log.Printf("[MATCH] session=%s answer=%q outcome=%s score=%d/%d time=%d (ws)",
				sessionID, cmd.Answer, result.Outcome, result.GameState.Score, result.GameState.TotalRiddles, result.GameState.TimeRemaining)
		}
	default:
		return fmt.Errorf("unknown command type %q", cmd.Type)
	}
	return err
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
