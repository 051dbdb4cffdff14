package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"
	"github.com/wricardo/mcp-training/riddlematch/game/engine"
	"github.com/wricardo/mcp-training/riddlematch/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Riddle Match",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Riddle Match - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Match every riddle to the icon card that answers it. Each riddle must be
answered within 20 seconds of revealing it or the game ends.

AVAILABLE TOOLS:
- create_session: Create a new game session (the game starts right away)
- list_sessions: List all active sessions
- get_session: Get session details
- delete_session: End and remove a session
- game_state: Get current game state
- start_game: Restart a session with a freshly shuffled deck
- reveal_riddle: Flip the riddle card and start the countdown
- match_icon: Drop an icon card on the revealed riddle
- list_catalogs: List available riddle catalogs
- game_instructions: Get comprehensive game instructions and rules

NOTE: The countdown runs in real time on the server. Reveal, then match promptly.`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional catalog selection. The first riddle is presented face down.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"catalog_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the catalog to play (optional, see list_catalogs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "End a session and remove it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleDeleteSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_game",
		Description: "Restart the game: score resets and the deck is reshuffled",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleStartGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reveal_riddle",
		Description: "Flip the riddle card to read it. Starts the 20 second countdown.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleRevealRiddle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "match_icon",
		Description: "Drop the icon card with the given answer on the revealed riddle",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"answer": map[string]interface{}{
					"type":        "string",
					"description": "Answer printed on the icon card, e.g. \"Citizen\"",
				},
				"reasoning": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why this card answers the riddle",
				},
			},
			Required: []string{"session_id", "answer"},
		},
	}, c.handleMatchIcon)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_catalogs",
		Description: "List available riddle catalogs",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListCatalogs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// requireSessionID returns a tool error result when session_id is missing
func requireSessionID(args map[string]interface{}) (string, *mcp.CallToolResult) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", mcp.NewToolResultError("session_id is required")
	}
	return sessionID, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	catalogID, _ := args["catalog_id"].(string)

	body := map[string]string{}
	if catalogID != "" {
		body["catalog_id"] = catalogID
	}

	var session service.SessionInfo
	err := c.apiCall(ctx, "POST", "/api/sessions", body, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nCatalog: %s\n\n%s", session.ID, session.CatalogID, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Active Sessions (%d):\n\n", response.Count))
	for _, s := range response.Sessions {
		phase := engine.PhaseIdle
		score := 0
		if s.GameState != nil {
			phase = s.GameState.Phase
			score = s.GameState.Score
		}
		result.WriteString(fmt.Sprintf("- %s (Catalog: %s, Phase: %s, Score: %d, Created: %s)\n",
			s.ID, s.CatalogID, phase, score, s.CreatedAt.Format("15:04:05")))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSessionID(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var session service.SessionInfo
	err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s", sessionID), nil, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSessionID(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var response struct {
		Message string `json:"message"`
	}
	err := c.apiCall(ctx, "DELETE", fmt.Sprintf("/api/sessions/%s", sessionID), nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response.Message), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSessionID(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var state engine.GameState
	err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &state)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.gesture(ctx, request, "start", nil)
}

func (c *Client) handleRevealRiddle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.gesture(ctx, request, "reveal", nil)
}

func (c *Client) handleMatchIcon(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	answer, _ := args["answer"].(string)
	if strings.TrimSpace(answer) == "" {
		return mcp.NewToolResultError("answer is required"), nil
	}

	// Reasoning serves as rubber duck debugging; the server does not need it
	reasoning, _ := args["reasoning"].(string)
	_ = reasoning

	return c.gesture(ctx, request, "match", map[string]string{"answer": answer})
}

// gesture posts a session action and formats the result
func (c *Client) gesture(ctx context.Context, request mcp.CallToolRequest, action string, body interface{}) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSessionID(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var result service.ActionResult
	err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/%s", sessionID, action), body, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleListCatalogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var catalogs []service.CatalogInfo
	err := c.apiCall(ctx, "GET", "/api/catalogs", nil, &catalogs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Catalogs:\n\n")
	for _, catalog := range catalogs {
		result.WriteString(fmt.Sprintf("• %s (id: %s)\n  %s\n  Riddles: %d, Answers: %s\n\n",
			catalog.Name, catalog.CatalogID, catalog.Description, catalog.RiddleCount, strings.Join(catalog.Answers, ", ")))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := fmt.Sprintf(`Riddle Match - Complete Instructions

GAME OBJECTIVE:
Match each riddle to the icon card naming its answer. Score one point per match.

HOW A ROUND WORKS:
1. A riddle card is presented face down. Call reveal_riddle to read it.
2. Revealing starts a %d second countdown.
3. Call match_icon with the answer printed on the matching icon card.
4. A correct match pauses briefly, then the next riddle is presented.
5. A wrong card costs nothing but time: the countdown keeps running.

GAME OVER:
• Time runs out on a revealed riddle: the game ends with your current score.
• Every riddle matched: the game is complete.

TIPS:
• Icon cards already matched stay on the pile marked as used.
• The countdown only runs while a riddle is revealed, so read the icon pile
  in game_state before revealing.
• Call start_game to play again with a reshuffled deck.

SESSIONS:
Use create_session first; every game tool needs the returned session_id.`, engine.CountdownSeconds)

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nCatalog: %s\nCreated: %s\n\n%s",
		session.ID, session.CatalogID,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder

	verdict := "accepted"
	if !result.Accepted {
		verdict = "ignored"
	}
	b.WriteString(fmt.Sprintf("Action %s: %s", result.Action, verdict))
	switch result.Outcome {
	case engine.MatchCorrect:
		b.WriteString(" (correct match!)")
	case engine.MatchIncorrect:
		b.WriteString(" (wrong card)")
	}
	b.WriteString("\n\n")
	b.WriteString(formatGameState(result.GameState))

	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder

	result.WriteString(fmt.Sprintf("Phase: %s | Round: %d/%d | Score: %d | Time: %ds\n",
		state.Phase, state.Round, state.TotalRiddles, state.Score, state.TimeRemaining))

	if state.Revealed && state.Prompt != "" {
		result.WriteString(fmt.Sprintf("\nRiddle: %s\n", state.Prompt))
	} else if state.Phase == engine.PhaseRiddlePresented {
		result.WriteString("\nRiddle: (face down, reveal it to read)\n")
	}

	if len(state.Icons) > 0 {
		available := lo.Filter(state.Icons, func(card engine.IconCard, _ int) bool { return !card.Consumed })
		result.WriteString(fmt.Sprintf("\nIcon cards (%d available):\n", len(available)))
		for _, card := range state.Icons {
			mark := " "
			if card.Consumed {
				mark = "✓"
			}
			result.WriteString(fmt.Sprintf("  [%s] %s\n", mark, card.Answer))
		}
	}

	if state.InputLocked {
		result.WriteString("\nInput locked (drag in progress)\n")
	}
	if state.NudgeVisible {
		result.WriteString("\nHint: tap the riddle card to reveal it!\n")
	}

	if state.GameOver {
		if state.EndReason == engine.EndComplete {
			result.WriteString("\n🎉 COMPLETE!")
		} else {
			result.WriteString("\n⏰ GAME OVER")
		}
		if state.Summary != "" {
			result.WriteString(fmt.Sprintf("\n%s", state.Summary))
		}
	}

	if state.Status != "" {
		result.WriteString(fmt.Sprintf("\nMessage: %s", state.Status))
	}

	return result.String()
}
