package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/riddlematch/game/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Pending broadcasts before new ones are dropped. Timer callbacks
	// enqueue while holding a session lock, so they must never block.
	broadcastBuffer = 256

	// Time allowed for a gesture command to run
	commandTimeout = 5 * time.Second
)

// Event names
const (
	EventStateUpdate    = "state_update"
	EventSessionDeleted = "session_deleted"
)

// Inbound command types
const (
	CommandReveal    = "reveal"
	CommandDragStart = "drag_start"
	CommandDragEnd   = "drag_end"
	CommandDrop      = "drop"
	CommandRestart   = "restart"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// Message is an outbound WebSocket message
type Message struct {
	SessionID string            `json:"session_id"`
	GameState *engine.GameState `json:"game_state,omitempty"`
	Event     string            `json:"event,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
}

// Command is a gesture sent by a client
type Command struct {
	Type   string `json:"type"`
	Answer string `json:"answer,omitempty"`
}

// CommandHandler applies client gestures to a session
type CommandHandler interface {
	HandleCommand(ctx context.Context, sessionID string, cmd Command) error
}

// CommandHandlerFunc adapts a function to the CommandHandler interface
type CommandHandlerFunc func(ctx context.Context, sessionID string, cmd Command) error

// HandleCommand calls f(ctx, sessionID, cmd)
func (f CommandHandlerFunc) HandleCommand(ctx context.Context, sessionID string, cmd Command) error {
	return f(ctx, sessionID, cmd)
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	commands  CommandHandler
}

// Hub maintains the set of active clients and broadcasts messages.
// The sessions map is only touched by the Run goroutine.
type Hub struct {
	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Outbound messages for clients
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS upgrades the request and attaches the client to a session.
// Commands read from the connection are passed to commands, which may be nil.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string, commands CommandHandler) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
		commands:  commands,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// NotifyState pushes a snapshot to every client of a session. It never
// blocks: when the hub is backed up the snapshot is dropped.
func (h *Hub) NotifyState(sessionID string, state *engine.GameState) {
	h.enqueue(&Message{
		SessionID: sessionID,
		GameState: state,
		Event:     EventStateUpdate,
	})
}

// BroadcastEvent sends a custom event to all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.enqueue(&Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	})
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		log.Printf("WebSocket broadcast queue full, dropping %s for session %s", message.Event, message.SessionID)
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	log.Printf("Client registered for session %s (total clients: %d)",
		client.sessionID, len(h.sessions[client.sessionID]))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}

			log.Printf("Client unregistered from session %s (remaining clients: %d)",
				client.sessionID, len(clients))
		}
	}
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal broadcast message: %v", err)
		return
	}

	if clients, ok := h.sessions[message.SessionID]; ok {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				// Client's send channel is full, drop it
				h.unregisterClient(client)
			}
		}
	}
}

// readPump reads gesture commands from the connection
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	if c.commands == nil {
		return
	}

	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		log.Printf("WebSocket session %s: ignoring malformed command: %v", c.sessionID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := c.commands.HandleCommand(ctx, c.sessionID, cmd); err != nil {
		log.Printf("WebSocket session %s: command %q failed: %v", c.sessionID, cmd.Type, err)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame so clients can parse each message
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
