// Package websocket streams project snapshots to browsers. Each project
// is a room; every client in it receives the project's snapshots as they
// change.
package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ai-app-builder/internal/logging"
	"ai-app-builder/internal/metrics"
)

// Message types for WebSocket communication
const (
	MessageTypeSubscribed = "subscribed"
	MessageTypeSnapshot   = "snapshot"
	MessageTypeError      = "error"
	MessageTypeHeartbeat  = "heartbeat"
)

// Message is the envelope for everything sent over the socket.
type Message struct {
	Type      string    `json:"type"`
	ProjectID string    `json:"projectId,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SnapshotSource returns the current state of a project so new clients
// start from it. A nil result sends no initial data.
type SnapshotSource func(ctx context.Context, projectID string) (any, error)

// Options configures a Hub.
type Options struct {
	// AllowedOrigins lists accepted Origin headers. Empty means any.
	AllowedOrigins []string
	// Production rejects requests without an Origin header.
	Production bool
	Source     SnapshotSource
	Logger     *zap.Logger
}

type roomMessage struct {
	room string
	data []byte
}

type clientMessage struct {
	client *Client
	data   []byte
}

// Hub maintains active client connections and manages message broadcasting
type Hub struct {
	// Registered clients by project ID
	rooms map[string]map[*Client]bool

	broadcast  chan roomMessage
	direct     chan clientMessage
	register   chan *Client
	unregister chan *Client

	// Shutdown channel for graceful termination
	shutdown     chan struct{}
	shutdownOnce sync.Once

	// guards clients, read by ClientCount
	mu      sync.RWMutex
	clients int

	upgrader websocket.Upgrader
	source   SnapshotSource
	logger   *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(opts Options) *Hub {
	h := &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan roomMessage, 256),
		direct:     make(chan clientMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		shutdown:   make(chan struct{}),
		source:     opts.Source,
		logger:     logging.OrDefault(opts.Logger).Named("websocket"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(opts.AllowedOrigins, opts.Production),
	}
	return h
}

func originChecker(allowed []string, production bool) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// tools and tests send no origin
			return !production
		}
		if len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a = strings.TrimSpace(a); a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Run starts the hub's main loop. Room membership is only changed here.
func (h *Hub) Run() {
	for {
		select {
		case <-h.shutdown:
			for _, room := range h.rooms {
				for client := range room {
					close(client.send)
				}
			}
			h.rooms = make(map[string]map[*Client]bool)
			h.setCounts(0)
			h.logger.Info("websocket hub shutdown complete")
			return

		case client := <-h.register:
			if h.rooms[client.ProjectID] == nil {
				h.rooms[client.ProjectID] = make(map[*Client]bool)
			}
			h.rooms[client.ProjectID][client] = true
			h.setCounts(h.count() + 1)
			metrics.Get().RecordWebSocketConnection(1)
			h.logger.Debug("client registered",
				zap.String("project_id", client.ProjectID),
				zap.Int("room_size", len(h.rooms[client.ProjectID])),
			)

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.direct:
			// dropped when the client already left or is backed up
			if h.rooms[msg.client.ProjectID][msg.client] {
				select {
				case msg.client.send <- msg.data:
				default:
				}
			}

		case msg := <-h.broadcast:
			for client := range h.rooms[msg.room] {
				select {
				case client.send <- msg.data:
				default:
					// too slow to keep up; drop it
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	room := h.rooms[client.ProjectID]
	if !room[client] {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.ProjectID)
	}
	close(client.send)
	h.setCounts(h.count() - 1)
	metrics.Get().RecordWebSocketConnection(-1)
	h.logger.Debug("client unregistered", zap.String("project_id", client.ProjectID))
}

func (h *Hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients
}

func (h *Hub) setCounts(n int) {
	h.mu.Lock()
	h.clients = n
	h.mu.Unlock()
}

// Shutdown gracefully stops the hub
func (h *Hub) Shutdown() {
	h.shutdownOnce.Do(func() { close(h.shutdown) })
}

// ClientCount returns the total number of connected clients
func (h *Hub) ClientCount() int { return h.count() }

// Publish sends v as a snapshot to every client watching projectID.
func (h *Hub) Publish(projectID string, v any) {
	h.send(projectID, Message{
		Type:      MessageTypeSnapshot,
		ProjectID: projectID,
		Data:      v,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Hub) send(projectID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("project_id", projectID), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- roomMessage{room: projectID, data: data}:
		metrics.Get().RecordWebSocketMessage(msg.Type, "outbound")
	case <-h.shutdown:
	}
}

// HandleWebSocket upgrades GET /ws/projects/:id and subscribes the
// connection to that project.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	projectID := c.Param("id")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project id is required"})
		return
	}

	var initial any
	if h.source != nil {
		v, err := h.source(c.Request.Context(), projectID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		initial = v
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h, conn, projectID)
	hello, _ := json.Marshal(Message{
		Type:      MessageTypeSubscribed,
		ProjectID: projectID,
		Data:      initial,
		Timestamp: time.Now().UTC(),
	})
	client.send <- hello

	select {
	case h.register <- client:
	case <-h.shutdown:
		conn.Close()
		return
	}
	h.catchUp(c.Request.Context(), client, initial)

	go client.writePump()
	go client.readPump()
}

// catchUp re-reads the project once the client is in its room and sends
// the result if it changed since the subscribed message was built.
// Publishes made between the two reads are otherwise missed.
func (h *Hub) catchUp(ctx context.Context, client *Client, initial any) {
	if h.source == nil {
		return
	}
	v, err := h.source(ctx, client.ProjectID)
	if err != nil {
		return
	}
	before, _ := json.Marshal(initial)
	now, err := json.Marshal(v)
	if err != nil || bytes.Equal(before, now) {
		return
	}
	client.reply(Message{Type: MessageTypeSnapshot, Data: v})
}
