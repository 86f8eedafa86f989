package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ai-app-builder/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	sendBuffer = 64
)

// Client is one subscribed connection.
type Client struct {
	conn      *websocket.Conn
	hub       *Hub
	ProjectID string

	// Buffered channel of outbound messages. Only the hub closes it.
	send chan []byte
}

func newClient(h *Hub, conn *websocket.Conn, projectID string) *Client {
	return &Client{
		conn:      conn,
		hub:       h,
		ProjectID: projectID,
		send:      make(chan []byte, sendBuffer),
	}
}

// readPump drains the connection so pongs and close frames are seen. The
// only message clients send is a heartbeat, which is echoed.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.String("project_id", c.ProjectID), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(Message{Type: MessageTypeError, Data: "Invalid message format"})
			continue
		}
		metrics.Get().RecordWebSocketMessage(msg.Type, "inbound")

		switch msg.Type {
		case MessageTypeHeartbeat:
			c.reply(Message{Type: MessageTypeHeartbeat})
		default:
			c.reply(Message{Type: MessageTypeError, Data: "Unknown message type: " + msg.Type})
		}
	}
}

// reply queues a message for this client only.
func (c *Client) reply(msg Message) {
	msg.ProjectID = c.ProjectID
	msg.Timestamp = time.Now().UTC()
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.hub.direct <- clientMessage{client: c, data: data}:
	case <-c.hub.shutdown:
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
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
