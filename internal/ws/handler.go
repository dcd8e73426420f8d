package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/beachball/backend/internal/auth"
	"github.com/beachball/backend/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are enforced by the CORS layer and the session token
	},
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBuffer     = 256
)

// Client is one websocket connection attached to a session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	session   *game.Session
	send      chan []byte
	hello     []byte // queued by the hub on registration
	log       *log.Logger
}

// HandleSession upgrades GET /ws/sessions/:id?token=... after checking that
// the token was issued for that session.
func HandleSession(hub *Hub, manager *game.Manager, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
			return
		}

		granted, err := auth.ParseSessionToken(jwtSecret, token)
		if err != nil || granted != sessionID {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid session token"})
			return
		}

		session, ok := manager.Get(sessionID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("upgrade failed", "session", sessionID, "err", err)
			return
		}

		client := &Client{
			hub:       hub,
			conn:      conn,
			sessionID: sessionID,
			session:   session,
			send:      make(chan []byte, sendBuffer),
			log:       hub.log.With("session", sessionID),
		}
		client.hello, _ = json.Marshal(outbound(msgSnapshot, session.Snapshot()))
		if !hub.join(client) {
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// queue sends directly to this client, dropping the message when its buffer
// is full.
func (c *Client) queue(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		c.log.Error("marshal message", "err", err)
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.rooms[c.sessionID][c] {
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Debug("send buffer full, dropping message")
	}
}

func (c *Client) sendError(message string) {
	c.queue(errorMessage(message))
}

// readPump decodes client messages into session commands.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket closed unexpectedly", "err", err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("invalid message")
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg WSMessage) {
	if msg.Type == msgGetState {
		c.queue(outbound(msgSnapshot, c.session.Snapshot()))
		return
	}

	cmd, err := decodeCommand(msg)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	if !c.session.Post(cmd) {
		c.sendError("session is closed or busy")
	}
}

// writePump writes messages to the WebSocket connection
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("write failed", "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("ping failed", "err", err)
				return
			}
		}
	}
}
