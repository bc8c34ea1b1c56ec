package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// UserID is empty for anonymous connections.
	UserID string

	// Topics the client is subscribed to on registration.
	Topics []string

	// Buffered channel of outbound messages.
	Send chan []byte
}

// NewClient creates a client subscribed to topics.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, topics ...string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		UserID: userID,
		Topics: topics,
		Send:   make(chan []byte, 256),
	}
}

// ReadPump pumps messages from the connection to handle until the
// connection fails, then unregisters the client, which stops WritePump.
func (c *Client) ReadPump(handle func(c *Client, message []byte)) {
	defer func() {
		select {
		case c.hub.Unregister <- c:
		case <-c.hub.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("user_id", c.UserID).Msg("Websocket read error")
			}
			return
		}
		handle(c, message)
	}
}

// WritePump pumps messages from the hub to the connection and keeps it
// alive with pings. It returns when Send is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
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
