package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/typerace/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Ping period; must be less than pongWait
	pingPeriod = 54 * time.Second

	// Largest inbound message accepted
	maxMessageSize = 4096

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client is one WebSocket connection. Its key doubles as the player key in rooms.
type Client struct {
	key      model.PlayerKey
	identity model.Identity
	conn     *websocket.Conn
	send     chan []byte
}

func newClient(key model.PlayerKey, identity model.Identity, conn *websocket.Conn) *Client {
	return &Client{
		key:      key,
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
	}
}

// Key returns the connection id
func (c *Client) Key() model.PlayerKey {
	return c.key
}

// writePump drains the send channel to the socket and pings the peer.
// It exits when the hub closes the send channel or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
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
