package ws

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// conn is the slice of *websocket.Conn the pumps need; tests substitute a
// fake.
type conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

type Client struct {
	UserID string
	Send   chan []byte

	conn      conn
	connected time.Time

	mu     sync.Mutex
	closed bool
}

func NewClient(c conn, userID string) *Client {
	return &Client{
		UserID:    userID,
		Send:      make(chan []byte, 256),
		conn:      c,
		connected: time.Now().UTC(),
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	_ = c.conn.Close()
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings. One goroutine per socket.
func (c *Client) writePump(pingInterval, writeDeadline time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.Send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
