package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PumpConfig bounds socket reads and writes.
type PumpConfig struct {
	WriteTimeout time.Duration
	PongTimeout  time.Duration
	MaxMessage   int64
}

// Client is one live socket. Frames are queued on send and written by writePump.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	info   ConnInfo
	mu     sync.Mutex
	closed bool
}

// NewClient wraps conn. A nil conn is allowed for in-memory use.
func NewClient(conn *websocket.Conn, info ConnInfo, buffer int) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	return &Client{
		conn: conn,
		send: make(chan []byte, buffer),
		info: info,
	}
}

func (c *Client) UserID() int {
	return c.info.UserID
}

func (c *Client) ID() string {
	return c.info.ConnID
}

func (c *Client) Info() ConnInfo {
	return c.info
}

// Outbound exposes queued frames for readers other than writePump.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// Enqueue queues a frame without blocking. It reports false when the client is
// closed or too slow; a slow client gets its socket closed.
func (c *Client) Enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		if c.conn != nil {
			_ = c.conn.Close()
		}
		return false
	}
}

func (c *Client) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

func (c *Client) writePump(cfg PumpConfig) {
	ticker := time.NewTicker(cfg.PongTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump dispatches inbound frames to the hub until the socket fails.
func (c *Client) readPump(h *Hub, cfg PumpConfig) error {
	c.conn.SetReadLimit(cfg.MaxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		h.HandleFrame(c, raw)
	}
}
