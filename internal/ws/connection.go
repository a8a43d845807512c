package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send buffer full")
)

type Options struct {
	SendBuffer     int
	PingInterval   time.Duration
	WriteDeadline  time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

// Frame is the JSON envelope of every server-to-client message.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Connection is one live socket. It implements registry.Conn.
type Connection struct {
	id     string
	userID string
	ws     *websocket.Conn
	send   chan Frame
	opts   Options
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewConnection(conn *websocket.Conn, userID string, opts Options) *Connection {
	return &Connection{
		id:     uuid.NewString(),
		userID: userID,
		ws:     conn,
		send:   make(chan Frame, opts.SendBuffer),
		opts:   opts,
		done:   make(chan struct{}),
	}
}

func (c *Connection) ID() string     { return c.id }
func (c *Connection) UserID() string { return c.userID }

// Send queues a frame without blocking.
func (c *Connection) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- Frame{Event: event, Data: payload}:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Close stops accepting frames; the write pump drains what is queued and sends a close frame.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump consumes inbound frames until the peer goes away. Clients do not send commands
// over the socket; reading keeps pong handling and close detection working.
func (c *Connection) readPump() {
	c.ws.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		close(c.done)
	}()
	for {
		select {
		case f, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteDeadline))
			if !ok {
				_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				return
			}
			b, err := json.Marshal(f)
			if err != nil {
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteDeadline)); err != nil {
				return
			}
		}
	}
}
