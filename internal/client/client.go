// Package client implements the WebSocket side of the broadcast fan-out.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/registry"
	"github.com/gorilla/websocket"
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

	// Buffer size for outbound messages
	sendBufferSize = 256
)

var (
	errClosed     = errors.New("client closed")
	errBufferFull = errors.New("send buffer full")
)

// Client is one WebSocket connection, registered as a broadcast channel.
// Outbound frames go through a buffered send channel drained by WritePump;
// inbound frames are JSON-parsed and handed to the inbound callback.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	// Called with each well-formed inbound frame.
	onInbound func(map[string]any)

	// Called once when the read pump exits.
	onClose func(*Client)

	mu     sync.Mutex
	closed bool
}

// New creates a client for an upgraded connection.
func New(id string, conn *websocket.Conn, onInbound func(map[string]any), onClose func(*Client)) *Client {
	return &Client{
		id:        id,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		onInbound: onInbound,
		onClose:   onClose,
	}
}

// ID returns the client's opaque id.
func (c *Client) ID() string { return c.id }

// Kind returns the transport kind for registry bookkeeping.
func (c *Client) Kind() registry.Kind { return registry.KindWebSocket }

// Send enqueues a frame without blocking. A full buffer means the client is
// not keeping up and counts as a write failure, so the broadcaster prunes it.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errBufferFull
	}
}

// Close stops the write pump. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

// ReadPump pumps inbound frames from the connection. Malformed JSON is logged
// and dropped with the connection kept alive; a read error ends the pump and
// fires the close callback.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		if c.onClose != nil {
			c.onClose(c)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, raw, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					fmt.Printf("client %s unexpected close: %v\n", c.id, err)
				}
				return
			}

			var msg map[string]any
			if err := json.Unmarshal(raw, &msg); err != nil {
				fmt.Printf("⚠️  client %s sent malformed frame, dropping: %v\n", c.id, err)
				continue
			}

			if c.onInbound != nil {
				c.onInbound(msg)
			}
		}
	}
}

// WritePump drains the send channel to the connection and keeps the peer
// alive with periodic pings.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Close() ended the stream
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				fmt.Printf("client %s write error: %v\n", c.id, err)
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
