package websocket

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Options tunes every accepted connection.
type Options struct {
	BufferSize     int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
}

func (o Options) pingPeriod() time.Duration {
	return o.PongWait * 9 / 10
}

// Connection is the server side of one websocket peer.
// Outbound envelopes go through a bounded queue drained by writePump so a
// slow peer never blocks a broadcast.
type Connection struct {
	id        string
	ws        *websocket.Conn
	log       *slog.Logger
	options   Options
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

var _ contract.Connection = (*Connection)(nil)

func NewConnection(ws *websocket.Conn, log *slog.Logger, options Options) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:      id,
		ws:      ws,
		log:     log.With("connection", id),
		options: options,
		send:    make(chan []byte, options.BufferSize),
		done:    make(chan struct{}),
	}
}

func (c *Connection) ID() string {
	return c.id
}

// Send enqueues the envelope without blocking.
func (c *Connection) Send(envelope event.Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
		c.log.Warn("Send buffer full, dropping envelope", "type", envelope.Kind())
		return errors.ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame then releases the socket.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// readPump feeds every inbound frame to handle until the peer goes away.
// Frames are handled one at a time, in arrival order.
func (c *Connection) readPump(ctx context.Context, handle func(context.Context, []byte)) {
	defer c.Close()

	c.ws.SetReadLimit(c.options.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.options.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.options.PongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Websocket read error", "error", err)
			} else {
				c.log.Debug("Websocket closed", "error", err)
			}
			return
		}
		handle(ctx, data)
	}
}

// writePump drains the send queue and keeps the peer alive with pings.
// It owns every write on the socket and closes it on exit.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.options.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.options.WriteWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.options.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("Websocket write error", "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.options.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Websocket ping error", "error", err)
				c.Close()
				return
			}
		}
	}
}
