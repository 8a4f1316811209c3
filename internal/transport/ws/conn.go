package ws

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vovakirdan/nyatetris/internal/relay"
)

// conn is one WebSocket. A read pump feeds inbox; writes are serialised by
// sendMu since gorilla allows only one concurrent writer.
type conn struct {
	ws     *websocket.Conn
	remote string
	md     relay.Metadata

	writeTimeout time.Duration
	pingInterval time.Duration

	sendMu sync.Mutex
	inbox  chan []byte

	done      chan struct{}
	closeOnce sync.Once
	stopOnce  sync.Once
	onClose   func(*conn)
}

func newConn(wsc *websocket.Conn, remote string, md relay.Metadata, cfg Config, onClose func(*conn)) *conn {
	c := &conn{
		ws:           wsc,
		remote:       remote,
		md:           md,
		writeTimeout: cfg.WriteTimeout,
		pingInterval: cfg.PingInterval,
		inbox:        make(chan []byte, inboxSize),
		done:         make(chan struct{}),
		onClose:      onClose,
	}
	go c.readPump()
	go c.pingLoop()
	return c
}

func (c *conn) RemoteID() string { return c.remote }

func (c *conn) Metadata() relay.Metadata {
	return maps.Clone(c.md)
}

func (c *conn) readPump() {
	defer c.shutdown()

	// A silent peer is dropped after missing two pings.
	wait := 2 * c.pingInterval
	_ = c.ws.SetReadDeadline(time.Now().Add(wait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(wait))
		select {
		case c.inbox <- data:
		case <-c.done:
			return
		}
	}
}

func (c *conn) pingLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(c.writeTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *conn) Send(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	select {
	case <-c.done:
		return relay.ErrConnClosed
	default:
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.shutdown()
		return fmt.Errorf("ws: send: %w: %w", relay.ErrTransport, err)
	}
	return nil
}

// Receive returns buffered messages before reporting a closed connection.
func (c *conn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbox:
		return data, nil
	case <-c.done:
		select {
		case data := <-c.inbox:
			return data, nil
		default:
			return nil, relay.ErrConnClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
	})
	c.shutdown()
	return nil
}

func (c *conn) shutdown() {
	c.stopOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
}
