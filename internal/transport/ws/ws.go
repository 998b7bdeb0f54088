// Package ws adapts WebSocket connections to transport.Conn. Every cache
// message travels as one binary frame; text frames are accepted on receive.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MikeTeddyOmondi/syscache/internal/logger"
	"github.com/MikeTeddyOmondi/syscache/internal/transport"
)

const closeGrace = time.Second

// Conn wraps a *websocket.Conn. gorilla allows one concurrent writer, so
// sends are serialized.
type Conn struct {
	ws        *websocket.Conn
	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConn(c *websocket.Conn) *Conn { return &Conn{ws: c} }

func (c *Conn) Send(ctx context.Context, msg []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return mapErr(err)
	}
	if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
		return mapErr(err)
	}
	return nil
}

func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { _ = c.ws.SetReadDeadline(time.Now()) })
	defer stop()
	_, b, err := c.ws.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, mapErr(err)
	}
	return b, nil
}

// Close sends a normal-closure frame and closes the socket.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func mapErr(err error) error {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		return fmt.Errorf("%w: %v", transport.ErrClosed, err)
	case errors.Is(err, websocket.ErrCloseSent), errors.Is(err, net.ErrClosed):
		return fmt.Errorf("%w: %v", transport.ErrClosed, err)
	}
	return err
}

// Dialer opens WebSocket connections to ws:// or wss:// addresses.
type Dialer struct {
	HandshakeTimeout time.Duration
	Header           http.Header
}

func (d *Dialer) Dial(ctx context.Context, address string) (transport.Conn, error) {
	wd := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	c, resp, err := wd.DialContext(ctx, address, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("ws: handshake rejected: %s: %w", resp.Status, err)
		}
		return nil, err
	}
	return newConn(c), nil
}

// ServeFunc runs one accepted connection. The connection is closed when it
// returns.
type ServeFunc func(ctx context.Context, remote string, conn transport.Conn)

// Handler upgrades HTTP requests and passes the connection to a ServeFunc.
type Handler struct {
	upgrader websocket.Upgrader
	serve    ServeFunc
}

func NewHandler(serve ServeFunc) *Handler {
	return &Handler{serve: serve}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger.Warnf("ws upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	conn := newConn(c)
	defer conn.Close()
	h.serve(r.Context(), r.RemoteAddr, conn)
}
