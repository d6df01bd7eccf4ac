// Package hub maintains the event subscription to the home-automation hub
// and mirrors the configured motion entity into a motion.State.
package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by reads on a closed connection.
var ErrClosed = errors.New("hub: connection closed")

// Dialer opens connections to the hub.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is a persistent bidirectional message connection.
type Conn interface {
	// WriteJSON sends v as one text message.
	WriteJSON(v any) error

	// ReadMessage blocks for the next inbound message.
	ReadMessage() ([]byte, error)

	// Close tears the connection down. It unblocks a pending ReadMessage
	// and may be called more than once.
	Close() error
}

// WebsocketDialer dials the hub over a websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
}

// NewWebsocketDialer creates a dialer with a 10 second handshake timeout.
func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{HandshakeTimeout: 10 * time.Second}
}

// Dial connects to url.
func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
	}
	c, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (http %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &wsConn{c: c}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) WriteJSON(v any) error {
	return w.c.WriteJSON(v)
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.c.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, fmt.Errorf("%w: %v", ErrClosed, err)
		}
		return nil, err
	}
	return data, nil
}

func (w *wsConn) Close() error {
	return w.c.Close()
}
