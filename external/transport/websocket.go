package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/foxseedlab/mojistream/internal/transport"
	"github.com/gorilla/websocket"
)

const (
	pingInterval     = 30 * time.Second
	writeWait        = 10 * time.Second
	handshakeTimeout = 15 * time.Second
)

type WebSocketDialer struct {
	dialer *websocket.Dialer
}

func NewWebSocketDialer() *WebSocketDialer {
	return &WebSocketDialer{dialer: &websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: handshakeTimeout,
	}}
}

func (d *WebSocketDialer) Open(ctx context.Context, rawURL string) (transport.Channel, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", transport.ErrInvalidURL, rawURL)
	}
	conn, resp, err := d.dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: handshake status %d", transport.ErrUnreachable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", transport.ErrUnreachable, err)
	}
	slog.Debug("websocket connected", "url", u.Redacted())

	c := &wsChannel{conn: conn, done: make(chan struct{})}
	go c.keepAlive()
	return c, nil
}

type wsChannel struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	closed  bool
	done    chan struct{}
}

func (c *wsChannel) Send(pcm []byte) error {
	return c.write(websocket.BinaryMessage, pcm)
}

func (c *wsChannel) SendText(text string) error {
	return c.write(websocket.TextMessage, []byte(text))
}

func (c *wsChannel) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return transport.ErrChannelClosed
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("%w: %v", transport.ErrTransient, err)
	}
	return nil
}

func (c *wsChannel) Receive() (transport.Message, error) {
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) || c.isClosed() {
			return transport.Message{}, fmt.Errorf("%w: %v", transport.ErrChannelClosed, err)
		}
		return transport.Message{}, err
	}
	if messageType == websocket.BinaryMessage {
		return transport.Message{Type: transport.MessageBinary, Data: data}, nil
	}
	return transport.Message{Type: transport.MessageText, Data: data}, nil
}

// Close sends a normal-closure frame once and releases the connection.
func (c *wsChannel) Close(reason string) error {
	c.writeMu.Lock()
	if c.closed {
		c.writeMu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	writeErr := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.writeMu.Unlock()

	if err := c.conn.Close(); err != nil {
		return err
	}
	if writeErr != nil && !errors.Is(writeErr, websocket.ErrCloseSent) {
		slog.Debug("close frame not delivered", "error", writeErr)
	}
	return nil
}

func (c *wsChannel) isClosed() bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.closed
}

func (c *wsChannel) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			if c.closed {
				c.writeMu.Unlock()
				return
			}
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				slog.Warn("websocket ping failed", "error", err)
				return
			}
		}
	}
}
