package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned when a read or write is attempted before
// Connect succeeds or after Close.
var ErrNotConnected = errors.New("realtime: not connected")

// WebSocketClient speaks the realtime event protocol over a single
// websocket connection. One conversation session owns one client. Close
// may race a blocked ReadEvent, so conn access goes through the mutex.
type WebSocketClient struct {
	url    string
	token  string
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// ServerEvent is one JSON message from the agent backend.
type ServerEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// ClientCommand is one JSON message to the agent backend.
type ClientCommand struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func NewWebSocketClient(serverURL, token string, logger *slog.Logger) *WebSocketClient {
	return &WebSocketClient{
		url:    serverURL,
		token:  token,
		logger: logger,
	}
}

func (c *WebSocketClient) Connect(ctx context.Context) error {
	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()

	c.logger.Debug("Connecting to realtime endpoint", slog.String("url", c.url))

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("Realtime endpoint connected", slog.String("url", c.url))
	return nil
}

func (c *WebSocketClient) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *WebSocketClient) ReadEvent(ctx context.Context) (*ServerEvent, error) {
	conn := c.current()
	if conn == nil {
		return nil, ErrNotConnected
	}

	var event ServerEvent
	if err := conn.ReadJSON(&event); err != nil {
		return nil, fmt.Errorf("failed to read event: %w", err)
	}

	c.logger.Debug("Received event", slog.String("type", event.Type))
	return &event, nil
}

func (c *WebSocketClient) WriteCommand(ctx context.Context, cmd *ClientCommand) error {
	conn := c.current()
	if conn == nil {
		return ErrNotConnected
	}

	c.logger.Debug("Sending command", slog.String("type", cmd.Type))

	if err := conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}
	return nil
}

// Close closes the connection. Safe to call concurrently with a blocked
// ReadEvent, which the close unblocks.
func (c *WebSocketClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.logger.Info("Closing realtime connection")
	return conn.Close()
}
