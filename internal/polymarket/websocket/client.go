// Package websocket streams market channel events from Polymarket.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	HandshakeTimeout    = 30 * time.Second
	DefaultCloseTimeout = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second

	// KeepaliveMessage is the application level ping the market channel expects.
	// The server answers with KeepaliveReply.
	KeepaliveMessage = "PING"
	KeepaliveReply   = "PONG"

	MarketChannel = "market"
)

type Client struct {
	conn        *websocket.Conn
	readTimeout time.Duration

	// gorilla allows one concurrent writer.
	writeMu sync.Mutex
}

type Auth struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// MarketSubscription is the first frame sent on a market channel connection.
type MarketSubscription struct {
	Auth      *Auth    `json:"auth,omitempty"`
	AssetsIDs []string `json:"assets_ids"`
	Type      string   `json:"type"`
}

// Dial opens a market channel connection. readTimeout bounds the wait for
// any inbound frame, keepalive replies included; zero disables it.
func Dial(ctx context.Context, url string, readTimeout time.Duration) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, resp, err := dialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s (status %s): %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	return &Client{
		conn:        conn,
		readTimeout: readTimeout,
	}, nil
}

// Subscribe sends the market subscription for tokenIDs. The set is fixed for
// the lifetime of the connection.
func (c *Client) Subscribe(ctx context.Context, tokenIDs []string) error {
	sub := MarketSubscription{
		AssetsIDs: tokenIDs,
		Type:      MarketChannel,
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(writeDeadline(ctx)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("write subscription: %w", err)
	}
	return nil
}

// Keepalive writes the text ping that keeps the upstream from dropping an idle connection.
func (c *Client) Keepalive(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(writeDeadline(ctx)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(KeepaliveMessage)); err != nil {
		return fmt.Errorf("write keepalive: %w", err)
	}
	return nil
}

// ReadFrame blocks until the next data frame arrives. It must only be called
// from a single goroutine.
func (c *Client) ReadFrame() ([]byte, error) {
	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
	}
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("couldn't read message: %w", err)
	}
	return msg, nil
}

// Close sends a close frame and closes the connection. It unblocks a pending ReadFrame.
func (c *Client) Close(ctx context.Context) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultCloseTimeout)
	}

	c.writeMu.Lock()
	// The peer may already be gone, the close frame is best effort.
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)
	c.writeMu.Unlock()

	return c.conn.Close()
}

func writeDeadline(ctx context.Context) time.Time {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultWriteTimeout)
	}
	return deadline
}
