// Package wsock carries OPC messages over a WebSocket, one binary frame per
// message, as accepted by fcserver and by the sink in this repository.
package wsock

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrNotConnected = errors.New("wsock: not connected")

type Client struct {
	Path        string
	DialTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
	url  string
}

func New(path string, dialTimeout time.Duration) *Client {
	if path == "" {
		path = "/"
	}
	return &Client{Path: path, DialTimeout: dialTimeout}
}

// Resolve opens ws://hostport/Path, replacing any existing connection.
func (c *Client) Resolve(hostport string) error {
	u := url.URL{Scheme: "ws", Host: hostport, Path: c.Path}
	d := websocket.Dialer{HandshakeTimeout: c.DialTimeout}
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Warn().Err(err).Str("url", u.String()).Msg("opc resolve failed")
		return fmt.Errorf("wsock: resolve %s: %w", u.String(), err)
	}

	c.mu.Lock()
	old := c.conn
	c.conn, c.url = conn, u.String()
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	log.Debug().Str("url", c.url).Msg("opc connected")
	return nil
}

func (c *Client) Write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
		log.Debug().Err(err).Str("url", c.url).Msg("opc write")
		return fmt.Errorf("wsock: write %s: %w", c.url, err)
	}
	return nil
}

// Close sends a close frame and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}
