// Package tcp carries OPC messages over a plain TCP connection, the transport
// fcserver and the openpixelcontrol servers listen on (port 7890 by default).
package tcp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultPort = "7890"

var ErrNotConnected = errors.New("tcp: not connected")

type Client struct {
	DialTimeout time.Duration

	wmu  sync.Mutex // serializes writes
	mu   sync.Mutex // guards conn and addr
	conn net.Conn
	addr string
}

func New(dialTimeout time.Duration) *Client {
	return &Client{DialTimeout: dialTimeout}
}

// Resolve dials hostport, replacing any existing connection. A missing port
// defaults to 7890.
func (c *Client) Resolve(hostport string) error {
	if _, _, err := net.SplitHostPort(hostport); err != nil {
		hostport = net.JoinHostPort(hostport, DefaultPort)
	}
	d := net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.Dial("tcp", hostport)
	if err != nil {
		log.Warn().Err(err).Str("addr", hostport).Msg("opc resolve failed")
		return fmt.Errorf("tcp: resolve %s: %w", hostport, err)
	}

	c.mu.Lock()
	old := c.conn
	c.conn, c.addr = conn, hostport
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	log.Debug().Str("addr", hostport).Msg("opc connected")
	return nil
}

// Write sends all of msg. A failed write leaves the connection in place;
// reconnecting is up to the caller. A concurrent Close aborts a blocked write.
func (c *Client) Write(msg []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.mu.Lock()
	conn, addr := c.conn, c.addr
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	for len(msg) > 0 {
		n, err := conn.Write(msg)
		if err != nil {
			log.Debug().Err(err).Str("addr", addr).Msg("opc write")
			return fmt.Errorf("tcp: write %s: %w", addr, err)
		}
		msg = msg[n:]
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
