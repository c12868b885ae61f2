// Package feed is a minimal socket.io client (Engine.IO v4, websocket
// transport only) for the launchpad frontend event stream.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultEndpoint is the launchpad frontend API.
const DefaultEndpoint = "wss://frontend-api.pump.fun"

// Params is the query window sent with the connection.
type Params struct {
	Offset      int
	Limit       int
	Sort        string
	Order       string
	IncludeNSFW bool
}

// DefaultParams returns the frontend's default query window.
func DefaultParams() Params {
	return Params{
		Offset:      0,
		Limit:       100,
		Sort:        "last_trade_timestamp",
		Order:       "DESC",
		IncludeNSFW: true,
	}
}

// Config configures the feed client.
type Config struct {
	// HandshakeTimeout bounds the websocket dial and the socket.io connect.
	HandshakeTimeout time.Duration
	// WriteTimeout is timeout for writing packets.
	WriteTimeout time.Duration
	// EventBuffer is the capacity of the events channel.
	EventBuffer int
}

// DefaultConfig returns default feed client configuration.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		EventBuffer:      256,
	}
}

// BuildURL returns the websocket URL for endpoint with the Engine.IO and
// query window parameters applied.
func BuildURL(endpoint string, p Params) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse feed endpoint: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported feed scheme %q", u.Scheme)
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}

	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	q.Set("offset", strconv.Itoa(p.Offset))
	q.Set("limit", strconv.Itoa(p.Limit))
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.Order != "" {
		q.Set("order", p.Order)
	}
	q.Set("includeNsfw", strconv.FormatBool(p.IncludeNSFW))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Client is a connected socket.io session.
type Client struct {
	conn   *websocket.Conn
	config Config
	open   openPacket

	writeMu sync.Mutex
	closed  atomic.Bool

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	errMu sync.Mutex
	err   error
}

// Dial connects to the feed and completes the Engine.IO open and the
// socket.io namespace connect before returning.
func Dial(ctx context.Context, endpoint string, params Params, config *Config) (*Client, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}

	wsURL, err := BuildURL(endpoint, params)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &Client{
		conn:   conn,
		config: cfg,
		events: make(chan Event, cfg.EventBuffer),
		done:   make(chan struct{}),
	}

	if err := c.handshake(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	return c, nil
}

// handshake reads the open packet, sends the namespace connect and waits
// for its acknowledgement. Cancelling ctx interrupts the pending read.
func (c *Client) handshake(ctx context.Context) error {
	deadline := time.Now().Add(c.config.HandshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetReadDeadline(deadline)

	stop := make(chan struct{})
	interrupted := make(chan struct{})
	go func() {
		defer close(interrupted)
		select {
		case <-ctx.Done():
			c.conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	err := c.openSession()
	close(stop)
	<-interrupted

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, ctxErr)
	}
	return err
}

func (c *Client) openSession() error {

	msg, err := c.readText()
	if err != nil {
		return fmt.Errorf("%w: read open: %v", ErrHandshake, err)
	}
	if len(msg) == 0 || msg[0] != eioOpen {
		return fmt.Errorf("%w: expected open packet, got %q", ErrHandshake, msg)
	}
	if err := json.Unmarshal([]byte(msg[1:]), &c.open); err != nil {
		return fmt.Errorf("%w: decode open: %v", ErrHandshake, err)
	}

	if err := c.write(string([]byte{eioMessage, sioConnect})); err != nil {
		return fmt.Errorf("%w: send connect: %v", ErrHandshake, err)
	}

	for {
		msg, err := c.readText()
		if err != nil {
			return fmt.Errorf("%w: read connect ack: %v", ErrHandshake, err)
		}
		if len(msg) == 0 {
			continue
		}
		switch msg[0] {
		case eioPing:
			if err := c.write(string(eioPong)); err != nil {
				return fmt.Errorf("%w: pong: %v", ErrHandshake, err)
			}
		case eioMessage:
			if len(msg) < 2 {
				continue
			}
			switch msg[1] {
			case sioConnect:
				return nil
			case sioConnectError:
				return fmt.Errorf("%w: %s", ErrConnectRejected, msg[2:])
			}
		case eioClose:
			return fmt.Errorf("%w: closed during connect", ErrHandshake)
		}
	}
}

// Events returns the event stream. It is closed when the session ends.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Err returns the error that ended the session, or nil for a normal close.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// SID returns the Engine.IO session id.
func (c *Client) SID() string {
	return c.open.SID
}

// Close disconnects the namespace and closes the connection.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	// Best effort; the server may already be gone.
	_ = c.write(string([]byte{eioMessage, sioDisconnect}))

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	err := c.conn.Close()
	c.wg.Wait()
	return err
}

func (c *Client) write(packet string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(packet))
}

func (c *Client) readText() (string, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if mt == websocket.TextMessage {
			return string(data), nil
		}
	}
}

// readTimeout is the server's ping interval plus its ping timeout.
func (c *Client) readTimeout() time.Duration {
	d := time.Duration(c.open.PingInterval+c.open.PingTimeout) * time.Millisecond
	if d <= 0 {
		return 60 * time.Second
	}
	return d
}

// readLoop answers pings and forwards events. It closes the events channel on exit.
func (c *Client) readLoop() {
	defer c.wg.Done()
	defer close(c.events)

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout()))

		msg, err := c.readText()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			c.setErr(fmt.Errorf("read: %w", err))
			return
		}
		if len(msg) == 0 {
			continue
		}

		switch msg[0] {
		case eioPing:
			if err := c.write(string(eioPong)); err != nil && !c.closed.Load() {
				c.setErr(fmt.Errorf("pong: %w", err))
				return
			}
		case eioClose:
			return
		case eioMessage:
			if !c.handleMessage(msg[1:]) {
				return
			}
		}
	}
}

// handleMessage processes a socket.io packet and reports whether the
// session continues.
func (c *Client) handleMessage(body string) bool {
	if body == "" {
		return true
	}

	switch body[0] {
	case sioDisconnect:
		log.Printf("[feed] Server disconnected namespace")
		return false
	case sioEvent:
		ev, err := parseEvent(strings.TrimSpace(body[1:]))
		if err != nil {
			log.Printf("[feed] Undecodable event packet: %v", err)
			return true
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return false
		}
	}
	return true
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.err = err
}
