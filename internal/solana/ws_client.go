package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages. Pongs extend it.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// RequestTimeout bounds waiting for a subscribe/unsubscribe response.
	RequestTimeout time.Duration
	// NotificationBuffer is the per-subscription channel capacity.
	NotificationBuffer int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		HandshakeTimeout:   10 * time.Second,
		PingInterval:       30 * time.Second,
		ReadTimeout:        60 * time.Second,
		WriteTimeout:       10 * time.Second,
		RequestTimeout:     30 * time.Second,
		NotificationBuffer: 1024,
	}
}

// WSClientImpl implements WSClient using gorilla/websocket.
// It does not reconnect: a dropped connection closes every subscription
// channel and is reported through Err.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to its delivery state
	subs   map[int64]*subscriptionState
	subsMu sync.RWMutex

	// pending maps request ID to the caller waiting for the response
	pending   map[uint64]*pendingRequest
	pendingMu sync.Mutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	errMu sync.Mutex
	err   error
}

type subscriptionState struct {
	ch   chan LogNotification
	stop chan struct{}
}

type pendingRequest struct {
	resp chan wsResponse
	// sub is registered by the read loop before the response is delivered,
	// so notifications that immediately follow the confirmation are not lost.
	sub *subscriptionState
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &WSClientImpl{
		endpoint: endpoint,
		config:   cfg,
		conn:     conn,
		subs:     make(map[int64]*subscriptionState),
		pending:  make(map[uint64]*pendingRequest),
		done:     make(chan struct{}),
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	// Start reader goroutine
	c.wg.Add(1)
	go c.readLoop()

	// Start ping goroutine
	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// SubscribeLogs subscribes to program logs matching the filter.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, filter LogsFilter) (*Subscription, error) {
	mentionsFilter := make(map[string]interface{})
	if len(filter.Mentions) > 0 {
		mentionsFilter["mentions"] = filter.Mentions
	} else {
		mentionsFilter["all"] = nil
	}

	commitment := filter.Commitment
	if commitment == "" {
		commitment = "confirmed"
	}

	state := &subscriptionState{
		ch:   make(chan LogNotification, c.config.NotificationBuffer),
		stop: make(chan struct{}),
	}

	result, err := c.request(ctx, "logsSubscribe", []interface{}{
		mentionsFilter,
		map[string]string{"commitment": commitment},
	}, state)
	if err != nil {
		return nil, err
	}

	var subID int64
	if err := json.Unmarshal(result, &subID); err != nil {
		return nil, fmt.Errorf("decode subscription id: %w", err)
	}

	return &Subscription{
		ID:            subID,
		Filter:        filter,
		Notifications: state.ch,
	}, nil
}

// UnsubscribeLogs cancels a logs subscription.
func (c *WSClientImpl) UnsubscribeLogs(ctx context.Context, subscriptionID int64) error {
	c.subsMu.Lock()
	if state, ok := c.subs[subscriptionID]; ok {
		delete(c.subs, subscriptionID)
		close(state.stop)
	}
	c.subsMu.Unlock()

	result, err := c.request(ctx, "logsUnsubscribe", []interface{}{subscriptionID}, nil)
	if err != nil {
		return err
	}

	var ok bool
	if err := json.Unmarshal(result, &ok); err != nil {
		return fmt.Errorf("decode unsubscribe result: %w", err)
	}
	if !ok {
		return fmt.Errorf("unsubscribe %d rejected", subscriptionID)
	}
	return nil
}

// Err returns the terminal read error, if any.
func (c *WSClientImpl) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close closes the WebSocket connection.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	err := c.conn.Close()
	c.wg.Wait()
	return err
}

// request sends a JSON-RPC request and waits for its response.
func (c *WSClientImpl) request(ctx context.Context, method string, params []interface{}, sub *subscriptionState) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	reqID := c.requestID.Add(1)
	p := &pendingRequest{resp: make(chan wsResponse, 1), sub: sub}

	c.pendingMu.Lock()
	c.pending[reqID] = p
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}
	if err := c.writeJSON(req); err != nil {
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	timer := time.NewTimer(c.config.RequestTimeout)
	defer timer.Stop()

	select {
	case resp := <-p.resp:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-timer.C:
		return nil, fmt.Errorf("%s timeout after %v", method, c.config.RequestTimeout)
	case <-c.done:
		return nil, ErrClientClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *WSClientImpl) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// readLoop reads messages from WebSocket and dispatches to subscribers.
// It is the only sender on subscription channels and closes them on exit.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()
	defer c.closeSubscriptions()

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			c.errMu.Lock()
			c.err = fmt.Errorf("read: %w", err)
			c.errMu.Unlock()
			return
		}

		c.handleMessage(message)
	}
}

func (c *WSClientImpl) closeSubscriptions() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	for id, state := range c.subs {
		close(state.ch)
		delete(c.subs, id)
	}
}

// handleMessage processes incoming WebSocket message.
func (c *WSClientImpl) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("[ws] Undecodable message: %v", err)
		return
	}

	if msg.ID != nil {
		c.handleResponse(*msg.ID, wsResponse{Result: msg.Result, Error: msg.Error})
		return
	}

	if msg.Method == "logsNotification" && msg.Params != nil {
		c.handleLogsNotification(msg.Params)
	}
}

// handleResponse delivers a request response, registering the subscription
// first when the request was a successful subscribe.
func (c *WSClientImpl) handleResponse(id uint64, resp wsResponse) {
	c.pendingMu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	if !ok {
		return
	}

	if p.sub != nil && resp.Error == nil {
		var subID int64
		if err := json.Unmarshal(resp.Result, &subID); err == nil {
			c.subsMu.Lock()
			c.subs[subID] = p.sub
			c.subsMu.Unlock()
		}
	}

	select {
	case p.resp <- resp:
	default:
	}
}

// handleLogsNotification dispatches log notification to subscriber.
func (c *WSClientImpl) handleLogsNotification(params *wsNotificationParams) {
	value := params.Result.Value

	notif := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}

	// Get slot from context if available
	if params.Result.Context != nil {
		notif.Slot = params.Result.Context.Slot
	}

	c.subsMu.RLock()
	state, ok := c.subs[params.Subscription]
	c.subsMu.RUnlock()

	if !ok {
		return
	}

	// Block until delivered; never drop events for a live subscription
	select {
	case state.ch <- notif:
	case <-state.stop:
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			// A dead connection surfaces in readLoop.
			_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsResponse struct {
	Result json.RawMessage
	Error  *rpcError
}

// wsMessage is the union of responses and notifications.
type wsMessage struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      *uint64               `json:"id"`
	Method  string                `json:"method"`
	Result  json.RawMessage       `json:"result"`
	Error   *rpcError             `json:"error"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
