package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const openFrame = `0{"sid":"sid-1","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`

// newFeedServer performs the server side of the handshake and then runs script.
func newFeedServer(t *testing.T, script func(c *websocket.Conn)) (*httptest.Server, chan url.Values) {
	t.Helper()
	queries := make(chan url.Values, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query()

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		if err := c.WriteMessage(websocket.TextMessage, []byte(openFrame)); err != nil {
			return
		}
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		if string(msg) != "40" {
			t.Errorf("expected namespace connect 40, got %q", msg)
			return
		}
		if err := c.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"ns-1"}`)); err != nil {
			return
		}
		script(c)
	}))
	return server, queries
}

func send(c *websocket.Conn, s string) {
	c.WriteMessage(websocket.TextMessage, []byte(s))
}

func drain(c *websocket.Conn) {
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func TestDial_HandshakeAndQuery(t *testing.T) {
	server, queries := newFeedServer(t, drain)
	defer server.Close()

	client, err := Dial(context.Background(), server.URL, DefaultParams(), nil)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "sid-1", client.SID())

	q := <-queries
	assert.Equal(t, "4", q.Get("EIO"))
	assert.Equal(t, "websocket", q.Get("transport"))
	assert.Equal(t, "0", q.Get("offset"))
	assert.Equal(t, "100", q.Get("limit"))
	assert.Equal(t, "last_trade_timestamp", q.Get("sort"))
	assert.Equal(t, "DESC", q.Get("order"))
	assert.Equal(t, "true", q.Get("includeNsfw"))
}

func TestClient_EventsAndPing(t *testing.T) {
	pong := make(chan string, 1)
	server, _ := newFeedServer(t, func(c *websocket.Conn) {
		send(c, "2")
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		pong <- string(msg)

		send(c, `42["newCoinCreated",{"mint":"MintA","name":"Foo","symbol":"$BAR","created_timestamp":1717000000000}]`)
		send(c, `42["tradeCreated",{"mint":"MintB"}]`)
		drain(c)
	})
	defer server.Close()

	client, err := Dial(context.Background(), server.URL, DefaultParams(), nil)
	require.NoError(t, err)
	defer client.Close()

	select {
	case p := <-pong:
		assert.Equal(t, "3", p)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for pong")
	}

	ev := recvEvent(t, client)
	require.Equal(t, EventNewCoinCreated, ev.Name)

	coin, err := DecodeCoinCreated(ev)
	require.NoError(t, err)
	assert.Equal(t, "MintA", coin.Mint)
	assert.Equal(t, "Foo", coin.Name)
	assert.Equal(t, "BAR", coin.Ticker())
	assert.Equal(t, int64(1717000000000), coin.CreatedTimestamp)

	ev = recvEvent(t, client)
	assert.Equal(t, "tradeCreated", ev.Name)
}

func TestClient_ServerDisconnectIsNormal(t *testing.T) {
	server, _ := newFeedServer(t, func(c *websocket.Conn) {
		send(c, "41")
		drain(c)
	})
	defer server.Close()

	client, err := Dial(context.Background(), server.URL, DefaultParams(), nil)
	require.NoError(t, err)
	defer client.Close()

	waitClosed(t, client)
	assert.NoError(t, client.Err())
}

func TestClient_AbnormalCloseSetsErr(t *testing.T) {
	server, _ := newFeedServer(t, func(c *websocket.Conn) {
		c.UnderlyingConn().Close()
	})
	defer server.Close()

	client, err := Dial(context.Background(), server.URL, DefaultParams(), nil)
	require.NoError(t, err)
	defer client.Close()

	waitClosed(t, client)
	assert.Error(t, client.Err())
}

func TestClient_CloseSendsDisconnect(t *testing.T) {
	got := make(chan string, 1)
	server, _ := newFeedServer(t, func(c *websocket.Conn) {
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		got <- string(msg)
		drain(c)
	})
	defer server.Close()

	client, err := Dial(context.Background(), server.URL, DefaultParams(), nil)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.NoError(t, client.Close())

	select {
	case msg := <-got:
		assert.Equal(t, "41", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for disconnect packet")
	}
	waitClosed(t, client)
}

func TestDial_ConnectRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		send(c, openFrame)
		c.ReadMessage()
		send(c, `44{"message":"Not authorized"}`)
		drain(c)
	}))
	defer server.Close()

	_, err := Dial(context.Background(), server.URL, DefaultParams(), nil)
	assert.True(t, errors.Is(err, ErrConnectRejected), "got %v", err)
}

func TestDial_BadOpenPacket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		send(c, "hello")
		drain(c)
	}))
	defer server.Close()

	_, err := Dial(context.Background(), server.URL, DefaultParams(), nil)
	assert.True(t, errors.Is(err, ErrHandshake), "got %v", err)
}

func TestDial_CancelDuringHandshake(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		drain(c) // never sends the open packet
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	cfg := DefaultConfig()
	cfg.HandshakeTimeout = 5 * time.Second

	start := time.Now()
	_, err := Dial(ctx, server.URL, DefaultParams(), &cfg)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrHandshake)
	assert.Less(t, elapsed, time.Second, "Dial should return promptly after cancellation")
}

func TestDial_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	_, err := Dial(context.Background(), endpoint, DefaultParams(), nil)
	assert.Error(t, err)
}

func TestBuildURL(t *testing.T) {
	got, err := BuildURL(DefaultEndpoint, DefaultParams())
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "wss", u.Scheme)
	assert.Equal(t, "frontend-api.pump.fun", u.Host)
	assert.Equal(t, "/socket.io/", u.Path)
	assert.Equal(t, "4", u.Query().Get("EIO"))

	got, err = BuildURL("https://example.com", Params{Limit: 5})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "wss://example.com/socket.io/?"), got)

	_, err = BuildURL("ftp://example.com", DefaultParams())
	assert.Error(t, err)
}

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func waitClosed(t *testing.T, c *Client) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-c.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for events channel to close")
		}
	}
}
