package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdrev/Studio/internal/app"
	"github.com/kdrev/Studio/internal/config"
	"github.com/kdrev/Studio/internal/domain"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{ReadLimit: 1 << 20, SendBuffer: 64, PingPeriod: 100 * time.Millisecond}
	orch := &app.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomRegistry(time.Minute),
	}
	ctl := NewController(orch, cfg)

	r := gin.New()
	r.GET("/api/ws", func(c *gin.Context) { ctl.HandleWS(context.Background(), c) })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, orch
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(v any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(v))
}

// waitFor reads frames until one of the wanted type arrives, skipping
// interleaved events.
func (c *client) waitFor(typ string) map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %q", typ)
		var m map[string]any
		require.NoError(c.t, json.Unmarshal(data, &m))
		if m["type"] == typ {
			return m
		}
	}
}

func TestPingPong(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, srv)

	c.send(map[string]any{"type": "ping"})
	c.waitFor("pong")
}

func TestRoomFlowOverWire(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	a.send(map[string]any{"type": "create-room", "name": "Alice"})
	created := a.waitFor("room-created")
	roomID, _ := created["roomId"].(string)
	require.NotEmpty(t, roomID)

	a.send(map[string]any{"type": "validate-room", "roomId": roomID})
	assert.Equal(t, true, a.waitFor("room-validated")["exists"])

	b.send(map[string]any{"type": "join", "roomId": roomID, "userName": "Sam"})
	joined := b.waitFor("join-result")
	assert.Equal(t, true, joined["success"])
	assert.Equal(t, roomID, joined["roomId"])

	state := a.waitFor("room-state")
	for len(state["users"].([]any)) < 2 {
		state = a.waitFor("room-state")
	}
	assert.Len(t, state["users"], 2)

	b.send(map[string]any{"type": "get-room-info", "roomId": roomID})
	info := b.waitFor("room-info")
	assert.Equal(t, float64(2), info["userCount"])

	// B's link dropping must surface as a disconnect on A's side.
	require.NoError(t, b.conn.Close())
	a.waitFor("user-disconnected")
}

func TestJoinMissingRoomOverWire(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, srv)

	c.send(map[string]any{"type": "join", "roomId": "not-a-roo-m00", "userName": ""})
	joined := c.waitFor("join-result")
	assert.Equal(t, false, joined["success"])
	assert.Equal(t, "Room does not exist", joined["error"])
}

func TestUnknownEnvelopeIgnored(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, srv)

	c.send(map[string]any{"type": "frobnicate"})
	c.send(map[string]any{"type": "ping"})
	c.waitFor("pong")
}

func TestSignalingRelayOverWire(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	a.send(map[string]any{"type": "create-room"})
	roomID := a.waitFor("room-created")["roomId"].(string)
	b.send(map[string]any{"type": "join", "roomId": roomID, "userName": ""})
	b.waitFor("join-result")

	// Peer ids come from the roster snapshot.
	state := b.waitFor("room-state")
	initiator := state["initiator"].(string)

	b.send(map[string]any{
		"type": "offer",
		"to":   initiator,
		"offer": map[string]any{
			"type": "offer",
			"sdp":  "v=0 test sdp",
		},
	})
	offer := a.waitFor("offer")
	payload := offer["offer"].(map[string]any)
	assert.Equal(t, "v=0 test sdp", payload["sdp"])
	assert.NotEmpty(t, offer["from"])
	assert.NotEqual(t, initiator, offer["from"], "relay stamps the actual sender")
}

func TestKickSeversConnectionAndRoster(t *testing.T) {
	srv, orch := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	a.send(map[string]any{"type": "create-room", "name": "Alice"})
	roomID := a.waitFor("room-created")["roomId"].(string)
	b.send(map[string]any{"type": "join", "roomId": roomID, "userName": "Sam"})
	b.waitFor("join-result")

	state := a.waitFor("room-state")
	for len(state["users"].([]any)) < 2 {
		state = a.waitFor("room-state")
	}
	initiator := state["initiator"].(string)
	var victim string
	for _, u := range state["users"].([]any) {
		if id := u.(map[string]any)["id"].(string); id != initiator {
			victim = id
		}
	}
	require.NotEmpty(t, victim)

	// Cancelling the context is how slow members get kicked; even an idle
	// client must fall out of the roster, not linger as a ghost.
	require.True(t, orch.Registry.Cancel(domain.ConnID(victim)))

	gone := a.waitFor("user-disconnected")
	assert.Equal(t, victim, gone["userId"])
	state = a.waitFor("room-state")
	assert.Len(t, state["users"], 1)
}

func TestKeepalivePing(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, srv)

	pinged := make(chan struct{})
	var once sync.Once
	c.conn.SetPingHandler(func(string) error {
		once.Do(func() { close(pinged) })
		return nil
	})
	go func() {
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(3 * time.Second):
		t.Fatal("no keepalive ping arrived")
	}
}
