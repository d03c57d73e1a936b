// Package ws is the connection gateway: it upgrades client links, assigns
// each a connection identity, and demultiplexes inbound envelopes to the
// room, signaling, terminal and broadcast handlers.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kdrev/Studio/internal/app"
	"github.com/kdrev/Studio/internal/config"
	"github.com/kdrev/Studio/internal/core"
	"github.com/kdrev/Studio/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Orch *app.Orchestrator
	Cfg  *config.Config
}

func NewController(orch *app.Orchestrator, cfg *config.Config) *Controller {
	return &Controller{Orch: orch, Cfg: cfg}
}

// WsConn is the transport endpoint of one client. It implements
// core.SignalConnection; the gateway owns it and closes it.
type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and starts the connection's pumps. The
// connection id is fresh per link; the identity cookie, when present, is an
// opaque external concern this core does not gate on.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	id := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "ws").Str("conn", string(id)).Str("token", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("ws upgrade")
		return
	}
	if ctl.Cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Cfg.ReadLimit)
	}

	buffer := ctl.Cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, buffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.OnConnect(id, conn, cancel)

	// A cancelled context (the kick path, or server shutdown) must also
	// sever the socket, otherwise an idle client's readPump never returns
	// and the disconnect cleanup never runs.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}
