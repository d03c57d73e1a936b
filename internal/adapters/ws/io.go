package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kdrev/Studio/internal/domain"
)

func (ctl *Controller) writePump(ctx context.Context, c *WsConn) {
	period := ctl.Cfg.PingPeriod
	if period <= 0 {
		period = 54 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "ws").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Info().Err(err).Str("module", "ws").Msg("writePump ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "ws").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump is the per-connection dispatch loop. Its exit is the single
// disconnect path, so connection-owned resources are released exactly once.
// It also cancels the connection context so the pumps and the context
// watcher unwind on a normal disconnect.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, id domain.ConnID, c *WsConn) {
	defer func() {
		log.Info().Str("module", "ws").Str("conn", string(id)).Msg("readPump closing")
		cancel()
		ctl.Orch.OnDisconnect(id)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "ws").Str("conn", string(id)).Msg("readPump ctx done")
			return
		default:
			mt, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "ws").Str("conn", string(id)).Msg("readPump read error")
				return
			}
			if mt == websocket.BinaryMessage {
				// Binary frames carry broadcast media chunks only.
				ctl.Orch.Streams.Data(id, data)
				continue
			}
			ctl.dispatch(id, c, data)
		}
	}
}

func (ctl *Controller) dispatch(id domain.ConnID, c *WsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad json")
		return
	}

	switch env.Type {
	case "create-room":
		ctl.handleCreateRoom(id, c, data)
	case "validate-room":
		ctl.handleValidateRoom(c, data)
	case "get-room-info":
		ctl.handleRoomInfo(c, data)
	case "join":
		ctl.handleJoin(id, c, data)
	case "leave-room":
		ctl.handleLeaveRoom(id, data)
	case "media-state":
		ctl.handleMediaState(id, data)
	case "update-name":
		ctl.handleUpdateName(id, c, data)
	case "offer":
		ctl.handleOffer(id, data)
	case "answer":
		ctl.handleAnswer(id, data)
	case "ice-candidate":
		ctl.handleCandidate(id, data)
	case "setDirectory":
		ctl.handleSetDirectory(id, data)
	case "input":
		ctl.handleInput(id, data)
	case "resize":
		ctl.handleResize(id, data)
	case "start-stream":
		ctl.handleStartStream(id, c, data)
	case "stream-data":
		ctl.handleStreamData(id, data)
	case "stop-stream":
		ctl.handleStopStream(id)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown message")
	}
}

func (ctl *Controller) sendJSON(c *WsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
