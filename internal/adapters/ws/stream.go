package ws

import (
	"encoding/base64"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/kdrev/Studio/internal/domain"
)

func (ctl *Controller) handleStartStream(id domain.ConnID, c *WsConn, data []byte) {
	var p struct {
		Type string `json:"type"`
		Key  string `json:"key"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad start-stream payload")
		return
	}
	if err := ctl.Orch.Streams.Start(id, p.Key); err != nil {
		// stream-started is emitted by the supervisor on success.
		ctl.sendJSON(c, map[string]any{"type": "stream-error", "message": err.Error()})
	}
}

// handleStreamData is the text fallback; the normal media path is binary
// frames handled directly in the read pump.
func (ctl *Controller) handleStreamData(id domain.ConnID, data []byte) {
	var p struct {
		Type string `json:"type"`
		Data string `json:"data"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad stream-data payload")
		return
	}
	chunk, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(id)).Msg("stream-data not base64")
		return
	}
	ctl.Orch.Streams.Data(id, chunk)
}

func (ctl *Controller) handleStopStream(id domain.ConnID) {
	ctl.Orch.Streams.Stop(id)
}
