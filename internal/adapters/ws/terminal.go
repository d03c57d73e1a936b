package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/kdrev/Studio/internal/domain"
)

func (ctl *Controller) handleSetDirectory(id domain.ConnID, data []byte) {
	var p struct {
		Type    string `json:"type"`
		DirName string `json:"dirName"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad setDirectory payload")
		return
	}
	ctl.Orch.Terminals.SetDirectory(id, p.DirName)
}

func (ctl *Controller) handleInput(id domain.ConnID, data []byte) {
	var p struct {
		Type string `json:"type"`
		Data string `json:"data"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad input payload")
		return
	}
	ctl.Orch.Terminals.Input(id, []byte(p.Data))
}

func (ctl *Controller) handleResize(id domain.ConnID, data []byte) {
	var p struct {
		Type string `json:"type"`
		Cols uint16 `json:"cols"`
		Rows uint16 `json:"rows"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad resize payload")
		return
	}
	ctl.Orch.Terminals.Resize(id, p.Cols, p.Rows)
}
