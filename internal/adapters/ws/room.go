package ws

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/kdrev/Studio/internal/core"
	"github.com/kdrev/Studio/internal/domain"
)

func (ctl *Controller) handleCreateRoom(id domain.ConnID, c *WsConn, data []byte) {
	var p struct {
		Type string `json:"type"`
		Name string `json:"name,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad create-room payload")
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "bad_payload"})
		return
	}

	roomID := ctl.Orch.CreateRoom(id, p.Name)
	ctl.sendJSON(c, struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId"`
	}{"room-created", roomID})
}

func (ctl *Controller) handleValidateRoom(c *WsConn, data []byte) {
	var p struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad validate-room payload")
		return
	}
	ctl.sendJSON(c, struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId"`
		Exists bool          `json:"exists"`
	}{"room-validated", p.RoomID, ctl.Orch.ValidateRoom(p.RoomID)})
}

func (ctl *Controller) handleRoomInfo(c *WsConn, data []byte) {
	var p struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad get-room-info payload")
		return
	}
	info, err := ctl.Orch.RoomInfo(p.RoomID)
	if err != nil {
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "Room not found"})
		return
	}
	ctl.sendJSON(c, struct {
		Type string `json:"type"`
		core.RoomInfo
	}{"room-info", info})
}

func (ctl *Controller) handleJoin(id domain.ConnID, c *WsConn, data []byte) {
	var p struct {
		Type     string        `json:"type"`
		RoomID   domain.RoomID `json:"roomId"`
		UserName string        `json:"userName,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad join payload")
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "bad_payload"})
		return
	}

	type joinResult struct {
		Type    string        `json:"type"`
		Success bool          `json:"success"`
		RoomID  domain.RoomID `json:"roomId,omitempty"`
		Error   string        `json:"error,omitempty"`
	}

	if _, err := ctl.Orch.Join(id, p.RoomID, p.UserName); err != nil {
		if errors.Is(err, core.ErrRoomNotFound) {
			ctl.sendJSON(c, joinResult{Type: "join-result", Error: "Room does not exist"})
			return
		}
		ctl.sendJSON(c, joinResult{Type: "join-result", Error: err.Error()})
		return
	}
	log.Info().Str("module", "ws").Str("conn", string(id)).Str("room", string(p.RoomID)).Msg("join")
	ctl.sendJSON(c, joinResult{Type: "join-result", Success: true, RoomID: p.RoomID})
}

func (ctl *Controller) handleLeaveRoom(id domain.ConnID, data []byte) {
	var p struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad leave-room payload")
		return
	}
	ctl.Orch.LeaveRoom(id, p.RoomID)
}

func (ctl *Controller) handleMediaState(id domain.ConnID, data []byte) {
	var p struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId,omitempty"`
		Video  bool          `json:"video"`
		Audio  bool          `json:"audio"`
		Screen bool          `json:"screen"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad media-state payload")
		return
	}
	ctl.Orch.UpdateMedia(id, p.RoomID, domain.MediaState{Video: p.Video, Audio: p.Audio, Screen: p.Screen})
}

func (ctl *Controller) handleUpdateName(id domain.ConnID, c *WsConn, data []byte) {
	var p struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId,omitempty"`
		Name   string        `json:"name"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad update-name payload")
		return
	}
	if p.Name == "" {
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "empty name"})
		return
	}
	ctl.Orch.UpdateName(id, p.RoomID, p.Name)
}
