package ws

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/kdrev/Studio/internal/domain"
)

// Peer negotiation messages are routed on the `to` field alone; the SDP and
// candidate payloads pass through untouched.

func (ctl *Controller) handleOffer(id domain.ConnID, data []byte) {
	var p struct {
		Type  string                    `json:"type"`
		To    domain.ConnID             `json:"to"`
		Offer webrtc.SessionDescription `json:"offer"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad offer payload")
		return
	}
	ctl.Orch.RelayOffer(id, p.To, p.Offer)
}

func (ctl *Controller) handleAnswer(id domain.ConnID, data []byte) {
	var p struct {
		Type   string                    `json:"type"`
		To     domain.ConnID             `json:"to"`
		Answer webrtc.SessionDescription `json:"answer"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad answer payload")
		return
	}
	ctl.Orch.RelayAnswer(id, p.To, p.Answer)
}

func (ctl *Controller) handleCandidate(id domain.ConnID, data []byte) {
	var p struct {
		Type      string                  `json:"type"`
		To        domain.ConnID           `json:"to"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad candidate payload")
		return
	}
	ctl.Orch.RelayICECandidate(id, p.To, p.Candidate)
}
