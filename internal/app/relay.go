package app

import (
	"github.com/pion/webrtc/v4"

	"github.com/kdrev/Studio/internal/domain"
)

// Signaling relay: each hop stamps the sender id and forwards the payload to
// the target connection untouched. Delivery order per sender-target pair is
// the send order on the single channel; the relay never reorders. A missing
// target is logged by SendEvent and otherwise ignored.

type offerEvent struct {
	Type  string                    `json:"type"`
	From  domain.ConnID             `json:"from"`
	Offer webrtc.SessionDescription `json:"offer"`
}

type answerEvent struct {
	Type   string                    `json:"type"`
	From   domain.ConnID             `json:"from"`
	Answer webrtc.SessionDescription `json:"answer"`
}

type candidateEvent struct {
	Type      string                  `json:"type"`
	From      domain.ConnID           `json:"from"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

func (o *Orchestrator) RelayOffer(from, to domain.ConnID, offer webrtc.SessionDescription) {
	o.SendEvent(to, offerEvent{Type: "offer", From: from, Offer: offer})
}

func (o *Orchestrator) RelayAnswer(from, to domain.ConnID, answer webrtc.SessionDescription) {
	o.SendEvent(to, answerEvent{Type: "answer", From: from, Answer: answer})
}

func (o *Orchestrator) RelayICECandidate(from, to domain.ConnID, cand webrtc.ICECandidateInit) {
	o.SendEvent(to, candidateEvent{Type: "ice-candidate", From: from, Candidate: cand})
}
