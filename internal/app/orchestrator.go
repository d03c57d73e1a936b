package app

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/kdrev/Studio/internal/broadcast"
	"github.com/kdrev/Studio/internal/core"
	"github.com/kdrev/Studio/internal/domain"
	"github.com/kdrev/Studio/internal/terminal"
)

// Orchestrator ties the connection registry, the room registry and the
// per-connection session supervisors together. It is the only component that
// turns registry results into wire events.
type Orchestrator struct {
	Registry  *Registry
	Rooms     *RoomRegistry
	Policy    Policy
	Terminals *terminal.Supervisor
	Streams   *broadcast.Supervisor
}

type roomStateEvent struct {
	Type string `json:"type"`
	core.Snapshot
}

type userDisconnectedEvent struct {
	Type   string        `json:"type"`
	UserID domain.ConnID `json:"userId"`
}

type mediaStateChangedEvent struct {
	Type   string        `json:"type"`
	UserID domain.ConnID `json:"userId"`
	Video  bool          `json:"video"`
	Audio  bool          `json:"audio"`
	Screen bool          `json:"screen"`
}

// OnConnect registers the transport endpoint and eagerly opens the terminal
// session; the editor UI shows a terminal pane from the first paint.
func (o *Orchestrator) OnConnect(id domain.ConnID, conn core.SignalConnection, cancel context.CancelFunc) {
	o.Registry.Bind(id, conn, cancel)
	if o.Terminals != nil {
		if err := o.Terminals.Open(id); err != nil {
			log.Error().Err(err).Str("module", "app.orch").Str("conn", string(id)).Msg("terminal open failed")
		}
	}
}

// OnDisconnect releases everything the connection owns: room membership
// (exhaustive scan, the room is unknown here), the terminal session and the
// broadcast session. The gateway guarantees it runs exactly once.
func (o *Orchestrator) OnDisconnect(id domain.ConnID) {
	for _, res := range o.Rooms.LeaveAll(id) {
		o.announceLeave(res)
	}
	if o.Terminals != nil {
		o.Terminals.Close(id)
	}
	if o.Streams != nil {
		o.Streams.Close(id)
	}
	o.Registry.Unbind(id)
}

// CreateRoom makes a fresh room with the caller as sole member and initiator
// and pushes the initial roster snapshot to them.
func (o *Orchestrator) CreateRoom(id domain.ConnID, name string) domain.RoomID {
	roomID, res := o.Rooms.Create(id, name)
	for _, l := range res.Left {
		o.announceLeave(l)
	}
	o.broadcastSnapshot(res.Snapshot)
	return roomID
}

func (o *Orchestrator) ValidateRoom(id domain.RoomID) bool {
	return o.Rooms.Exists(id)
}

func (o *Orchestrator) RoomInfo(id domain.RoomID) (core.RoomInfo, error) {
	return o.Rooms.Info(id)
}

// Join adds the connection to the room and resyncs every member, joiner
// included, with a roster snapshot.
func (o *Orchestrator) Join(conn domain.ConnID, roomID domain.RoomID, name string) (core.Snapshot, error) {
	res, err := o.Rooms.Join(roomID, conn, name)
	if err != nil {
		return core.Snapshot{}, err
	}
	for _, l := range res.Left {
		o.announceLeave(l)
	}
	o.broadcastSnapshot(res.Snapshot)
	return res.Snapshot, nil
}

// LeaveRoom is the explicit, targeted leave.
func (o *Orchestrator) LeaveRoom(conn domain.ConnID, roomID domain.RoomID) {
	if res, ok := o.Rooms.Leave(conn, roomID); ok {
		o.announceLeave(res)
	}
}

// UpdateMedia records the new state and emits a delta to the rest of the
// room. Deliberately not a snapshot: toggles are frequent and small.
func (o *Orchestrator) UpdateMedia(conn domain.ConnID, roomID domain.RoomID, state domain.MediaState) {
	if roomID == "" {
		var ok bool
		if roomID, ok = o.Rooms.RoomOf(conn); !ok {
			return
		}
	}
	others, ok := o.Rooms.UpdateMedia(conn, roomID, state)
	if !ok {
		return
	}
	o.broadcast(roomID, others, mediaStateChangedEvent{
		Type:   "media-state-changed",
		UserID: conn,
		Video:  state.Video,
		Audio:  state.Audio,
		Screen: state.Screen,
	})
}

// UpdateName renames the member and resyncs the whole room with a snapshot.
func (o *Orchestrator) UpdateName(conn domain.ConnID, roomID domain.RoomID, name string) {
	if roomID == "" {
		var ok bool
		if roomID, ok = o.Rooms.RoomOf(conn); !ok {
			return
		}
	}
	if snap, ok := o.Rooms.UpdateName(conn, roomID, name); ok {
		o.broadcastSnapshot(snap)
	}
}

// SendEvent implements core.EventSink: marshal and unicast. A vanished or
// backpressured target is logged, never surfaced; that is an expected race.
func (o *Orchestrator) SendEvent(id domain.ConnID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("event marshal")
		return
	}
	conn, ok := o.Registry.Get(id)
	if !ok {
		log.Warn().Str("module", "app.orch").Str("conn", string(id)).Msg("event target vanished")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("conn", string(id)).Msg("event send failed")
	}
}

func (o *Orchestrator) announceLeave(res LeaveResult) {
	if res.Emptied {
		return
	}
	recipients := make([]domain.ConnID, 0, len(res.Snapshot.Users))
	for _, u := range res.Snapshot.Users {
		recipients = append(recipients, u.ID)
	}
	o.broadcast(res.RoomID, recipients, userDisconnectedEvent{Type: "user-disconnected", UserID: res.Left})
	o.broadcastSnapshot(res.Snapshot)
}

func (o *Orchestrator) broadcastSnapshot(s core.Snapshot) {
	recipients := make([]domain.ConnID, 0, len(s.Users))
	for _, u := range s.Users {
		recipients = append(recipients, u.ID)
	}
	o.broadcast(s.RoomID, recipients, roomStateEvent{Type: "room-state", Snapshot: s})
}

func (o *Orchestrator) broadcast(roomID domain.RoomID, recipients []domain.ConnID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("broadcast marshal")
		return
	}
	for _, id := range recipients {
		conn, ok := o.Registry.Get(id)
		if !ok {
			continue
		}
		if err := conn.TrySend(core.Frame(b)); err == nil {
			continue
		}
		if o.Policy == nil {
			continue
		}
		switch o.Policy.OnBackPressure(roomID, id) {
		case KickMember:
			log.Warn().Str("module", "app.orch").Str("conn", string(id)).Msg("kicking slow member")
			o.Registry.Cancel(id)
		case DropFrame, NoAction:
		}
	}
}
