package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kdrev/Studio/internal/core"
	"github.com/kdrev/Studio/internal/domain"
)

// roomState is the registry's view of one active room: the roster in join
// order plus the current initiator. A room whose roster is empty is in its
// grace window and still addressable for rejoin.
type roomState struct {
	room      *domain.Room
	members   map[domain.ConnID]*domain.Member
	order     []domain.ConnID
	initiator domain.ConnID
}

// RoomRegistry is the single in-memory authority over active rooms. All
// mutation goes through its lock, so concurrent join/leave for the same room
// serialize here.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomState
	grace time.Duration
}

func NewRoomRegistry(grace time.Duration) *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[domain.RoomID]*roomState),
		grace: grace,
	}
}

// LeaveResult describes one room a connection was removed from.
type LeaveResult struct {
	RoomID       domain.RoomID
	Left         domain.ConnID
	NewInitiator domain.ConnID // set only when the departure promoted someone
	Emptied      bool
	Snapshot     core.Snapshot // remaining roster; empty when Emptied
}

// JoinResult carries the post-join roster plus any rooms the connection
// implicitly left by switching.
type JoinResult struct {
	Snapshot core.Snapshot
	Left     []LeaveResult
}

// Create registers a new room with the creator as sole member and initiator.
// The code generator retries against active keys and falls back to a uuid,
// so Create cannot fail.
func (r *RoomRegistry) Create(creator domain.ConnID, name string) (domain.RoomID, JoinResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	left := r.leaveAllLocked(creator)

	id := domain.NewRoomCode(func(id domain.RoomID) bool {
		_, ok := r.rooms[id]
		return ok
	})
	rs := &roomState{
		room:      &domain.Room{ID: id, CreatedAt: time.Now()},
		members:   make(map[domain.ConnID]*domain.Member),
		initiator: creator,
	}
	rs.members[creator] = domain.NewMember(creator, name)
	rs.order = append(rs.order, creator)
	r.rooms[id] = rs

	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("conn", string(creator)).Msg("room created")
	return id, JoinResult{Snapshot: r.snapshotLocked(rs), Left: left}
}

// Exists is a pure existence check with no side effects.
func (r *RoomRegistry) Exists(id domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[id]
	return ok
}

func (r *RoomRegistry) Info(id domain.RoomID) (core.RoomInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.rooms[id]
	if !ok {
		return core.RoomInfo{}, core.ErrRoomNotFound
	}
	return core.RoomInfo{
		RoomID:    id,
		UserCount: len(rs.members),
		Initiator: rs.initiator,
		CreatedAt: rs.room.CreatedAt,
	}, nil
}

// Join adds the connection to the room. Joining a room the connection is
// already in does not duplicate the entry; joining while in another room
// removes it from that one first (a connection belongs to at most one room).
func (r *RoomRegistry) Join(id domain.RoomID, conn domain.ConnID, name string) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[id]
	if !ok {
		return JoinResult{}, core.ErrRoomNotFound
	}

	var left []LeaveResult
	if _, member := rs.members[conn]; !member {
		left = r.leaveAllLocked(conn)
		rs.members[conn] = domain.NewMember(conn, name)
		rs.order = append(rs.order, conn)
		if rs.initiator == "" {
			// First member back during a grace window takes over.
			rs.initiator = conn
		}
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("conn", string(conn)).Msg("member joined")
	}

	return JoinResult{Snapshot: r.snapshotLocked(rs), Left: left}, nil
}

// Leave removes the connection from one specific room. The bool reports
// whether it actually was a member.
func (r *RoomRegistry) Leave(conn domain.ConnID, id domain.RoomID) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.rooms[id]
	if !ok {
		return LeaveResult{}, false
	}
	return r.removeLocked(id, rs, conn)
}

// LeaveAll scans every room for membership. This is the disconnect path,
// where the room is unknown to the cleanup code; explicit leave is targeted,
// implicit disconnect is exhaustive.
func (r *RoomRegistry) LeaveAll(conn domain.ConnID) []LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveAllLocked(conn)
}

func (r *RoomRegistry) leaveAllLocked(conn domain.ConnID) []LeaveResult {
	var out []LeaveResult
	for id, rs := range r.rooms {
		if res, ok := r.removeLocked(id, rs, conn); ok {
			out = append(out, res)
		}
	}
	return out
}

func (r *RoomRegistry) removeLocked(id domain.RoomID, rs *roomState, conn domain.ConnID) (LeaveResult, bool) {
	if _, ok := rs.members[conn]; !ok {
		return LeaveResult{}, false
	}
	delete(rs.members, conn)
	for i, mid := range rs.order {
		if mid == conn {
			rs.order = append(rs.order[:i], rs.order[i+1:]...)
			break
		}
	}

	res := LeaveResult{RoomID: id, Left: conn}
	if len(rs.members) == 0 {
		rs.initiator = ""
		res.Emptied = true
		r.scheduleDelete(id)
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room emptied, grace timer started")
		return res, true
	}

	if rs.initiator == conn {
		// Earliest remaining member by join order takes over.
		rs.initiator = rs.order[0]
		res.NewInitiator = rs.initiator
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("initiator", string(rs.initiator)).Msg("initiator changed")
	}
	res.Snapshot = r.snapshotLocked(rs)
	return res, true
}

// scheduleDelete arms a deletion *check*, not an unconditional delete: when
// the grace period elapses the room is removed only if still empty. A rejoin
// during the window makes the check a no-op, so the timer is never cancelled.
func (r *RoomRegistry) scheduleDelete(id domain.RoomID) {
	time.AfterFunc(r.grace, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		rs, ok := r.rooms[id]
		if !ok || len(rs.members) > 0 {
			return
		}
		delete(r.rooms, id)
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room deleted due to inactivity")
	})
}

// UpdateMedia records the member's announced media state and returns the
// rest of the roster, the delta's recipients. Not a member: no-op.
func (r *RoomRegistry) UpdateMedia(conn domain.ConnID, id domain.RoomID, state domain.MediaState) ([]domain.ConnID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.rooms[id]
	if !ok {
		return nil, false
	}
	m, ok := rs.members[conn]
	if !ok {
		return nil, false
	}
	m.Video, m.Audio, m.Screen = state.Video, state.Audio, state.Screen

	others := make([]domain.ConnID, 0, len(rs.order)-1)
	for _, mid := range rs.order {
		if mid != conn {
			others = append(others, mid)
		}
	}
	return others, true
}

// UpdateName changes the member's display name. Unlike media deltas, a
// rename resyncs the whole roster via snapshot.
func (r *RoomRegistry) UpdateName(conn domain.ConnID, id domain.RoomID, name string) (core.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.rooms[id]
	if !ok {
		return core.Snapshot{}, false
	}
	m, ok := rs.members[conn]
	if !ok {
		return core.Snapshot{}, false
	}
	m.Name = name
	return r.snapshotLocked(rs), true
}

// RoomOf reports which room the connection currently belongs to.
func (r *RoomRegistry) RoomOf(conn domain.ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, rs := range r.rooms {
		if _, ok := rs.members[conn]; ok {
			return id, true
		}
	}
	return "", false
}

func (r *RoomRegistry) snapshotLocked(rs *roomState) core.Snapshot {
	users := make([]domain.Member, 0, len(rs.order))
	for _, mid := range rs.order {
		if m, ok := rs.members[mid]; ok {
			users = append(users, *m)
		}
	}
	return core.Snapshot{RoomID: rs.room.ID, Users: users, Initiator: rs.initiator}
}
