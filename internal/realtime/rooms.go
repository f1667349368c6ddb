package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pulsesocial/pulse/internal/domain"
)

// NoExclude is passed to Broadcast when every member should receive the
// frame, sender included.
const NoExclude ConnID = ""

// PublishResult reports delivery stats and slow consumers to the caller.
type PublishResult struct {
	SentTo  int
	Dropped []ConnID
}

// RoomInfo is a read-only view for the HTTP API.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"memberCount"`
}

// Tap observes every locally originated broadcast. Used by the
// cross-node relay; frames injected by the relay itself bypass it.
type Tap interface {
	OnBroadcast(room domain.RoomID, frame Frame)
}

// Rooms maps room ids to member connections and performs fan-out.
// A room exists the moment the first member joins and is pruned the
// moment the last one leaves.
type Rooms struct {
	mu      sync.RWMutex
	members map[domain.RoomID]map[ConnID]Sender
	byConn  map[ConnID]map[domain.RoomID]struct{}
	tap     Tap
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[domain.RoomID]map[ConnID]Sender),
		byConn:  make(map[ConnID]map[domain.RoomID]struct{}),
	}
}

// SetTap attaches a broadcast observer. Call before serving traffic.
func (r *Rooms) SetTap(t Tap) { r.tap = t }

// Join adds the connection to the room, creating the room entry on first
// join. Joining twice has no additional effect.
func (r *Rooms) Join(id ConnID, sender Sender, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[room] == nil {
		r.members[room] = make(map[ConnID]Sender)
	}
	r.members[room][id] = sender
	if r.byConn[id] == nil {
		r.byConn[id] = make(map[domain.RoomID]struct{})
	}
	r.byConn[id][room] = struct{}{}
	log.Debug().Str("module", "realtime.rooms").Str("conn", string(id)).Str("room", string(room)).Msg("joined room")
}

// Leave removes the connection from the room. Idempotent.
func (r *Rooms) Leave(id ConnID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(id, room)
}

func (r *Rooms) leaveLocked(id ConnID, room domain.RoomID) {
	if set, ok := r.members[room]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.members, room)
		}
	}
	if set, ok := r.byConn[id]; ok {
		delete(set, room)
		if len(set) == 0 {
			delete(r.byConn, id)
		}
	}
}

// DropConn removes the connection from every room it is a member of and
// returns the rooms it left. Idempotent.
func (r *Rooms) DropConn(id ConnID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.RoomID, 0, len(r.byConn[id]))
	for room := range r.byConn[id] {
		out = append(out, room)
	}
	for _, room := range out {
		r.leaveLocked(id, room)
	}
	return out
}

// RoomsOf returns the rooms the connection currently belongs to.
func (r *Rooms) RoomsOf(id ConnID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(r.byConn[id]))
	for room := range r.byConn[id] {
		out = append(out, room)
	}
	return out
}

// Contains reports whether the connection is a member of the room.
func (r *Rooms) Contains(id ConnID, room domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[room][id]
	return ok
}

// MemberCount returns the size of the room's member set; zero for rooms
// that do not exist.
func (r *Rooms) MemberCount(room domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[room])
}

// List returns every live room with its member count.
func (r *Rooms) List() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.members))
	for room, set := range r.members {
		out = append(out, RoomInfo{ID: room, MemberCount: len(set)})
	}
	return out
}

// Broadcast delivers the frame to every member of the room except the
// excluded connection. Broadcasting to an absent room is a no-op.
func (r *Rooms) Broadcast(room domain.RoomID, frame Frame, exclude ConnID) PublishResult {
	res := r.fanOut(room, frame, exclude)
	if r.tap != nil {
		r.tap.OnBroadcast(room, frame)
	}
	return res
}

// BroadcastToAll is Broadcast with no exclusion, used for events that
// must echo back to the sender.
func (r *Rooms) BroadcastToAll(room domain.RoomID, frame Frame) PublishResult {
	return r.Broadcast(room, frame, NoExclude)
}

// Inject delivers a frame that originated on another node. It never
// reaches the tap, which would loop it back out.
func (r *Rooms) Inject(room domain.RoomID, frame Frame) PublishResult {
	return r.fanOut(room, frame, NoExclude)
}

func (r *Rooms) fanOut(room domain.RoomID, frame Frame, exclude ConnID) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for id, sender := range r.members[room] {
		if exclude != NoExclude && id == exclude {
			continue
		}
		if err := sender.TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "realtime.rooms").Str("room", string(room)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast")
	return res
}
