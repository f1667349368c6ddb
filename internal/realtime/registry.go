package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pulsesocial/pulse/internal/domain"
)

type connEntry struct {
	Sender Sender
	User   domain.UserID // set once the client identifies, empty before
}

// Registry tracks the lifetime of every live connection. Room
// memberships live in Rooms; the registry owns the connection itself and
// tears memberships down when the connection goes away.
type Registry struct {
	mu    sync.RWMutex
	conns map[ConnID]*connEntry
	rooms *Rooms
}

func NewRegistry(rooms *Rooms) *Registry {
	return &Registry{
		conns: make(map[ConnID]*connEntry),
		rooms: rooms,
	}
}

// Register creates tracking state for a new connection with an empty
// membership set.
func (r *Registry) Register(id ConnID, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &connEntry{Sender: sender}
	log.Info().Str("module", "realtime.registry").Str("conn", string(id)).Msg("connection registered")
}

// Unregister removes the connection from every room it was a member of,
// then discards its tracking state. Calling it twice is not an error.
func (r *Registry) Unregister(id ConnID) {
	r.mu.Lock()
	_, known := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()
	if !known {
		return
	}
	left := r.rooms.DropConn(id)
	log.Info().Str("module", "realtime.registry").Str("conn", string(id)).Int("rooms_left", len(left)).Msg("connection unregistered")
}

// SenderOf returns the transport endpoint for a connection.
func (r *Registry) SenderOf(id ConnID) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return e.Sender, true
}

// BindUser associates a verified user id with the connection.
func (r *Registry) BindUser(id ConnID, user domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.User = user
	}
}

// UserOf returns the user bound to the connection, if any.
func (r *Registry) UserOf(id ConnID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok || e.User == "" {
		return "", false
	}
	return e.User, true
}

// MembershipsOf returns the rooms the connection currently belongs to.
func (r *Registry) MembershipsOf(id ConnID) []domain.RoomID {
	return r.rooms.RoomsOf(id)
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
