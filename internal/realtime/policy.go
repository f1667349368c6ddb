package realtime

import "github.com/pulsesocial/pulse/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a member whose send buffer is full.
type Policy interface {
	OnBackpressure(room domain.RoomID, conn ConnID) BackpressureAction
}

// KickPolicy evicts slow consumers; the client reconnects and re-joins.
type KickPolicy struct{}

func (KickPolicy) OnBackpressure(domain.RoomID, ConnID) BackpressureAction {
	return KickMember
}
