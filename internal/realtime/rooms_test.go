package realtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pulsesocial/pulse/internal/domain"
)

type fakeSender struct {
	mu     sync.Mutex
	frames []Frame
	full   bool
	closed bool
}

func (f *fakeSender) TrySend(fr Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return ErrBackpressure
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeSender) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSender) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.frames))
	for i, fr := range f.frames {
		out[i] = string(fr)
	}
	return out
}

func TestRooms_JoinIsIdempotent(t *testing.T) {
	rooms := NewRooms()
	s := &fakeSender{}
	room := domain.RoomID("conversation:c1")

	rooms.Join("a", s, room)
	rooms.Join("a", s, room)

	if got := rooms.MemberCount(room); got != 1 {
		t.Errorf("MemberCount() = %d, want 1", got)
	}
	if !rooms.Contains("a", room) {
		t.Error("Contains() = false after Join")
	}
	if got := rooms.RoomsOf("a"); len(got) != 1 || got[0] != room {
		t.Errorf("RoomsOf() = %v, want [%s]", got, room)
	}
}

func TestRooms_LeaveIsIdempotentAndPrunes(t *testing.T) {
	rooms := NewRooms()
	room := domain.RoomID("stream:s1")
	rooms.Join("a", &fakeSender{}, room)

	rooms.Leave("a", room)
	rooms.Leave("a", room)

	if rooms.Contains("a", room) {
		t.Error("Contains() = true after Leave")
	}
	if got := rooms.MemberCount(room); got != 0 {
		t.Errorf("MemberCount() = %d, want 0", got)
	}
	// The empty room entry must be gone, not linger with zero members.
	if got := len(rooms.List()); got != 0 {
		t.Errorf("List() has %d rooms after last leave, want 0", got)
	}
}

func TestRooms_BroadcastExcludesSender(t *testing.T) {
	rooms := NewRooms()
	room := domain.RoomID("conversation:c1")
	a, b, c := &fakeSender{}, &fakeSender{}, &fakeSender{}
	rooms.Join("a", a, room)
	rooms.Join("b", b, room)
	rooms.Join("c", c, room)

	res := rooms.Broadcast(room, Frame(`x`), "a")

	if res.SentTo != 2 {
		t.Errorf("SentTo = %d, want 2", res.SentTo)
	}
	if len(a.received()) != 0 {
		t.Errorf("excluded sender received %v", a.received())
	}
	for name, s := range map[string]*fakeSender{"b": b, "c": c} {
		if len(s.received()) != 1 {
			t.Errorf("member %s received %d frames, want 1", name, len(s.received()))
		}
	}
}

func TestRooms_BroadcastToAllEchoes(t *testing.T) {
	rooms := NewRooms()
	room := domain.RoomID("stream:s1")
	a, b := &fakeSender{}, &fakeSender{}
	rooms.Join("a", a, room)
	rooms.Join("b", b, room)

	rooms.BroadcastToAll(room, Frame(`x`))

	if len(a.received()) != 1 || len(b.received()) != 1 {
		t.Errorf("received a=%d b=%d, want 1 and 1", len(a.received()), len(b.received()))
	}
}

func TestRooms_BroadcastEmptyRoomIsNoop(t *testing.T) {
	rooms := NewRooms()
	res := rooms.Broadcast("stream:ghost", Frame(`x`), NoExclude)
	if res.SentTo != 0 || len(res.Dropped) != 0 {
		t.Errorf("broadcast to empty room: %+v, want zero result", res)
	}
}

func TestRooms_BroadcastReportsDropped(t *testing.T) {
	rooms := NewRooms()
	room := domain.RoomID("stream:s1")
	slow := &fakeSender{full: true}
	rooms.Join("slow", slow, room)
	rooms.Join("ok", &fakeSender{}, room)

	res := rooms.Broadcast(room, Frame(`x`), NoExclude)

	if res.SentTo != 1 {
		t.Errorf("SentTo = %d, want 1", res.SentTo)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "slow" {
		t.Errorf("Dropped = %v, want [slow]", res.Dropped)
	}
}

func TestRooms_PerRecipientOrder(t *testing.T) {
	rooms := NewRooms()
	room := domain.RoomID("conversation:c1")
	b := &fakeSender{}
	rooms.Join("a", &fakeSender{}, room)
	rooms.Join("b", b, room)

	for i := 0; i < 10; i++ {
		rooms.Broadcast(room, Frame(fmt.Sprintf("m%d", i)), "a")
	}

	got := b.received()
	for i, frame := range got {
		if want := fmt.Sprintf("m%d", i); frame != want {
			t.Fatalf("frame %d = %q, want %q", i, frame, want)
		}
	}
}

func TestRooms_DropConnLeavesEverything(t *testing.T) {
	rooms := NewRooms()
	s := &fakeSender{}
	rooms.Join("x", s, "user:u1")
	rooms.Join("x", s, "conversation:c1")
	rooms.Join("y", &fakeSender{}, "conversation:c1")

	left := rooms.DropConn("x")

	if len(left) != 2 {
		t.Errorf("DropConn returned %v, want 2 rooms", left)
	}
	if len(rooms.RoomsOf("x")) != 0 {
		t.Errorf("RoomsOf(x) = %v after DropConn", rooms.RoomsOf("x"))
	}
	rooms.Broadcast("conversation:c1", Frame(`x`), NoExclude)
	rooms.Broadcast("user:u1", Frame(`x`), NoExclude)
	if len(s.received()) != 0 {
		t.Errorf("dropped connection still received %v", s.received())
	}
	// Second drop is not an error.
	if left := rooms.DropConn("x"); len(left) != 0 {
		t.Errorf("second DropConn returned %v, want none", left)
	}
}

type recordingTap struct {
	mu    sync.Mutex
	rooms []domain.RoomID
}

func (r *recordingTap) OnBroadcast(room domain.RoomID, _ Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, room)
}

func TestRooms_TapSeesLocalButNotInjected(t *testing.T) {
	rooms := NewRooms()
	tap := &recordingTap{}
	rooms.SetTap(tap)
	rooms.Join("a", &fakeSender{}, "stream:s1")

	rooms.BroadcastToAll("stream:s1", Frame(`local`))
	rooms.Inject("stream:s1", Frame(`remote`))

	if len(tap.rooms) != 1 {
		t.Errorf("tap observed %d broadcasts, want 1 (injected frames must bypass it)", len(tap.rooms))
	}
}
