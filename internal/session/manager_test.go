package session

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
)

// fakeConn записывает события в порядке получения; Send потокобезопасен,
// потому что его зовёт горутина воркера.
type fakeConn struct {
	id string

	mu     sync.Mutex
	events []Event
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.NewString()}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) count(evtType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Type == evtType {
			n++
		}
	}
	return n
}

func (c *fakeConn) ofType(evtType string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events {
		if ev.Type == evtType {
			out = append(out, ev)
		}
	}
	return out
}

func newTestManager(limits Limits) *Manager {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(limits, log, nil)
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond, msg)
}

func TestCreateRoomAndJoin(t *testing.T) {
	mgr := newTestManager(Limits{})

	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "Анна")
	require.NoError(t, err)
	require.Equal(t, "host-1", roster.SelfID)
	require.Equal(t, "host-1", roster.HostID)
	require.Len(t, roster.Participants, 1)
	require.True(t, roster.Participants[0].IsHost)

	p1 := newFakeConn()
	roster2, err := mgr.Join(p1, roster.RoomID, "p-1", "Борис")
	require.NoError(t, err)
	require.Equal(t, "p-1", roster2.SelfID)
	require.Equal(t, "host-1", roster2.HostID)
	require.Len(t, roster2.Participants, 2)
	// список отсортирован по времени входа
	require.Equal(t, "host-1", roster2.Participants[0].ID)
	require.Equal(t, "p-1", roster2.Participants[1].ID)

	// хост узнаёт о новичке, новичку participant.joined не шлётся
	eventually(t, func() bool { return host.count(EvtPeerJoined) == 1 }, "host must see peer joined")
	joined := host.ofType(EvtPeerJoined)[0].Payload.(PeerJoinedPayload)
	require.Equal(t, "p-1", joined.Participant.ID)
	require.Equal(t, 0, p1.count(EvtPeerJoined))
}

func TestJoinUnknownRoom(t *testing.T) {
	mgr := newTestManager(Limits{})
	_, err := mgr.Join(newFakeConn(), "nope", "p-1", "")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestJoinDuplicateParticipant(t *testing.T) {
	mgr := newTestManager(Limits{})
	roster, err := mgr.CreateRoom(newFakeConn(), "host-1", "")
	require.NoError(t, err)

	_, err = mgr.Join(newFakeConn(), roster.RoomID, "host-1", "")
	require.ErrorIs(t, err, domain.ErrDuplicateParticipant)
}

func TestJoinRoomFull(t *testing.T) {
	mgr := newTestManager(Limits{MaxParticipants: 2})
	roster, err := mgr.CreateRoom(newFakeConn(), "host-1", "")
	require.NoError(t, err)

	_, err = mgr.Join(newFakeConn(), roster.RoomID, "p-1", "")
	require.NoError(t, err)
	_, err = mgr.Join(newFakeConn(), roster.RoomID, "p-2", "")
	require.ErrorIs(t, err, domain.ErrRoomFull)
}

func TestCreateRoomLimit(t *testing.T) {
	mgr := newTestManager(Limits{MaxRooms: 1})
	_, err := mgr.CreateRoom(newFakeConn(), "host-1", "")
	require.NoError(t, err)

	_, err = mgr.CreateRoom(newFakeConn(), "host-2", "")
	require.ErrorIs(t, err, domain.ErrResourceExhausted)
}

func TestLeaveReassignsHost(t *testing.T) {
	mgr := newTestManager(Limits{})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	p1 := newFakeConn()
	_, err = mgr.Join(p1, roster.RoomID, "p-1", "")
	require.NoError(t, err)

	mgr.Leave(host.ID())

	eventually(t, func() bool { return p1.count(EvtPeerLeft) == 1 }, "remaining peer must see participant.left")
	left := p1.ofType(EvtPeerLeft)[0].Payload.(PeerLeftPayload)
	require.Equal(t, "host-1", left.ParticipantID)
	require.Equal(t, "p-1", left.NewHostID)

	room, parts, err := mgr.Snapshot(roster.RoomID)
	require.NoError(t, err)
	require.Equal(t, "p-1", room.HostID)
	require.Len(t, parts, 1)
	require.True(t, parts[0].IsHost)

	// повторный Leave того же соединения — no-op
	mgr.Leave(host.ID())
}

func TestHostTieBreakByID(t *testing.T) {
	mgr := newTestManager(Limits{})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	b := newFakeConn()
	a := newFakeConn()
	_, err = mgr.Join(b, roster.RoomID, "p-b", "")
	require.NoError(t, err)
	_, err = mgr.Join(a, roster.RoomID, "p-a", "")
	require.NoError(t, err)

	mgr.Leave(host.ID())

	eventually(t, func() bool {
		room, _, err := mgr.Snapshot(roster.RoomID)
		return err == nil && room.HostID != "host-1"
	}, "host must be reassigned")

	room, _, err := mgr.Snapshot(roster.RoomID)
	require.NoError(t, err)
	// p-b вошёл раньше p-a, хостом становится самый ранний
	require.Equal(t, "p-b", room.HostID)
}

func TestEndRoomByHost(t *testing.T) {
	mgr := newTestManager(Limits{})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	p1 := newFakeConn()
	_, err = mgr.Join(p1, roster.RoomID, "p-1", "")
	require.NoError(t, err)

	require.NoError(t, mgr.EndRoom(host.ID()))

	require.Equal(t, 1, p1.count(EvtRoomEnded))
	require.True(t, host.isClosed())
	require.True(t, p1.isClosed())

	eventually(t, func() bool {
		_, _, err := mgr.Snapshot(roster.RoomID)
		return err != nil
	}, "ended room must disappear from registry")
	_, _, err = mgr.Snapshot(roster.RoomID)
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
	require.Equal(t, 0, mgr.Rooms())
}

func TestEndRoomNonHostDenied(t *testing.T) {
	mgr := newTestManager(Limits{})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	p1 := newFakeConn()
	_, err = mgr.Join(p1, roster.RoomID, "p-1", "")
	require.NoError(t, err)

	require.ErrorIs(t, mgr.EndRoom(p1.ID()), domain.ErrPermissionDenied)

	// комната живёт дальше
	_, parts, err := mgr.Snapshot(roster.RoomID)
	require.NoError(t, err)
	require.Len(t, parts, 2)
}

func TestJoinThenImmediateLeaveRestoresRoom(t *testing.T) {
	mgr := newTestManager(Limits{})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	p1 := newFakeConn()
	_, err = mgr.Join(p1, roster.RoomID, "p-1", "")
	require.NoError(t, err)
	require.NoError(t, mgr.RaiseHand(p1.ID()))
	mgr.Leave(p1.ID())

	eventually(t, func() bool { return host.count(EvtPeerLeft) == 1 }, "leave must reach host")

	// состав комнаты ровно как до входа, никакого остаточного состояния
	room, parts, err := mgr.Snapshot(roster.RoomID)
	require.NoError(t, err)
	require.Equal(t, "host-1", room.HostID)
	require.Len(t, parts, 1)
	require.Equal(t, "host-1", parts[0].ID)

	// и тот же участник может войти заново с чистого листа
	p1b := newFakeConn()
	roster2, err := mgr.Join(p1b, roster.RoomID, "p-1", "")
	require.NoError(t, err)
	require.False(t, roster2.Participants[1].HandRaised)
}

func TestEmptyRoomExpires(t *testing.T) {
	mgr := newTestManager(Limits{EmptyRoomGrace: 30 * time.Millisecond})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	mgr.Leave(host.ID())

	eventually(t, func() bool {
		_, _, err := mgr.Snapshot(roster.RoomID)
		return err != nil
	}, "empty room must end after grace")
}

func TestEmptyRoomSurvivesQuickRejoin(t *testing.T) {
	mgr := newTestManager(Limits{EmptyRoomGrace: 200 * time.Millisecond})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	mgr.Leave(host.ID())

	// возвращаемся до истечения grace пустой комнаты
	back := newFakeConn()
	eventually(t, func() bool {
		_, err := mgr.Join(back, roster.RoomID, "host-1", "")
		return err == nil
	}, "rejoin within empty-room grace must succeed")

	time.Sleep(300 * time.Millisecond)
	_, parts, err := mgr.Snapshot(roster.RoomID)
	require.NoError(t, err)
	require.Len(t, parts, 1)
}
