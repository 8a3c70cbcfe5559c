package session

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
)

// recordingSink копит заархивированные сообщения для проверок.
type recordingSink struct {
	mu   sync.Mutex
	msgs []domain.ChatMessage
}

func (s *recordingSink) Archive(msg domain.ChatMessage) {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func TestChatDeliveredToAllInOrder(t *testing.T) {
	mgr := newTestManager(Limits{})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	p1 := newFakeConn()
	_, err = mgr.Join(p1, roster.RoomID, "p-1", "")
	require.NoError(t, err)

	require.NoError(t, mgr.Chat(p1.ID(), "hello"))
	require.NoError(t, mgr.Chat(host.ID(), "hi"))
	require.NoError(t, mgr.Chat(p1.ID(), "how are you"))

	for _, c := range []*fakeConn{host, p1} {
		eventually(t, func() bool { return c.count(EvtChat) == 3 }, "everyone sees every message, sender included")
		texts := lo.Map(c.ofType(EvtChat), func(ev Event, _ int) string {
			return ev.Payload.(ChatPayload).Text
		})
		require.Equal(t, []string{"hello", "hi", "how are you"}, texts)
	}

	// все клиенты видят один и тот же msg_id
	hostFirst := host.ofType(EvtChat)[0].Payload.(ChatPayload)
	p1First := p1.ofType(EvtChat)[0].Payload.(ChatPayload)
	require.Equal(t, hostFirst.MsgID, p1First.MsgID)
	require.Equal(t, "p-1", hostFirst.From)
}

func TestChatValidation(t *testing.T) {
	mgr := newTestManager(Limits{MaxChatMessageLen: 10})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	p1 := newFakeConn()
	_, err = mgr.Join(p1, roster.RoomID, "p-1", "")
	require.NoError(t, err)

	// пустое и пробельное молча игнорируется
	require.NoError(t, mgr.Chat(p1.ID(), ""))
	require.NoError(t, mgr.Chat(p1.ID(), "   \n\t"))
	// лимит считается в рунах, не в байтах
	require.NoError(t, mgr.Chat(p1.ID(), "привет мир"))
	require.ErrorIs(t, mgr.Chat(p1.ID(), strings.Repeat("a", 11)), domain.ErrMessageTooLong)

	eventually(t, func() bool { return host.count(EvtChat) == 1 }, "only the valid message goes out")
	require.Equal(t, "привет мир", host.ofType(EvtChat)[0].Payload.(ChatPayload).Text)
}

func TestChatArchivedToSink(t *testing.T) {
	sink := &recordingSink{}
	mgr := NewManager(Limits{}, slog.New(slog.NewTextHandler(io.Discard, nil)), sink)

	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)
	p1 := newFakeConn()
	_, err = mgr.Join(p1, roster.RoomID, "p-1", "")
	require.NoError(t, err)

	require.NoError(t, mgr.Chat(p1.ID(), "for the record"))

	eventually(t, func() bool { return sink.len() == 1 }, "message must reach archive sink")
	sink.mu.Lock()
	msg := sink.msgs[0]
	sink.mu.Unlock()
	require.Equal(t, roster.RoomID, msg.RoomID)
	require.Equal(t, "p-1", msg.From)
	require.Equal(t, "for the record", msg.Text)
	require.NotEmpty(t, msg.ID)
	require.False(t, msg.ReceivedAt.IsZero())
}

func TestSignalRelayToTargetOnly(t *testing.T) {
	mgr := newTestManager(Limits{})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	p1 := newFakeConn()
	p2 := newFakeConn()
	_, err = mgr.Join(p1, roster.RoomID, "p-1", "")
	require.NoError(t, err)
	_, err = mgr.Join(p2, roster.RoomID, "p-2", "")
	require.NoError(t, err)

	sdp := json.RawMessage(`{"sdp":"v=0"}`)
	require.NoError(t, mgr.Signal(host.ID(), domain.SignalOffer, "p-1", sdp))

	eventually(t, func() bool { return p1.count(EvtSignalOffer) == 1 }, "offer must reach the target")
	env := p1.ofType(EvtSignalOffer)[0].Payload.(SignalPayload)
	require.Equal(t, "host-1", env.From)
	require.Equal(t, "p-1", env.To)
	require.JSONEq(t, string(sdp), string(env.Payload))

	// никто кроме адресата конверт не видит
	require.Equal(t, 0, p2.count(EvtSignalOffer))
	require.Equal(t, 0, host.count(EvtSignalOffer))
}

func TestSignalOrderingPerPair(t *testing.T) {
	mgr := newTestManager(Limits{})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	p1 := newFakeConn()
	_, err = mgr.Join(p1, roster.RoomID, "p-1", "")
	require.NoError(t, err)

	require.NoError(t, mgr.Signal(host.ID(), domain.SignalOffer, "p-1", json.RawMessage(`{"n":0}`)))
	for i := 1; i <= 3; i++ {
		payload, _ := json.Marshal(map[string]int{"n": i})
		require.NoError(t, mgr.Signal(host.ID(), domain.SignalICE, "p-1", payload))
	}

	eventually(t, func() bool {
		return p1.count(EvtSignalOffer)+p1.count(EvtSignalICE) == 4
	}, "all envelopes must arrive")

	// порядок отправки одной пары сохраняется: оффер раньше любого ICE
	var seen []string
	p1.mu.Lock()
	for _, ev := range p1.events {
		if ev.Type == EvtSignalOffer || ev.Type == EvtSignalICE {
			seen = append(seen, ev.Type)
		}
	}
	p1.mu.Unlock()
	require.Equal(t, []string{EvtSignalOffer, EvtSignalICE, EvtSignalICE, EvtSignalICE}, seen)
}

func TestSignalUnknownTargetDropped(t *testing.T) {
	mgr := newTestManager(Limits{})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	require.NoError(t, mgr.Signal(host.ID(), domain.SignalOffer, "ghost", json.RawMessage(`{}`)))

	// маркер подтверждает, что конверт уже обработан и молча выброшен
	require.NoError(t, mgr.Chat(host.ID(), "marker"))
	eventually(t, func() bool { return host.count(EvtChat) == 1 }, "marker must arrive")
	require.Equal(t, 0, host.count(EvtSignalOffer))

	_, _, err = mgr.Snapshot(roster.RoomID)
	require.NoError(t, err)
}

func TestPresenceBroadcastsOnlyDelta(t *testing.T) {
	mgr := newTestManager(Limits{})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	p1 := newFakeConn()
	_, err = mgr.Join(p1, roster.RoomID, "p-1", "")
	require.NoError(t, err)

	patch := domain.MediaStatePatch{Video: lo.ToPtr(false), ScreenShare: lo.ToPtr(true)}
	require.NoError(t, mgr.UpdatePresence(p1.ID(), patch))

	eventually(t, func() bool { return host.count(EvtPresence) == 1 }, "presence must reach peers")
	got := host.ofType(EvtPresence)[0].Payload.(PresencePayload)
	require.Equal(t, "p-1", got.ParticipantID)
	require.NotNil(t, got.Patch.Video)
	require.False(t, *got.Patch.Video)
	require.NotNil(t, got.Patch.ScreenShare)
	require.True(t, *got.Patch.ScreenShare)
	// отправителю своё же обновление не эхуется
	require.Equal(t, 0, p1.count(EvtPresence))

	// тот же патч повторно ничего не меняет и не рассылается
	require.NoError(t, mgr.UpdatePresence(p1.ID(), patch))
	// пустой патч — no-op ещё на стороне менеджера
	require.NoError(t, mgr.UpdatePresence(p1.ID(), domain.MediaStatePatch{}))

	require.NoError(t, mgr.Chat(p1.ID(), "marker"))
	eventually(t, func() bool { return host.count(EvtChat) == 1 }, "marker must arrive")
	require.Equal(t, 1, host.count(EvtPresence))

	// снапшот отражает слитое состояние
	_, parts, err := mgr.Snapshot(roster.RoomID)
	require.NoError(t, err)
	require.False(t, parts[1].Media.VideoEnabled)
	require.True(t, parts[1].Media.ScreenSharing)
	require.True(t, parts[1].Media.AudioEnabled)
}

func TestHandRaiseIdempotent(t *testing.T) {
	mgr := newTestManager(Limits{})
	host := newFakeConn()
	roster, err := mgr.CreateRoom(host, "host-1", "")
	require.NoError(t, err)

	p1 := newFakeConn()
	_, err = mgr.Join(p1, roster.RoomID, "p-1", "")
	require.NoError(t, err)

	require.NoError(t, mgr.RaiseHand(p1.ID()))
	require.NoError(t, mgr.RaiseHand(p1.ID())) // повтор — без второй нотификации
	require.NoError(t, mgr.LowerHand(p1.ID()))

	eventually(t, func() bool { return host.count(EvtHandLower) == 1 }, "lower must arrive")
	require.Equal(t, 1, host.count(EvtHandRaise))
	require.Equal(t, "p-1", host.ofType(EvtHandRaise)[0].Payload.(HandPayload).ParticipantID)

	_, parts, err := mgr.Snapshot(roster.RoomID)
	require.NoError(t, err)
	require.False(t, parts[1].HandRaised)
}
