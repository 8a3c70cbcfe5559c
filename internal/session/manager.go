package session

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
)

type route struct {
	roomID        string
	participantID string
}

// Manager — единственный компонент, который меняет членство комнат.
// Держит справочник "какое соединение каким воркером владеет"; сами воркеры
// в справочник не заглядывают.
type Manager struct {
	reg    *Registry
	log    *slog.Logger
	limits Limits

	mu        sync.Mutex
	directory map[string]route // connID -> (room, participant)
}

func NewManager(limits Limits, log *slog.Logger, sink ChatSink) *Manager {
	if log == nil {
		log = slog.Default()
	}
	limits = limits.withDefaults()
	return &Manager{
		reg:       NewRegistry(limits, log, sink),
		log:       log,
		limits:    limits,
		directory: make(map[string]route),
	}
}

// CreateRoom — создание комнаты подключившимся хостом (первый кадр room.create).
func (m *Manager) CreateRoom(conn Conn, hostID, displayName string) (RosterPayload, error) {
	p := &domain.Participant{ID: hostID, DisplayName: displayName}
	w, roster, err := m.reg.Create(p, conn)
	if err != nil {
		return RosterPayload{}, err
	}
	m.track(conn.ID(), w.id, hostID)
	m.log.Info("room created", "room", w.id, "host", hostID)
	return roster, nil
}

// CreateDetachedRoom — комната, заведённая сервисом курсов до подключения хоста.
// Хост вставляется в статусе reconnecting; не подключится за grace — комната умрёт.
func (m *Manager) CreateDetachedRoom(hostID, displayName string) (string, error) {
	p := &domain.Participant{ID: hostID, DisplayName: displayName}
	w, _, err := m.reg.Create(p, nil)
	if err != nil {
		return "", err
	}
	m.log.Info("room pre-created", "room", w.id, "host", hostID)
	return w.id, nil
}

// Join покрывает и первый вход, и переподключение с тем же participantID.
func (m *Manager) Join(conn Conn, roomID, participantID, displayName string) (RosterPayload, error) {
	w, err := m.reg.lookup(roomID)
	if err != nil {
		return RosterPayload{}, err
	}
	p := &domain.Participant{ID: participantID, DisplayName: displayName}
	roster, err := w.join(p, conn)
	if err != nil {
		return RosterPayload{}, err
	}
	m.track(conn.ID(), roomID, participantID)
	m.log.Info("participant joined", "room", roomID, "participant", participantID)
	return roster, nil
}

// Leave — явный выход: без grace, состояние участника освобождается сразу.
// Идемпотентен, повторный вызов для того же соединения — no-op.
func (m *Manager) Leave(connID string) {
	rt, w, ok := m.untrack(connID)
	if !ok {
		return
	}
	_ = w.post(leaveCmd{participantID: rt.participantID})
	m.log.Info("participant left", "room", rt.roomID, "participant", rt.participantID)
}

// Detach — потеря транспорта. Участник остаётся в комнате в статусе
// reconnecting до истечения grace-окна; это не ошибка, а ожидаемый путь.
func (m *Manager) Detach(connID string) {
	rt, w, ok := m.untrack(connID)
	if !ok {
		return
	}
	_ = w.post(detachCmd{participantID: rt.participantID, connID: connID})
}

// Signal пересылает конверт переговоров названному адресату.
func (m *Manager) Signal(connID string, kind domain.SignalKind, to string, payload json.RawMessage) error {
	rt, w, err := m.resolve(connID)
	if err != nil {
		return err
	}
	return w.post(signalCmd{env: domain.SignalingEnvelope{
		Kind:    kind,
		RoomID:  rt.roomID,
		From:    rt.participantID,
		To:      to,
		Payload: payload,
	}})
}

func (m *Manager) UpdatePresence(connID string, patch domain.MediaStatePatch) error {
	rt, w, err := m.resolve(connID)
	if err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}
	return w.post(presenceCmd{participantID: rt.participantID, patch: patch})
}

func (m *Manager) RaiseHand(connID string) error {
	return m.hand(connID, true)
}

func (m *Manager) LowerHand(connID string) error {
	return m.hand(connID, false)
}

func (m *Manager) hand(connID string, raised bool) error {
	rt, w, err := m.resolve(connID)
	if err != nil {
		return err
	}
	return w.post(handCmd{participantID: rt.participantID, raised: raised})
}

// Chat валидирует текст синхронно и отдаёт рассылку воркеру комнаты.
func (m *Manager) Chat(connID, text string) error {
	rt, w, err := m.resolve(connID)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) > m.limits.MaxChatMessageLen {
		return domain.ErrMessageTooLong
	}
	return w.post(chatCmd{participantID: rt.participantID, text: text})
}

// EndRoom — принудительное завершение, доступно только хосту.
func (m *Manager) EndRoom(connID string) error {
	rt, w, err := m.resolve(connID)
	if err != nil {
		return err
	}
	return w.end(rt.participantID, "ended by host")
}

// Snapshot — read-only срез комнаты для REST.
func (m *Manager) Snapshot(roomID string) (domain.Room, []ParticipantSummary, error) {
	w, err := m.reg.lookup(roomID)
	if err != nil {
		return domain.Room{}, nil, err
	}
	return w.snapshot()
}

// Rooms — число живых комнат.
func (m *Manager) Rooms() int {
	return m.reg.Len()
}

// --- connection directory ---

func (m *Manager) track(connID, roomID, participantID string) {
	m.mu.Lock()
	m.directory[connID] = route{roomID: roomID, participantID: participantID}
	m.mu.Unlock()
}

func (m *Manager) untrack(connID string) (route, *roomWorker, bool) {
	m.mu.Lock()
	rt, ok := m.directory[connID]
	if ok {
		delete(m.directory, connID)
	}
	m.mu.Unlock()
	if !ok {
		return route{}, nil, false
	}
	w, err := m.reg.lookup(rt.roomID)
	if err != nil {
		return route{}, nil, false
	}
	return rt, w, true
}

func (m *Manager) resolve(connID string) (route, *roomWorker, error) {
	m.mu.Lock()
	rt, ok := m.directory[connID]
	m.mu.Unlock()
	if !ok {
		return route{}, nil, domain.ErrNotInRoom
	}
	w, err := m.reg.lookup(rt.roomID)
	if err != nil {
		return route{}, nil, err
	}
	return rt, w, nil
}
