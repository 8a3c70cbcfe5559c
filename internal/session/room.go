package session

import (
	"log/slog"
	"runtime/debug"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
)

const inboxSize = 256

// member — участник глазами воркера: доменная запись плюс транспорт и
// grace-таймер переподключения.
type member struct {
	p     *domain.Participant
	conn  Conn
	grace *time.Timer
	gen   int // инвалидация выстрелов устаревших grace-таймеров
}

// roomWorker владеет всем изменяемым состоянием одной комнаты. Команды
// обрабатываются строго по одной, поэтому join/leave/signal/presence/chat
// в пределах комнаты тотально упорядочены; разные комнаты живут параллельно.
type roomWorker struct {
	id        string
	createdAt time.Time
	limits    Limits
	log       *slog.Logger
	sink      ChatSink
	onEnd     func(roomID string)

	inbox chan command
	done  chan struct{}

	// всё ниже трогает только горутина run()
	hostID  string
	members map[string]*member
	idle    *time.Timer
	idleGen int
	ended   bool
}

func newRoomWorker(id string, limits Limits, log *slog.Logger, sink ChatSink, onEnd func(string)) *roomWorker {
	return &roomWorker{
		id:        id,
		createdAt: time.Now(),
		limits:    limits,
		log:       log,
		sink:      sink,
		onEnd:     onEnd,
		inbox:     make(chan command, inboxSize),
		done:      make(chan struct{}),
		members:   make(map[string]*member),
	}
}

func (w *roomWorker) run() {
	defer close(w.done)
	defer w.onEnd(w.id)
	defer func() {
		// Паника роняет только эту комнату; реестр и остальные комнаты живут дальше.
		if rec := recover(); rec != nil {
			w.log.Error("room worker panic",
				"room", w.id,
				"panic", rec,
				"stack", string(debug.Stack()))
			w.teardown("internal error")
		}
	}()

	for cmd := range w.inbox {
		w.handle(cmd)
		if w.ended {
			return
		}
	}
}

func (w *roomWorker) handle(cmd command) {
	switch c := cmd.(type) {
	case joinCmd:
		w.handleJoin(c)
	case leaveCmd:
		w.removeMember(c.participantID)
	case detachCmd:
		w.handleDetach(c)
	case graceExpiredCmd:
		w.handleGraceExpired(c)
	case roomIdleCmd:
		w.handleRoomIdle(c)
	case signalCmd:
		w.handleSignal(c.env)
	case presenceCmd:
		w.handlePresence(c)
	case handCmd:
		w.handleHand(c)
	case chatCmd:
		w.handleChat(c)
	case endCmd:
		w.handleEnd(c)
	case snapshotCmd:
		c.reply <- snapshotReply{room: w.roomInfo(), parts: w.roster()}
	default:
		w.log.Warn("unknown room command", "room", w.id)
	}
}

// post кладёт команду в inbox; после завершения комнаты возвращает ErrRoomNotFound.
func (w *roomWorker) post(cmd command) error {
	select {
	case w.inbox <- cmd:
		return nil
	case <-w.done:
		return domain.ErrRoomNotFound
	}
}

// --- lifecycle ---

func (w *roomWorker) handleJoin(c joinCmd) {
	p := c.p

	if existing, ok := w.members[p.ID]; ok {
		if existing.conn == nil {
			// Переподключение в пределах grace: свапаем транспорт на месте,
			// состав комнаты не меняется и peer_joined/peer_left не рассылаются.
			existing.gen++
			if existing.grace != nil {
				existing.grace.Stop()
				existing.grace = nil
			}
			existing.conn = c.conn
			existing.p.Status = domain.StatusActive
			existing.p.ConnectionID = c.conn.ID()
			if p.DisplayName != "" {
				existing.p.DisplayName = p.DisplayName
			}
			w.broadcast(EvtPeerReconnected, PeerReconnectedPayload{
				RoomID:        w.id,
				ParticipantID: p.ID,
			}, p.ID)
			w.log.Info("participant reconnected", "room", w.id, "participant", p.ID)
			c.reply <- joinReply{roster: w.rosterFor(p.ID)}
			return
		}
		c.reply <- joinReply{err: domain.ErrDuplicateParticipant}
		return
	}

	if w.limits.MaxParticipants > 0 && len(w.members) >= w.limits.MaxParticipants {
		c.reply <- joinReply{err: domain.ErrRoomFull}
		return
	}

	w.stopIdleTimer()

	p.JoinedAt = time.Now()
	// камера и микрофон при входе включены, пока клиент не скажет иначе
	p.Media = domain.MediaState{VideoEnabled: true, AudioEnabled: true}
	m := &member{p: p}
	if c.conn != nil {
		m.conn = c.conn
		p.Status = domain.StatusActive
		p.ConnectionID = c.conn.ID()
	} else {
		// Комната создана заранее по REST: хост обязан подключиться до истечения grace.
		p.Status = domain.StatusReconnecting
		w.armGrace(m)
	}
	w.members[p.ID] = m

	if w.hostID == "" {
		w.hostID = p.ID
	}

	w.broadcast(EvtPeerJoined, PeerJoinedPayload{
		RoomID:      w.id,
		Participant: summarize(p, w.hostID),
	}, p.ID)
	c.reply <- joinReply{roster: w.rosterFor(p.ID)}
}

func (w *roomWorker) handleDetach(c detachCmd) {
	m, ok := w.members[c.participantID]
	if !ok || m.conn == nil {
		return
	}
	if m.conn.ID() != c.connID {
		// detach от старого транспорта пришёл после переподключения
		return
	}
	m.conn = nil
	m.p.Status = domain.StatusReconnecting
	m.p.ConnectionID = ""
	w.armGrace(m)
	w.log.Debug("participant waiting for reconnect", "room", w.id, "participant", c.participantID)
}

func (w *roomWorker) handleGraceExpired(c graceExpiredCmd) {
	m, ok := w.members[c.participantID]
	if !ok || m.gen != c.gen || m.p.Status != domain.StatusReconnecting {
		return
	}
	w.log.Info("reconnect grace expired", "room", w.id, "participant", c.participantID)
	w.removeMember(c.participantID)
}

// removeMember — идемпотентное удаление с перевыбором хоста и рассылкой peer_left.
func (w *roomWorker) removeMember(pid string) {
	m, ok := w.members[pid]
	if !ok {
		return
	}
	if m.grace != nil {
		m.grace.Stop()
	}
	delete(w.members, pid)
	m.p.Status = domain.StatusLeft

	var newHost string
	if w.hostID == pid {
		w.hostID = w.electHost()
		newHost = w.hostID
	}

	w.broadcast(EvtPeerLeft, PeerLeftPayload{
		RoomID:        w.id,
		ParticipantID: pid,
		NewHostID:     newHost,
	}, pid)

	if m.conn != nil {
		_ = m.conn.Close()
	}

	if len(w.members) == 0 {
		// не закрываем комнату мгновенно: хост мог просто обновить вкладку
		w.armIdle()
	}
}

// electHost выбирает самого раннего по joinedAt из оставшихся;
// при равенстве — лексикографически наименьший id.
func (w *roomWorker) electHost() string {
	best := ""
	var bestAt time.Time
	for id, m := range w.members {
		if best == "" ||
			m.p.JoinedAt.Before(bestAt) ||
			(m.p.JoinedAt.Equal(bestAt) && id < best) {
			best, bestAt = id, m.p.JoinedAt
		}
	}
	return best
}

func (w *roomWorker) handleRoomIdle(c roomIdleCmd) {
	if c.gen != w.idleGen || len(w.members) != 0 {
		return
	}
	w.log.Info("room idle past grace, ending", "room", w.id)
	w.teardown("room expired")
	w.ended = true
}

func (w *roomWorker) handleEnd(c endCmd) {
	if c.requestedBy != "" && c.requestedBy != w.hostID {
		c.reply <- domain.ErrPermissionDenied
		return
	}
	w.log.Info("room ended", "room", w.id, "by", c.requestedBy, "reason", c.reason)
	w.teardown(c.reason)
	w.ended = true
	c.reply <- nil
}

// teardown рассылает room.ended, гасит таймеры и закрывает все соединения.
// После него комната не принимает мутаций: реестр убирает её из таблицы.
func (w *roomWorker) teardown(reason string) {
	w.stopIdleTimer()
	w.broadcast(EvtRoomEnded, RoomEndedPayload{RoomID: w.id, Reason: reason}, "")
	for _, m := range w.members {
		if m.grace != nil {
			m.grace.Stop()
		}
		if m.conn != nil {
			_ = m.conn.Close()
		}
	}
	w.members = make(map[string]*member)
	w.hostID = ""
}

// --- timers ---

func (w *roomWorker) armGrace(m *member) {
	m.gen++
	gen := m.gen
	pid := m.p.ID
	m.grace = time.AfterFunc(w.limits.ReconnectGrace, func() {
		_ = w.post(graceExpiredCmd{participantID: pid, gen: gen})
	})
}

func (w *roomWorker) armIdle() {
	w.idleGen++
	gen := w.idleGen
	w.idle = time.AfterFunc(w.limits.EmptyRoomGrace, func() {
		_ = w.post(roomIdleCmd{gen: gen})
	})
}

func (w *roomWorker) stopIdleTimer() {
	w.idleGen++
	if w.idle != nil {
		w.idle.Stop()
		w.idle = nil
	}
}

// --- fan-out / views ---

func (w *roomWorker) broadcast(evtType string, payload any, exceptID string) {
	for id, m := range w.members {
		if id == exceptID || m.conn == nil {
			continue
		}
		if err := m.conn.Send(Event{Type: evtType, Payload: payload}); err != nil {
			// best-effort: мёртвое соединение добьёт read loop транспорта
			w.log.Debug("event send failed", "room", w.id, "participant", id, "err", err)
		}
	}
}

func (w *roomWorker) roster() []ParticipantSummary {
	ms := make([]*member, 0, len(w.members))
	for _, m := range w.members {
		ms = append(ms, m)
	}
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].p.JoinedAt.Equal(ms[j].p.JoinedAt) {
			return ms[i].p.JoinedAt.Before(ms[j].p.JoinedAt)
		}
		return ms[i].p.ID < ms[j].p.ID
	})

	return lo.Map(ms, func(m *member, _ int) ParticipantSummary {
		return summarize(m.p, w.hostID)
	})
}

func (w *roomWorker) rosterFor(selfID string) RosterPayload {
	return RosterPayload{
		RoomID:       w.id,
		SelfID:       selfID,
		HostID:       w.hostID,
		Participants: w.roster(),
	}
}

func (w *roomWorker) roomInfo() domain.Room {
	state := domain.RoomActive
	if w.ended {
		state = domain.RoomEnded
	}
	return domain.Room{
		ID:        w.id,
		HostID:    w.hostID,
		State:     state,
		CreatedAt: w.createdAt,
	}
}

// --- sync entry points (ждут ответа воркера) ---

func (w *roomWorker) join(p *domain.Participant, conn Conn) (RosterPayload, error) {
	reply := make(chan joinReply, 1)
	if err := w.post(joinCmd{p: p, conn: conn, reply: reply}); err != nil {
		return RosterPayload{}, err
	}
	select {
	case rep := <-reply:
		return rep.roster, rep.err
	case <-w.done:
		// комната могла завершиться сразу после ответа — ответ в приоритете
		select {
		case rep := <-reply:
			return rep.roster, rep.err
		default:
			return RosterPayload{}, domain.ErrRoomNotFound
		}
	}
}

func (w *roomWorker) end(requestedBy, reason string) error {
	reply := make(chan error, 1)
	if err := w.post(endCmd{requestedBy: requestedBy, reason: reason, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-w.done:
		select {
		case err := <-reply:
			return err
		default:
			return domain.ErrRoomNotFound
		}
	}
}

func (w *roomWorker) snapshot() (domain.Room, []ParticipantSummary, error) {
	reply := make(chan snapshotReply, 1)
	if err := w.post(snapshotCmd{reply: reply}); err != nil {
		return domain.Room{}, nil, err
	}
	select {
	case rep := <-reply:
		return rep.room, rep.parts, nil
	case <-w.done:
		select {
		case rep := <-reply:
			return rep.room, rep.parts, nil
		default:
			return domain.Room{}, nil, domain.ErrRoomNotFound
		}
	}
}
