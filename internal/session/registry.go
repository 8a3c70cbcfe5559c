package session

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
)

const joinCodeLength = 12

type Limits struct {
	MaxRooms          int
	MaxParticipants   int
	ReconnectGrace    time.Duration
	EmptyRoomGrace    time.Duration
	MaxChatMessageLen int
}

func (l Limits) withDefaults() Limits {
	if l.MaxParticipants <= 0 {
		l.MaxParticipants = 10
	}
	if l.ReconnectGrace <= 0 {
		l.ReconnectGrace = 30 * time.Second
	}
	if l.EmptyRoomGrace <= 0 {
		l.EmptyRoomGrace = 30 * time.Second
	}
	if l.MaxChatMessageLen <= 0 {
		l.MaxChatMessageLen = 4000
	}
	return l
}

// Registry — авторитетная таблица живых комнат. Сама таблица под мьютексом,
// но всё состояние комнаты принадлежит её воркеру: реестр только находит
// воркера и отдаёт ему команду.
type Registry struct {
	limits Limits
	log    *slog.Logger
	sink   ChatSink

	mu    sync.RWMutex
	rooms map[string]*roomWorker
}

func NewRegistry(limits Limits, log *slog.Logger, sink ChatSink) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		limits: limits.withDefaults(),
		log:    log,
		sink:   sink,
		rooms:  make(map[string]*roomWorker),
	}
}

// Create заводит комнату с хостом-участником. conn == nil допустим:
// комната создана заранее, хост подключится позже (в пределах grace).
func (r *Registry) Create(host *domain.Participant, conn Conn) (*roomWorker, RosterPayload, error) {
	r.mu.Lock()
	if r.limits.MaxRooms > 0 && len(r.rooms) >= r.limits.MaxRooms {
		r.mu.Unlock()
		return nil, RosterPayload{}, domain.ErrResourceExhausted
	}
	id := newJoinCode()
	for {
		if _, busy := r.rooms[id]; !busy {
			break
		}
		id = newJoinCode()
	}
	w := newRoomWorker(id, r.limits, r.log, r.sink, r.remove)
	r.rooms[id] = w
	r.mu.Unlock()

	go w.run()

	roster, err := w.join(host, conn)
	if err != nil {
		// на свежей комнате join хоста не проваливается; перестраховка
		_ = w.end("", "host join failed")
		return nil, RosterPayload{}, err
	}
	return w, roster, nil
}

func (r *Registry) lookup(roomID string) (*roomWorker, error) {
	r.mu.RLock()
	w, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return w, nil
}

func (r *Registry) remove(roomID string) {
	r.mu.Lock()
	delete(r.rooms, roomID)
	r.mu.Unlock()
}

// Len — число живых комнат (для healthz/логов).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// newJoinCode — короткий код приглашения, который видит клиент.
func newJoinCode() string {
	code := strings.ReplaceAll(uuid.New().String(), "-", "")
	return code[:joinCodeLength]
}
