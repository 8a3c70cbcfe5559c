package session

import (
	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
)

// Каждое входящее сообщение транспорта превращается в типизированную команду
// воркеру комнаты. Воркер обрабатывает их по одной, поэтому внутри бизнес-логики
// блокировок нет.
type command interface{ isCommand() }

type joinCmd struct {
	p     *domain.Participant
	conn  Conn // nil — комната создана заранее, хост ещё не подключился
	reply chan joinReply
}

type joinReply struct {
	roster RosterPayload
	err    error
}

type leaveCmd struct {
	participantID string
}

type detachCmd struct {
	participantID string
	connID        string // защита от устаревшего detach после переподключения
}

type graceExpiredCmd struct {
	participantID string
	gen           int
}

type roomIdleCmd struct {
	gen int
}

type signalCmd struct {
	env domain.SignalingEnvelope
}

type presenceCmd struct {
	participantID string
	patch         domain.MediaStatePatch
}

type handCmd struct {
	participantID string
	raised        bool
}

type chatCmd struct {
	participantID string
	text          string
}

type endCmd struct {
	requestedBy string // пустой — внутренний переход (комната опустела)
	reason      string
	reply       chan error
}

type snapshotCmd struct {
	reply chan snapshotReply
}

type snapshotReply struct {
	room  domain.Room
	parts []ParticipantSummary
}

func (joinCmd) isCommand()         {}
func (leaveCmd) isCommand()        {}
func (detachCmd) isCommand()       {}
func (graceExpiredCmd) isCommand() {}
func (roomIdleCmd) isCommand()     {}
func (signalCmd) isCommand()       {}
func (presenceCmd) isCommand()     {}
func (handCmd) isCommand()         {}
func (chatCmd) isCommand()         {}
func (endCmd) isCommand()          {}
func (snapshotCmd) isCommand()     {}
