package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
)

// ChatSink — необязательный приёмник принятых сообщений (архив истории).
// Archive обязан быть неблокирующим: воркер комнаты не делает I/O.
type ChatSink interface {
	Archive(msg domain.ChatMessage)
}

// handleChat штампует серверное время приёма и рассылает всем участникам,
// включая отправителя: у всех клиентов единый авторитетный порядок, локальные
// часы отправителя роли не играют.
func (w *roomWorker) handleChat(c chatCmd) {
	if _, ok := w.members[c.participantID]; !ok {
		// отправитель успел выйти, пока команда ждала очереди
		return
	}

	msg := domain.ChatMessage{
		ID:         uuid.NewString(),
		RoomID:     w.id,
		From:       c.participantID,
		Text:       c.text,
		ReceivedAt: time.Now(),
	}

	w.broadcast(EvtChat, ChatPayload{
		MsgID:  msg.ID,
		RoomID: msg.RoomID,
		From:   msg.From,
		Text:   msg.Text,
		TSUnix: msg.ReceivedAt.Unix(),
	}, "")

	if w.sink != nil {
		w.sink.Archive(msg)
	}
}
