package ws

import (
	"encoding/json"
	"errors"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
)

// Типы клиентских сообщений. Сигнальные/presence/chat-события используют
// одни и те же имена в обе стороны (session.Evt*).
const (
	TypeRoomCreate = "room.create" // обязан быть первым кадром нового соединения
	TypeRoomJoin   = "room.join"   // либо этим
	TypeRoomLeave  = "room.leave"
	TypeRoomEnd    = "room.end" // только хост
	TypeError      = "error"
)

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type CreateRoomPayload struct {
	HostParticipantID string `json:"hostParticipantId"`
	DisplayName       string `json:"displayName"`
}

type JoinRoomPayload struct {
	RoomID        string `json:"roomId"`
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

type SignalRecvPayload struct {
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

type PresenceRecvPayload struct {
	Patch domain.MediaStatePatch `json:"patch"`
}

type ChatRecvPayload struct {
	Text string `json:"text"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, domain.ErrRoomFull):
		return "room_full"
	case errors.Is(err, domain.ErrDuplicateParticipant):
		return "duplicate_participant"
	case errors.Is(err, domain.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, domain.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, domain.ErrMessageTooLong):
		return "message_too_long"
	case errors.Is(err, domain.ErrResourceExhausted):
		return "resource_exhausted"
	default:
		return "internal"
	}
}
