package http

import (
	"time"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
	"github.com/qacaursur-alt/Bugnation-sub001/internal/session"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateRoomRequest struct {
	HostParticipantID string `json:"hostParticipantId"`
	DisplayName       string `json:"displayName"`
}

type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
}

type RoomItem struct {
	ID           string           `json:"id"`
	HostID       string           `json:"host_id,omitempty"`
	State        domain.RoomState `json:"state"`
	CreatedAt    time.Time        `json:"created_at"`
	Participants int              `json:"participants"`
}

type ParticipantsResponse struct {
	Items []session.ParticipantSummary `json:"items"`
}

type ChatMessageItem struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	From       string    `json:"from"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

type ChatHistoryResponse struct {
	Items      []ChatMessageItem `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}
