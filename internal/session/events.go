package session

import (
	"encoding/json"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
)

// Типы событий, которые сервер шлёт клиентам
const (
	EvtRoster          = "room.roster"             // снапшот комнаты после create/join
	EvtPeerJoined      = "participant.joined"      // участник присоединился
	EvtPeerLeft        = "participant.left"        // участник покинул (включая истёкший grace)
	EvtPeerReconnected = "participant.reconnected" // тихое переподключение в пределах grace
	EvtSignalOffer     = "signal.offer"
	EvtSignalAnswer    = "signal.answer"
	EvtSignalICE       = "signal.ice"
	EvtPresence        = "presence.update"
	EvtHandRaise       = "hand.raise"
	EvtHandLower       = "hand.lower"
	EvtChat            = "chat.message"
	EvtRoomEnded       = "room.ended"
)

type ParticipantSummary struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	IsHost      bool              `json:"is_host"`
	Status      domain.ConnStatus `json:"status"`
	Media       domain.MediaState `json:"media"`
	HandRaised  bool              `json:"hand_raised"`
	JoinedAt    int64             `json:"joined_at_unix"`
}

// RosterPayload уходит новому соединению. Новичок — оффер-сторона для каждой
// пары из списка, остальные узнают о нём из participant.joined и ждут оффер.
type RosterPayload struct {
	RoomID       string               `json:"room_id"`
	SelfID       string               `json:"self_id"`
	HostID       string               `json:"host_id,omitempty"`
	Participants []ParticipantSummary `json:"participants"`
}

type PeerJoinedPayload struct {
	RoomID      string             `json:"room_id"`
	Participant ParticipantSummary `json:"participant"`
}

type PeerLeftPayload struct {
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"participant_id"`
	NewHostID     string `json:"new_host_id,omitempty"`
}

type PeerReconnectedPayload struct {
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"participant_id"`
}

type SignalPayload struct {
	RoomID  string          `json:"room_id"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	ParticipantID string                 `json:"participant_id"`
	Patch         domain.MediaStatePatch `json:"patch"`
}

type HandPayload struct {
	ParticipantID string `json:"participant_id"`
}

type ChatPayload struct {
	MsgID  string `json:"msg_id"`
	RoomID string `json:"room_id"`
	From   string `json:"from"`
	Text   string `json:"text"`
	TSUnix int64  `json:"ts_unix"`
}

type RoomEndedPayload struct {
	RoomID string `json:"room_id"`
	Reason string `json:"reason,omitempty"`
}

func summarize(p *domain.Participant, hostID string) ParticipantSummary {
	return ParticipantSummary{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		IsHost:      p.ID == hostID,
		Status:      p.Status,
		Media:       p.Media,
		HandRaised:  p.HandRaised,
		JoinedAt:    p.JoinedAt.Unix(),
	}
}
