package domain

import "time"

type ChatMessage struct {
	ID         string    `db:"id"`
	RoomID     string    `db:"room_id"`
	From       string    `db:"from_participant"`
	Text       string    `db:"text"`
	ReceivedAt time.Time `db:"received_at"` // серверное время приёма, задаёт глобальный порядок
}
