package domain

import "time"

type RoomState string

const (
	RoomActive RoomState = "active"
	RoomEnded  RoomState = "ended"
)

// Room — метаданные живой сессии. Состав участников хранит воркер комнаты,
// здесь только то, что видно снаружи.
type Room struct {
	ID        string    `json:"id"`
	HostID    string    `json:"host_id,omitempty"` // пустой, пока хост не назначен
	State     RoomState `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}
