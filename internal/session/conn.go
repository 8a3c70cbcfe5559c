package session

// Conn — живое транспортное соединение участника. Реализацию даёт ws-слой;
// Send обязан быть неблокирующим (очередь + write pump на стороне транспорта)
// и отдавать события в порядке вызова.
type Conn interface {
	ID() string
	Send(ev Event) error
	Close() error
}

// Event — исходящее сообщение клиенту.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}
