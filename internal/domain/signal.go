package domain

import "encoding/json"

// SignalKind — вид переговорного сообщения между двумя участниками.
type SignalKind string

const (
	SignalOffer  SignalKind = "offer"
	SignalAnswer SignalKind = "answer"
	SignalICE    SignalKind = "ice"
)

// SignalingEnvelope адресуется ровно одному получателю. Payload непрозрачен:
// его формат принадлежит переговорной библиотеке на клиентах, сервер только
// пересылает байты как есть.
type SignalingEnvelope struct {
	Kind    SignalKind      `json:"kind"`
	RoomID  string          `json:"room_id"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}
