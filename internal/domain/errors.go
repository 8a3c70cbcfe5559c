package domain

import "errors"

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomFull             = errors.New("room is full")
	ErrDuplicateParticipant = errors.New("participant already connected to the room")
	ErrNotInRoom            = errors.New("participant not in the room")
	ErrPermissionDenied     = errors.New("host-only action")
	ErrMessageTooLong       = errors.New("message too long")
	ErrResourceExhausted    = errors.New("room limit reached")
)
