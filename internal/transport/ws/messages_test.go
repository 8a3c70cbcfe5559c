package ws

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
)

func TestCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{domain.ErrRoomNotFound, "room_not_found"},
		{domain.ErrRoomFull, "room_full"},
		{domain.ErrDuplicateParticipant, "duplicate_participant"},
		{domain.ErrNotInRoom, "not_in_room"},
		{domain.ErrPermissionDenied, "permission_denied"},
		{domain.ErrMessageTooLong, "message_too_long"},
		{domain.ErrResourceExhausted, "resource_exhausted"},
		{errors.New("boom"), "internal"},
		// обёрнутые ошибки тоже распознаются
		{fmt.Errorf("join: %w", domain.ErrRoomFull), "room_full"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.code, codeFor(tc.err), tc.code)
	}
}
