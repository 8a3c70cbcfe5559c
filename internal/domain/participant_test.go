package domain

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestMediaStateApplyReturnsOnlyChanges(t *testing.T) {
	s := MediaState{VideoEnabled: true, AudioEnabled: true}

	delta := s.Apply(MediaStatePatch{
		Video: lo.ToPtr(false),
		Audio: lo.ToPtr(true), // уже true — в дельту не попадает
	})

	require.False(t, s.VideoEnabled)
	require.True(t, s.AudioEnabled)
	require.NotNil(t, delta.Video)
	require.False(t, *delta.Video)
	require.Nil(t, delta.Audio)
	require.Nil(t, delta.ScreenShare)

	// повтор того же патча — пустая дельта
	again := s.Apply(MediaStatePatch{Video: lo.ToPtr(false)})
	require.True(t, again.Empty())
}

func TestMediaStatePatchEmpty(t *testing.T) {
	require.True(t, MediaStatePatch{}.Empty())
	require.False(t, MediaStatePatch{ScreenShare: lo.ToPtr(true)}.Empty())
}
