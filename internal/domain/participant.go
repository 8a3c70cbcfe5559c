package domain

import "time"

type ConnStatus string

const (
	StatusActive       ConnStatus = "active"
	StatusReconnecting ConnStatus = "reconnecting"
	StatusLeft         ConnStatus = "left"
)

// MediaState — управляющие флаги участника, видимые остальной комнате.
type MediaState struct {
	VideoEnabled  bool `json:"video"`
	AudioEnabled  bool `json:"audio"`
	ScreenSharing bool `json:"screen_share"`
}

// MediaStatePatch — частичное обновление: nil-поля не трогаются.
type MediaStatePatch struct {
	Video       *bool `json:"video,omitempty"`
	Audio       *bool `json:"audio,omitempty"`
	ScreenShare *bool `json:"screenShare,omitempty"`
}

// Empty сообщает, что патч ничего не меняет.
func (p MediaStatePatch) Empty() bool {
	return p.Video == nil && p.Audio == nil && p.ScreenShare == nil
}

// Apply мержит патч в состояние и возвращает дельту из реально изменившихся
// полей. Поле, совпадающее с текущим значением, в дельту не попадает.
func (s *MediaState) Apply(p MediaStatePatch) MediaStatePatch {
	var delta MediaStatePatch
	if p.Video != nil && *p.Video != s.VideoEnabled {
		s.VideoEnabled = *p.Video
		delta.Video = p.Video
	}
	if p.Audio != nil && *p.Audio != s.AudioEnabled {
		s.AudioEnabled = *p.Audio
		delta.Audio = p.Audio
	}
	if p.ScreenShare != nil && *p.ScreenShare != s.ScreenSharing {
		s.ScreenSharing = *p.ScreenShare
		delta.ScreenShare = p.ScreenShare
	}
	return delta
}

// Participant — участник комнаты. ID стабилен между переподключениями,
// ConnectionID живёт ровно столько, сколько текущий транспорт.
type Participant struct {
	ID           string
	ConnectionID string // пустой в статусе reconnecting
	DisplayName  string
	Status       ConnStatus
	Media        MediaState
	HandRaised   bool
	JoinedAt     time.Time
}
