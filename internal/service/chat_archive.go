package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
	"github.com/qacaursur-alt/Bugnation-sub001/internal/postgres"
)

const archiveQueueSize = 1024

// ChatArchive принимает принятые сообщения от воркеров комнат и асинхронно
// пишет их в postgres. Воркеры никогда не ждут базу: Archive только кладёт
// сообщение в очередь.
type ChatArchive struct {
	repo  *postgres.ChatRepository
	log   *slog.Logger
	queue chan domain.ChatMessage
}

func NewChatArchive(repo *postgres.ChatRepository, log *slog.Logger) *ChatArchive {
	if log == nil {
		log = slog.Default()
	}
	return &ChatArchive{
		repo:  repo,
		log:   log,
		queue: make(chan domain.ChatMessage, archiveQueueSize),
	}
}

// Archive реализует session.ChatSink.
func (a *ChatArchive) Archive(msg domain.ChatMessage) {
	select {
	case a.queue <- msg:
	default:
		// архив не влияет на живую рассылку: при забитой очереди теряем запись
		a.log.Warn("chat archive queue full, dropping message",
			"room", msg.RoomID, "msg", msg.ID)
	}
}

// Run — писатель архива; живёт до отмены контекста, очередь дренится по одному.
func (a *ChatArchive) Run(ctx context.Context) {
	for {
		select {
		case msg := <-a.queue:
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.repo.Save(saveCtx, msg); err != nil {
				a.log.Warn("chat archive save failed",
					"room", msg.RoomID, "msg", msg.ID, "err", err)
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

func (a *ChatArchive) History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error) {
	return a.repo.History(ctx, roomID, after, limit)
}
