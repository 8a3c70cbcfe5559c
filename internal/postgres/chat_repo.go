package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
)

// ChatRepository — архив чата живых сессий. Рассылка сообщений идёт целиком
// в памяти; сюда сообщения попадают уже принятыми, в серверном порядке.
type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Save(ctx context.Context, m domain.ChatMessage) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO session_messages (id, room_id, from_participant, text, received_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, m.ID, m.RoomID, m.From, m.Text, m.ReceivedAt)
	return err
}

// History возвращает историю сообщений комнаты с курсорной пагинацией
// (received_at,id DESC).
func (r *ChatRepository) History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := DecodeCursor(after)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}

	const baseQuery = `
		SELECT id, room_id, from_participant, text, received_at
		FROM session_messages
		WHERE room_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR received_at < $2
		    OR (received_at = $2 AND id < $3)
		  )
		ORDER BY received_at DESC, id DESC
		LIMIT $4
	`

	var receivedAt any
	var id any
	if cur != nil {
		receivedAt = cur.ReceivedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, baseQuery, roomID, receivedAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.From, &m.Text, &m.ReceivedAt); err != nil {
			return nil, "", err
		}
		out = append(out, m)
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		if c, e := EncodeCursor(Cursor{ReceivedAt: last.ReceivedAt, ID: last.ID}); e == nil {
			next = c
		}
	}
	return out, next, nil
}
