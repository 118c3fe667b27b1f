package repository

import (
	"context"
	"fmt"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByReceiver(ctx context.Context, receiverID int64, limit int) ([]domain.Message, error)
	CountUnread(ctx context.Context, receiverID int64) (int, error)
	MarkRead(ctx context.Context, receiverID, messageID int64) error
	ListConversation(ctx context.Context, userID, peerID int64) ([]domain.Message, error)
	MarkConversationRead(ctx context.Context, userID, peerID int64) (int, error)
}

type PGMessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) MessageRepository {
	return &PGMessageRepository{db: db}
}

const messageColumns = `id, sender_id, receiver_id, tourism_id, content, is_read, timestamp`

func (r *PGMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO messages (sender_id, receiver_id, tourism_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_read, timestamp`, msg.SenderID, msg.ReceiverID, msg.TourID, msg.Content).
		Scan(&msg.ID, &msg.IsRead, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *PGMessageRepository) ListByReceiver(ctx context.Context, receiverID int64, limit int) ([]domain.Message, error) {
	return r.list(ctx, `SELECT `+messageColumns+` FROM messages WHERE receiver_id=$1 ORDER BY timestamp DESC LIMIT $2`, receiverID, limit)
}

const conversationSQL = `SELECT ` + messageColumns + ` FROM messages
	WHERE (sender_id = $1 AND receiver_id = $2)
	   OR (sender_id = $2 AND receiver_id = $1)
	ORDER BY timestamp ASC, id ASC`

// ListConversation returns both directions of the thread between userID and peerID, oldest first.
func (r *PGMessageRepository) ListConversation(ctx context.Context, userID, peerID int64) ([]domain.Message, error) {
	return r.list(ctx, conversationSQL, userID, peerID)
}

// MarkConversationRead marks what peerID sent to userID as read and returns how many changed.
func (r *PGMessageRepository) MarkConversationRead(ctx context.Context, userID, peerID int64) (int, error) {
	cmd, err := conn(ctx, r.db).Exec(ctx, `UPDATE messages SET is_read = TRUE
		WHERE sender_id = $1 AND receiver_id = $2 AND is_read = FALSE`, peerID, userID)
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}
	return int(cmd.RowsAffected()), nil
}

func (r *PGMessageRepository) list(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.TourID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *PGMessageRepository) CountUnread(ctx context.Context, receiverID int64) (int, error) {
	var n int
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE receiver_id=$1 AND is_read = FALSE`, receiverID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return n, nil
}

func (r *PGMessageRepository) MarkRead(ctx context.Context, receiverID, messageID int64) error {
	cmd, err := conn(ctx, r.db).Exec(ctx, `UPDATE messages SET is_read = TRUE WHERE id=$1 AND receiver_id=$2`, messageID, receiverID)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("message %d: %w", messageID, domain.ErrNotFound)
	}
	return nil
}

var _ MessageRepository = (*PGMessageRepository)(nil)
