package repository

import (
	"context"
	"fmt"

	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/storage"
)

// CreateMessage inserts a message into a match.
func (r *Repository) CreateMessage(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (id, match_id, sender_id, receiver_id, content, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		msg.ID,
		msg.MatchID,
		msg.SenderID,
		msg.ReceiverID,
		msg.Content,
		msg.Read,
		msg.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return storage.ErrMatchNotFound
		}
		return classify("create message", err)
	}
	return nil
}

// ListMessages returns the messages of a match, oldest first.
func (r *Repository) ListMessages(ctx context.Context, matchID string) ([]*model.Message, error) {
	query := `
		SELECT id, match_id, sender_id, receiver_id, content, read, created_at
		FROM messages
		WHERE match_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, classify("list messages", err)
	}
	defer rows.Close()

	messages := make([]*model.Message, 0)
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.MatchID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Content,
			&msg.Read,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate messages", err)
	}
	return messages, nil
}

// CountUnread counts unread messages addressed to userID.
func (r *Repository) CountUnread(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND NOT read`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, classify("count unread", err)
	}
	return count, nil
}

// MarkRead flags the messages of matchID addressed to readerID as read.
func (r *Repository) MarkRead(ctx context.Context, matchID, readerID string) (int, error) {
	query := `
		UPDATE messages
		SET read = TRUE
		WHERE match_id = $1 AND receiver_id = $2 AND NOT read
	`

	tag, err := r.pool.Exec(ctx, query, matchID, readerID)
	if err != nil {
		return 0, classify("mark read", err)
	}
	return int(tag.RowsAffected()), nil
}
