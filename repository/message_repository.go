package repository

import (
	"context"
	"fmt"

	"kinsluv/database"
	"kinsluv/models"
)

// MessageRepository implements the service.MessageRepository interface
type MessageRepository struct {
	q queryable
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *database.DB) *MessageRepository {
	return &MessageRepository{q: db.Pool}
}

// newMessageRepositoryWithTx creates a new message repository with a transaction
func newMessageRepositoryWithTx(tx queryable) *MessageRepository {
	return &MessageRepository{q: tx}
}

// Save appends a message
func (r *MessageRepository) Save(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, room, user_id, username, text, time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.Exec(ctx, query, msg.ID, msg.Room, msg.UserID, msg.Username, msg.Text, msg.Time)
	if err != nil {
		return fmt.Errorf("failed to save message %s: %w", msg.ID, err)
	}

	return nil
}

// Recent returns up to limit messages for a room, oldest first. The inner
// query selects the newest rows; the outer one restores chronological order
// so late joiners can render history top to bottom.
func (r *MessageRepository) Recent(ctx context.Context, room string, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, room, user_id, username, text, time
		FROM (
			SELECT id, room, user_id, username, text, time
			FROM messages
			WHERE room = $1
			ORDER BY time DESC
			LIMIT $2
		) recent
		ORDER BY time ASC
	`

	rows, err := r.q.Query(ctx, query, room, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent messages for room %q: %w", room, err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.Room, &msg.UserID, &msg.Username, &msg.Text, &msg.Time)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// Delete removes a message by id
func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message %s: %w", id, err)
	}
	return nil
}

// Count returns the total number of stored messages
func (r *MessageRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
