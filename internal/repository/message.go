package repository

import (
	"context"
	"fmt"

	"github.com/parley/parley/internal/model"
)

// CreateMessage appends a message to a chat and bumps the chat's activity
// stamp in the same transaction. GREATEST keeps updated_at monotonic even
// when messages land with slightly out-of-order timestamps.
func (r *Repository) CreateMessage(ctx context.Context, msg *model.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	insert := `
		INSERT INTO messages (id, chat_id, role, content, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, insert, msg.ID, msg.ChatID, msg.Role, msg.Content, msg.Timestamp); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	bump := `
		UPDATE chats
		SET updated_at = GREATEST(updated_at, $2)
		WHERE id = $1
	`
	result, err := tx.Exec(ctx, bump, msg.ChatID, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to bump chat activity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrChatNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}

	return nil
}

// ListMessagesByChat retrieves a chat's messages in chronological order.
// Message IDs are time-sortable, so they break timestamp ties.
func (r *Repository) ListMessagesByChat(ctx context.Context, chatID string) ([]*model.Message, error) {
	query := `
		SELECT id, chat_id, role, content, timestamp
		FROM messages
		WHERE chat_id = $1
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// CountMessages returns how many messages a chat holds.
func (r *Repository) CountMessages(ctx context.Context, chatID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE chat_id = $1`, chatID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
