package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/parley/parley/internal/model"
)

// Common errors for chat repository operations.
var (
	ErrChatNotFound = errors.New("chat not found")
)

// CreateChat inserts a new chat into the database.
func (r *Repository) CreateChat(ctx context.Context, chat *model.Chat) error {
	query := `
		INSERT INTO chats (id, owner_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		chat.ID,
		chat.OwnerID,
		chat.Title,
		chat.CreatedAt,
		chat.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	return nil
}

// GetChatByID retrieves a chat by its ID.
func (r *Repository) GetChatByID(ctx context.Context, id string) (*model.Chat, error) {
	query := `
		SELECT id, owner_id, title, created_at, updated_at
		FROM chats
		WHERE id = $1
	`

	chat, err := scanChat(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to get chat by ID: %w", err)
	}

	return chat, nil
}

// ListChatsByOwner retrieves all chats owned by a subject, most recently
// active first.
func (r *Repository) ListChatsByOwner(ctx context.Context, ownerID string) ([]*model.Chat, error) {
	query := `
		SELECT id, owner_id, title, created_at, updated_at
		FROM chats
		WHERE owner_id = $1
		ORDER BY updated_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []*model.Chat
	for rows.Next() {
		var chat model.Chat
		if err := rows.Scan(&chat.ID, &chat.OwnerID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, &chat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}

	return chats, nil
}

// UpdateChatTitle renames a chat.
func (r *Repository) UpdateChatTitle(ctx context.Context, id, title string) error {
	query := `
		UPDATE chats
		SET title = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, title)
	if err != nil {
		return fmt.Errorf("failed to update chat title: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrChatNotFound
	}

	return nil
}

// DeleteChatCascade removes a chat and every message stored under it.
// Both deletes run in one transaction so a partial removal never survives.
func (r *Repository) DeleteChatCascade(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE chat_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete chat messages: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrChatNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit chat delete: %w", err)
	}

	return nil
}

// scanChat scans a single row into a Chat model.
func scanChat(row pgx.Row) (*model.Chat, error) {
	var chat model.Chat
	err := row.Scan(
		&chat.ID,
		&chat.OwnerID,
		&chat.Title,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	return &chat, err
}
