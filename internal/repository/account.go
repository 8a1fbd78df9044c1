package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/parley/parley/internal/model"
)

// Common errors for account repository operations.
var (
	ErrAccountNotFound = errors.New("account not found")
)

// UpsertAccount creates an account record or refreshes its profile fields.
// The created_at stamp is written once on first sync and never updated.
func (r *Repository) UpsertAccount(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (subject_id, email, display_name, photo_url, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subject_id) DO UPDATE
		SET email = EXCLUDED.email,
		    display_name = EXCLUDED.display_name,
		    photo_url = EXCLUDED.photo_url,
		    last_login = EXCLUDED.last_login
	`

	_, err := r.pool.Exec(ctx, query,
		account.SubjectID,
		account.Email,
		account.DisplayName,
		account.PhotoURL,
		account.CreatedAt,
		account.LastLogin,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}

	return nil
}

// GetAccount retrieves an account by its subject ID.
func (r *Repository) GetAccount(ctx context.Context, subjectID string) (*model.Account, error) {
	query := `
		SELECT subject_id, email, display_name, photo_url, created_at, last_login
		FROM accounts
		WHERE subject_id = $1
	`

	var account model.Account
	err := r.pool.QueryRow(ctx, query, subjectID).Scan(
		&account.SubjectID,
		&account.Email,
		&account.DisplayName,
		&account.PhotoURL,
		&account.CreatedAt,
		&account.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}
