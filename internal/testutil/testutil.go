package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/parley/parley/internal/model"
	"github.com/redis/go-redis/v9"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 730731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// resetSchema applies a migration pair (down then up) by file stem.
func resetSchema(ctx context.Context, pool *pgxpool.Pool, stem string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	downPath := filepath.Join(root, "migrations", stem+".down.sql")
	upPath := filepath.Join(root, "migrations", stem+".up.sql")

	downSQL, err := os.ReadFile(downPath)
	if err != nil {
		return fmt.Errorf("read down migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		return fmt.Errorf("apply down migration: %w", err)
	}

	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		return fmt.Errorf("read up migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		return fmt.Errorf("apply up migration: %w", err)
	}

	return nil
}

// ResetAccountsSchema drops and recreates the accounts schema for tests.
func ResetAccountsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000001_accounts")
}

// ResetChatsSchema drops and recreates the chats and messages schemas.
// Messages reference chats, so both tables reset together.
func ResetChatsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if err := resetSchema(ctx, pool, "000003_messages"); err != nil {
		return err
	}
	return resetSchema(ctx, pool, "000002_chats")
}

// ResetUsageSchema drops and recreates the usage_events schema for tests.
func ResetUsageSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000004_usage_events")
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestAccount creates a test account with sensible defaults.
func NewTestAccount(t testing.TB, subjectID string) *model.Account {
	t.Helper()
	now := time.Now().UTC()
	return &model.Account{
		SubjectID:   subjectID,
		Email:       subjectID + "@example.com",
		DisplayName: "Test User",
		CreatedAt:   now,
		LastLogin:   now,
	}
}

// NewTestChat creates a test chat with sensible defaults.
func NewTestChat(t testing.TB, ownerID string) *model.Chat {
	t.Helper()
	now := time.Now().UTC()
	return &model.Chat{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     model.DefaultChatTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestMessage creates a test message in the given chat.
func NewTestMessage(t testing.TB, chatID string, role model.Role, content string) *model.Message {
	t.Helper()
	return &model.Message{
		ID:        ulid.Make().String(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// UniqueSubjectID generates a unique subject ID for tests.
func UniqueSubjectID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
