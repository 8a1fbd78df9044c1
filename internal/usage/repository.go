package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/parley/parley/internal/model"
)

// SQLRepository persists usage events via database/sql.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository creates a new usage repository.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// BulkInsert writes a batch of usage events in one statement.
// ON CONFLICT on event_id makes redelivered batches idempotent.
func (r *SQLRepository) BulkInsert(ctx context.Context, events []*model.UsageEvent) error {
	if len(events) == 0 {
		return nil
	}

	eventIDs := make([]string, len(events))
	chatIDs := make([]string, len(events))
	ownerIDs := make([]string, len(events))
	modes := make([]string, len(events))
	promptChars := make([]int64, len(events))
	completionChars := make([]int64, len(events))
	fragments := make([]int64, len(events))
	latencies := make([]int64, len(events))
	occurredAts := make([]time.Time, len(events))

	for i, event := range events {
		eventIDs[i] = event.EventID
		chatIDs[i] = event.ChatID
		ownerIDs[i] = event.OwnerID
		modes[i] = event.Mode
		promptChars[i] = int64(event.PromptChars)
		completionChars[i] = int64(event.CompletionChars)
		fragments[i] = int64(event.Fragments)
		latencies[i] = event.LatencyMs
		occurredAts[i] = event.OccurredAt
	}

	query := `
		INSERT INTO usage_events (
			event_id, chat_id, owner_id, mode,
			prompt_chars, completion_chars, fragments, latency_ms, occurred_at
		)
		SELECT * FROM unnest(
			$1::text[], $2::text[], $3::text[], $4::text[],
			$5::bigint[], $6::bigint[], $7::int[], $8::bigint[], $9::timestamptz[]
		)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		pq.Array(eventIDs),
		pq.Array(chatIDs),
		pq.Array(ownerIDs),
		pq.Array(modes),
		pq.Array(promptChars),
		pq.Array(completionChars),
		pq.Array(fragments),
		pq.Array(latencies),
		pq.Array(occurredAts),
	)
	if err != nil {
		return fmt.Errorf("bulk insert usage events: %w", err)
	}

	return nil
}

// UpdateDailyStats folds a batch into per-owner daily aggregates.
// Events aggregate in memory first so each (day, owner) pair touches
// the table once per batch.
func (r *SQLRepository) UpdateDailyStats(ctx context.Context, events []*model.UsageEvent) error {
	if len(events) == 0 {
		return nil
	}

	type dayKey struct {
		day   string
		owner string
	}
	type dayAgg struct {
		completions     int64
		promptChars     int64
		completionChars int64
	}

	aggs := make(map[dayKey]*dayAgg)
	for _, event := range events {
		key := dayKey{
			day:   event.OccurredAt.UTC().Format("2006-01-02"),
			owner: event.OwnerID,
		}
		agg, ok := aggs[key]
		if !ok {
			agg = &dayAgg{}
			aggs[key] = agg
		}
		agg.completions++
		agg.promptChars += int64(event.PromptChars)
		agg.completionChars += int64(event.CompletionChars)
	}

	query := `
		INSERT INTO usage_daily_stats (day, owner_id, completions, prompt_chars, completion_chars)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (day, owner_id) DO UPDATE
		SET completions = usage_daily_stats.completions + EXCLUDED.completions,
		    prompt_chars = usage_daily_stats.prompt_chars + EXCLUDED.prompt_chars,
		    completion_chars = usage_daily_stats.completion_chars + EXCLUDED.completion_chars
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin daily stats tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for key, agg := range aggs {
		if _, err := tx.ExecContext(ctx, query,
			key.day, key.owner,
			agg.completions, agg.promptChars, agg.completionChars,
		); err != nil {
			return fmt.Errorf("upsert daily stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit daily stats: %w", err)
	}

	return nil
}

// OwnerTotals returns lifetime usage counters for one owner.
func (r *SQLRepository) OwnerTotals(ctx context.Context, ownerID string) (completions, promptChars, completionChars int64, err error) {
	query := `
		SELECT COALESCE(SUM(completions), 0),
		       COALESCE(SUM(prompt_chars), 0),
		       COALESCE(SUM(completion_chars), 0)
		FROM usage_daily_stats
		WHERE owner_id = $1
	`

	err = r.db.QueryRowContext(ctx, query, ownerID).Scan(&completions, &promptChars, &completionChars)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("query owner totals: %w", err)
	}
	return completions, promptChars, completionChars, nil
}
