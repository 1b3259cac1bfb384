package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-notes-workspace/internal/model"
)

type UsageRepository struct {
	pool *pgxpool.Pool
}

func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// Account returns the balance with tokens used since periodStart.
func (r *UsageRepository) Account(ctx context.Context, userID string, periodStart time.Time) (model.TokenAccount, error) {
	var a model.TokenAccount
	err := r.pool.QueryRow(ctx,
		`SELECT a.balance, a.total_tokens,
		        COALESCE((SELECT SUM(amount) FROM token_usage u
		                  WHERE u.user_id = a.user_id AND u.created_at >= $2), 0)::bigint
		 FROM token_accounts a WHERE a.user_id = $1`, userID, periodStart).
		Scan(&a.Balance, &a.TotalTokens, &a.UsedTokens)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.TokenAccount{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.TokenAccount{}, fmt.Errorf("get token account: %w", err)
	}
	return a, nil
}

// Consume debits the balance and records the event atomically. The balance
// never goes negative.
func (r *UsageRepository) Consume(ctx context.Context, ev model.UsageEvent) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin consume: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE token_accounts SET balance = balance - $2, updated_at = $3
		 WHERE user_id = $1 AND balance >= $2`, ev.UserID, ev.Amount, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("debit tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrInsufficientTokens
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO token_usage (id, user_id, feature, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5)`, ev.ID, ev.UserID, ev.Feature, ev.Amount, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("record token usage: %w", err)
	}

	return tx.Commit(ctx)
}

// Daily sums usage per UTC day since since, oldest first.
func (r *UsageRepository) Daily(ctx context.Context, userID string, since time.Time) ([]model.DailyUsage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, SUM(amount)::bigint
		 FROM token_usage
		 WHERE user_id = $1 AND created_at >= $2
		 GROUP BY day ORDER BY day`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("daily usage: %w", err)
	}
	defer rows.Close()

	out := make([]model.DailyUsage, 0)
	for rows.Next() {
		var d model.DailyUsage
		if err := rows.Scan(&d.Date, &d.Tokens); err != nil {
			return nil, fmt.Errorf("scan daily usage: %w", err)
		}
		d.Date = d.Date.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

// ByFeature sums usage per feature since since, largest first.
func (r *UsageRepository) ByFeature(ctx context.Context, userID string, since time.Time) ([]model.UsageBreakdown, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT feature, SUM(amount)::bigint AS total
		 FROM token_usage
		 WHERE user_id = $1 AND created_at >= $2
		 GROUP BY feature ORDER BY total DESC, feature`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("usage breakdown: %w", err)
	}
	defer rows.Close()

	out := make([]model.UsageBreakdown, 0)
	for rows.Next() {
		var b model.UsageBreakdown
		if err := rows.Scan(&b.Feature, &b.Tokens); err != nil {
			return nil, fmt.Errorf("scan usage breakdown: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
