package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
)

const usageColumns = `id, total_tokens, total_cost_usd, updated_at`

type sqlUsageRepository struct {
	db *sqlx.DB
}

// NewUsageRepository creates a repository.UsageRepository on db.
func NewUsageRepository(db *sqlx.DB) repository.UsageRepository {
	return &sqlUsageRepository{db: db}
}

func (r *sqlUsageRepository) Get(ctx context.Context) (*domain.AIUsage, error) {
	q := conn(ctx, r.db)
	var usage domain.AIUsage
	query := q.Rebind(`SELECT ` + usageColumns + ` FROM ai_usage WHERE id = ?`)
	if err := q.GetContext(ctx, &usage, query, domain.GlobalUsageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.AIUsage{ID: domain.GlobalUsageID}, nil
		}
		return nil, fmt.Errorf("get usage: %w", err)
	}
	return &usage, nil
}

// Add seeds the singleton row when missing, then increments it with the budget
// condition evaluated by the database in the same statement.
func (r *sqlUsageRepository) Add(ctx context.Context, tokens int64, costUSD, limitUSD float64) (*domain.AIUsage, error) {
	q := conn(ctx, r.db)
	now := time.Now().UTC()

	seed := q.Rebind(`INSERT INTO ai_usage (` + usageColumns + `) VALUES (?, 0, 0, ?) ON CONFLICT (id) DO NOTHING`)
	if _, err := q.ExecContext(ctx, seed, domain.GlobalUsageID, now); err != nil {
		return nil, fmt.Errorf("seed usage: %w", err)
	}

	update := q.Rebind(`UPDATE ai_usage
		SET total_tokens = total_tokens + ?, total_cost_usd = total_cost_usd + ?, updated_at = ?
		WHERE id = ? AND total_cost_usd < ?`)
	res, err := q.ExecContext(ctx, update, tokens, costUSD, now, domain.GlobalUsageID, limitUSD)
	if err != nil {
		return nil, fmt.Errorf("increment usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("increment usage: %w", err)
	}
	if n == 0 {
		return nil, repository.ErrBudgetExceeded
	}
	return r.Get(ctx)
}

func (r *sqlUsageRepository) Reset(ctx context.Context) error {
	q := conn(ctx, r.db)
	now := time.Now().UTC()
	query := q.Rebind(`INSERT INTO ai_usage (` + usageColumns + `) VALUES (?, 0, 0, ?)
		ON CONFLICT (id) DO UPDATE SET total_tokens = 0, total_cost_usd = 0, updated_at = ?`)
	if _, err := q.ExecContext(ctx, query, domain.GlobalUsageID, now, now); err != nil {
		return fmt.Errorf("reset usage: %w", err)
	}
	return nil
}
