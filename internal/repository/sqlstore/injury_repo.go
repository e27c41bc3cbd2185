package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
)

// injuryRow stores affected body parts as a JSON array column.
type injuryRow struct {
	domain.AthleteInjury
	BodyParts string `db:"affected_body_parts"`
}

type sqlInjuryRepository struct {
	db *sqlx.DB
}

// NewInjuryRepository creates a repository.InjuryRepository on db.
func NewInjuryRepository(db *sqlx.DB) repository.InjuryRepository {
	return &sqlInjuryRepository{db: db}
}

func (r *sqlInjuryRepository) Create(ctx context.Context, injury *domain.AthleteInjury) (string, error) {
	injury.ID = domain.NewID()
	if injury.CreatedAt.IsZero() {
		injury.CreatedAt = time.Now().UTC()
	}
	parts := injury.AffectedBodyParts
	if parts == nil {
		parts = []string{}
	}
	encoded, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("encode body parts: %w", err)
	}

	q := conn(ctx, r.db)
	query := q.Rebind(`INSERT INTO athlete_injuries
		(id, user_id, description, affected_body_parts, severity, is_active, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := q.ExecContext(ctx, query, injury.ID, injury.UserID, injury.Description, string(encoded),
		injury.Severity, injury.IsActive, injury.CreatedAt, injury.ResolvedAt); err != nil {
		return "", fmt.Errorf("insert injury: %w", err)
	}
	return injury.ID, nil
}

func (r *sqlInjuryRepository) ListActive(ctx context.Context, userID string) ([]domain.AthleteInjury, error) {
	q := conn(ctx, r.db)
	var rows []injuryRow
	query := q.Rebind(`SELECT id, user_id, description, affected_body_parts, severity, is_active, created_at, resolved_at
		FROM athlete_injuries WHERE user_id = ? AND is_active = ? ORDER BY created_at, id`)
	if err := q.SelectContext(ctx, &rows, query, userID, true); err != nil {
		return nil, fmt.Errorf("list injuries: %w", err)
	}

	injuries := make([]domain.AthleteInjury, 0, len(rows))
	for _, row := range rows {
		injury := row.AthleteInjury
		if err := json.Unmarshal([]byte(row.BodyParts), &injury.AffectedBodyParts); err != nil {
			return nil, fmt.Errorf("decode body parts of injury %s: %w", injury.ID, err)
		}
		injuries = append(injuries, injury)
	}
	return injuries, nil
}

func (r *sqlInjuryRepository) ResolveActive(ctx context.Context, userID string, at time.Time) (int64, error) {
	q := conn(ctx, r.db)
	query := q.Rebind(`UPDATE athlete_injuries SET is_active = ?, resolved_at = ? WHERE user_id = ? AND is_active = ?`)
	res, err := q.ExecContext(ctx, query, false, at.UTC(), userID, true)
	if err != nil {
		return 0, fmt.Errorf("resolve injuries: %w", err)
	}
	return res.RowsAffected()
}
