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

const personalizationColumns = `id, user_id, original_program_id, week_number, day_number,
	personalization_type, schema_version, data, created_at`

// personalizationRow scans the TEXT payload column before handing it out as raw JSON.
type personalizationRow struct {
	ID                string                     `db:"id"`
	UserID            string                     `db:"user_id"`
	OriginalProgramID string                     `db:"original_program_id"`
	WeekNumber        int                        `db:"week_number"`
	DayNumber         *int                       `db:"day_number"`
	Type              domain.PersonalizationType `db:"personalization_type"`
	SchemaVersion     int                        `db:"schema_version"`
	Data              []byte                     `db:"data"`
	CreatedAt         time.Time                  `db:"created_at"`
}

type sqlPersonalizationRepository struct {
	db *sqlx.DB
}

// NewPersonalizationRepository creates a repository.PersonalizationRepository on db.
func NewPersonalizationRepository(db *sqlx.DB) repository.PersonalizationRepository {
	return &sqlPersonalizationRepository{db: db}
}

func (r *sqlPersonalizationRepository) Create(ctx context.Context, p *domain.ProgramPersonalization) (string, error) {
	p.ID = domain.NewID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	q := conn(ctx, r.db)
	query := q.Rebind(`INSERT INTO program_personalizations (` + personalizationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := q.ExecContext(ctx, query, p.ID, p.UserID, p.OriginalProgramID, p.WeekNumber, p.DayNumber,
		p.Type, p.SchemaVersion, string(p.Data), p.CreatedAt); err != nil {
		return "", fmt.Errorf("insert personalization: %w", err)
	}
	return p.ID, nil
}

func (r *sqlPersonalizationRepository) LatestForWeek(ctx context.Context, userID string, weekNumber int) (*domain.ProgramPersonalization, error) {
	q := conn(ctx, r.db)
	var row personalizationRow
	query := q.Rebind(`SELECT ` + personalizationColumns + ` FROM program_personalizations
		WHERE user_id = ? AND week_number = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`)
	if err := q.GetContext(ctx, &row, query, userID, weekNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("latest personalization: %w", err)
	}
	return &domain.ProgramPersonalization{
		ID:                row.ID,
		UserID:            row.UserID,
		OriginalProgramID: row.OriginalProgramID,
		WeekNumber:        row.WeekNumber,
		DayNumber:         row.DayNumber,
		Type:              row.Type,
		SchemaVersion:     row.SchemaVersion,
		Data:              row.Data,
		CreatedAt:         row.CreatedAt,
	}, nil
}

func (r *sqlPersonalizationRepository) DeleteByType(ctx context.Context, userID string, kind domain.PersonalizationType) (int64, error) {
	q := conn(ctx, r.db)
	query := q.Rebind(`DELETE FROM program_personalizations WHERE user_id = ? AND personalization_type = ?`)
	res, err := q.ExecContext(ctx, query, userID, kind)
	if err != nil {
		return 0, fmt.Errorf("delete personalizations: %w", err)
	}
	return res.RowsAffected()
}

func (r *sqlPersonalizationRepository) DeleteByProgram(ctx context.Context, programID string) error {
	q := conn(ctx, r.db)
	query := q.Rebind(`DELETE FROM program_personalizations WHERE original_program_id = ?`)
	if _, err := q.ExecContext(ctx, query, programID); err != nil {
		return fmt.Errorf("delete program personalizations: %w", err)
	}
	return nil
}
