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

const enrollmentColumns = `user_id, program_id, current_day, joined_at`

type sqlEnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a repository.EnrollmentRepository on db.
func NewEnrollmentRepository(db *sqlx.DB) repository.EnrollmentRepository {
	return &sqlEnrollmentRepository{db: db}
}

func (r *sqlEnrollmentRepository) Create(ctx context.Context, e *domain.Enrollment) error {
	if e.JoinedAt.IsZero() {
		e.JoinedAt = time.Now().UTC()
	}
	if e.CurrentDay < 1 {
		e.CurrentDay = 1
	}

	q := conn(ctx, r.db)
	query := q.Rebind(`INSERT INTO enrollments (` + enrollmentColumns + `) VALUES (?, ?, ?, ?)`)
	if _, err := q.ExecContext(ctx, query, e.UserID, e.ProgramID, e.CurrentDay, e.JoinedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

func (r *sqlEnrollmentRepository) Get(ctx context.Context, userID, programID string) (*domain.Enrollment, error) {
	q := conn(ctx, r.db)
	var e domain.Enrollment
	query := q.Rebind(`SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = ? AND program_id = ?`)
	if err := q.GetContext(ctx, &e, query, userID, programID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return &e, nil
}

func (r *sqlEnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]domain.Enrollment, error) {
	q := conn(ctx, r.db)
	enrollments := []domain.Enrollment{}
	query := q.Rebind(`SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = ? ORDER BY joined_at, program_id`)
	if err := q.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

func (r *sqlEnrollmentRepository) Delete(ctx context.Context, userID, programID string) error {
	q := conn(ctx, r.db)
	query := q.Rebind(`DELETE FROM enrollments WHERE user_id = ? AND program_id = ?`)
	if _, err := q.ExecContext(ctx, query, userID, programID); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

func (r *sqlEnrollmentRepository) DeleteByProgram(ctx context.Context, programID string) error {
	q := conn(ctx, r.db)
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM enrollments WHERE program_id = ?`), programID); err != nil {
		return fmt.Errorf("delete program enrollments: %w", err)
	}
	return nil
}
