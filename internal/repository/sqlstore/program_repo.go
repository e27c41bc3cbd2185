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

const programColumns = `id, creator_id, title, description, created_at, updated_at`

type sqlProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository creates a repository.ProgramRepository on db.
func NewProgramRepository(db *sqlx.DB) repository.ProgramRepository {
	return &sqlProgramRepository{db: db}
}

func (r *sqlProgramRepository) Create(ctx context.Context, program *domain.Program) (string, error) {
	program.ID = domain.NewID()
	now := time.Now().UTC()
	program.CreatedAt = now
	program.UpdatedAt = now

	q := conn(ctx, r.db)
	query := q.Rebind(`INSERT INTO programs (` + programColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := q.ExecContext(ctx, query,
		program.ID, program.CreatorID, program.Title, program.Description, program.CreatedAt, program.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("program %q: %w", program.Title, repository.ErrConflict)
		}
		return "", fmt.Errorf("insert program: %w", err)
	}
	return program.ID, nil
}

func (r *sqlProgramRepository) GetByID(ctx context.Context, id string) (*domain.Program, error) {
	return r.getOne(ctx, `SELECT `+programColumns+` FROM programs WHERE id = ?`, id)
}

func (r *sqlProgramRepository) GetByCreatorAndTitle(ctx context.Context, creatorID, title string) (*domain.Program, error) {
	return r.getOne(ctx, `SELECT `+programColumns+` FROM programs WHERE creator_id = ? AND title = ?`, creatorID, title)
}

func (r *sqlProgramRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Program, error) {
	q := conn(ctx, r.db)
	var program domain.Program
	if err := q.GetContext(ctx, &program, q.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get program: %w", err)
	}
	return &program, nil
}

func (r *sqlProgramRepository) ListByCreator(ctx context.Context, creatorID string) ([]domain.Program, error) {
	q := conn(ctx, r.db)
	programs := []domain.Program{}
	query := q.Rebind(`SELECT ` + programColumns + ` FROM programs WHERE creator_id = ? ORDER BY updated_at DESC, id`)
	if err := q.SelectContext(ctx, &programs, query, creatorID); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return programs, nil
}

func (r *sqlProgramRepository) Update(ctx context.Context, program *domain.Program) error {
	program.UpdatedAt = time.Now().UTC()

	q := conn(ctx, r.db)
	query := q.Rebind(`UPDATE programs SET title = ?, description = ?, updated_at = ? WHERE id = ?`)
	res, err := q.ExecContext(ctx, query, program.Title, program.Description, program.UpdatedAt, program.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("program %q: %w", program.Title, repository.ErrConflict)
		}
		return fmt.Errorf("update program: %w", err)
	}
	return requireRow(res)
}

func (r *sqlProgramRepository) Delete(ctx context.Context, id string) error {
	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM programs WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	return requireRow(res)
}

// requireRow maps a statement that touched nothing to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
