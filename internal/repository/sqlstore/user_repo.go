package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
)

const userColumns = `id, name, email, password_hash, role, coach_id, created_at, updated_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type sqlUserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a repository.UserRepository on db.
func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &sqlUserRepository{db: db}
}

func (r *sqlUserRepository) Create(ctx context.Context, user *domain.User) (string, error) {
	if user.Email == "" || user.PasswordHash == "" || user.Role == "" {
		return "", errors.New("user email, password hash, and role are required")
	}

	user.ID = domain.NewID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	q := conn(ctx, r.db)
	query := q.Rebind(`INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := q.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.CoachID, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("user with email %s: %w", user.Email, repository.ErrConflict)
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return user.ID, nil
}

func (r *sqlUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *sqlUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *sqlUserRepository) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	q := conn(ctx, r.db)
	var user domain.User
	if err := q.GetContext(ctx, &user, q.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (r *sqlUserRepository) ListAthletesByCoach(ctx context.Context, coachID string) ([]domain.User, error) {
	q := conn(ctx, r.db)
	users := []domain.User{}
	query := q.Rebind(`SELECT ` + userColumns + ` FROM users WHERE coach_id = ? AND role = ? ORDER BY name, id`)
	if err := q.SelectContext(ctx, &users, query, coachID, domain.RoleAthlete); err != nil {
		return nil, fmt.Errorf("list athletes of coach %s: %w", coachID, err)
	}
	return users, nil
}

func (r *sqlUserRepository) SearchAvailableAthletes(ctx context.Context, query string, limit int) ([]domain.User, error) {
	q := conn(ctx, r.db)
	users := []domain.User{}
	stmt := q.Rebind(`SELECT ` + userColumns + ` FROM users
		WHERE role = ? AND coach_id IS NULL AND LOWER(name) LIKE ? ESCAPE '\'
		ORDER BY name, id LIMIT ?`)
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	if err := q.SelectContext(ctx, &users, stmt, domain.RoleAthlete, pattern, limit); err != nil {
		return nil, fmt.Errorf("search athletes: %w", err)
	}
	return users, nil
}

func (r *sqlUserRepository) SetCoach(ctx context.Context, athleteID, coachID string) error {
	q := conn(ctx, r.db)
	query := q.Rebind(`UPDATE users SET coach_id = ?, updated_at = ? WHERE id = ? AND role = ? AND coach_id IS NULL`)
	res, err := q.ExecContext(ctx, query, coachID, time.Now().UTC(), athleteID, domain.RoleAthlete)
	if err != nil {
		return fmt.Errorf("set coach: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set coach: %w", err)
	}
	if n == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *sqlUserRepository) ClearCoach(ctx context.Context, athleteID, coachID string) error {
	q := conn(ctx, r.db)
	query := q.Rebind(`UPDATE users SET coach_id = NULL, updated_at = ? WHERE id = ? AND coach_id = ?`)
	res, err := q.ExecContext(ctx, query, time.Now().UTC(), athleteID, coachID)
	if err != nil {
		return fmt.Errorf("clear coach: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear coach: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
