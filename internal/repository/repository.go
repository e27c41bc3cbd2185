package repository

import (
	"context"
	"time"

	"fitcoach/backend/internal/domain"
)

// Error constants for the repository layer
var (
	ErrNotFound       = RepositoryError("not found")
	ErrConflict       = RepositoryError("conflict")
	ErrBudgetExceeded = RepositoryError("usage budget exceeded")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn inside one storage transaction. Repositories called with the
// context passed to fn take part in that transaction; any error rolls everything back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (string, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ListAthletesByCoach(ctx context.Context, coachID string) ([]domain.User, error)
	// SearchAvailableAthletes returns athletes without a coach whose name contains query.
	SearchAvailableAthletes(ctx context.Context, query string, limit int) ([]domain.User, error)
	// SetCoach links an athlete to a coach. ErrConflict if the athlete already has one.
	SetCoach(ctx context.Context, athleteID, coachID string) error
	// ClearCoach unlinks the athlete only when coachID is its current coach.
	ClearCoach(ctx context.Context, athleteID, coachID string) error
}

// ProgramRepository defines the interface for program metadata.
type ProgramRepository interface {
	Create(ctx context.Context, program *domain.Program) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Program, error)
	// ListByCreator returns the creator's programs, most recently edited first.
	ListByCreator(ctx context.Context, creatorID string) ([]domain.Program, error)
	GetByCreatorAndTitle(ctx context.Context, creatorID, title string) (*domain.Program, error)
	Update(ctx context.Context, program *domain.Program) error
	Delete(ctx context.Context, id string) error
}

// ScheduleRepository stores the nested day -> block -> exercise structure of programs.
type ScheduleRepository interface {
	CreateDayPlan(ctx context.Context, day *domain.DayPlan) (string, error)
	// CreateBlock inserts the block and links it to the day at the given order.
	CreateBlock(ctx context.Context, dayPlanID string, order int, block *domain.WodBloc) (string, error)
	// CreateExercise inserts the exercise and links it to the block.
	CreateExercise(ctx context.Context, blockID string, exercise *domain.Exercise) (string, error)
	// ListDayPlans returns the program's days with fromDay <= dayNumber <= toDay, by dayNumber.
	ListDayPlans(ctx context.Context, programID string, fromDay, toDay int) ([]domain.DayPlan, error)
	ListAllDayPlans(ctx context.Context, programID string) ([]domain.DayPlan, error)
	// ListDayBlocks returns the block links of the given days ordered by order ascending.
	ListDayBlocks(ctx context.Context, dayPlanIDs []string) ([]domain.DayBlock, error)
	ListBlockExercises(ctx context.Context, blockIDs []string) ([]domain.BlockExercise, error)
	// DeleteByProgram removes every day, block, exercise and link owned by the program.
	DeleteByProgram(ctx context.Context, programID string) error
}

// EnrollmentRepository defines the interface for user <-> program enrollments.
type EnrollmentRepository interface {
	// Create fails with ErrConflict when the (user, program) pair already exists.
	Create(ctx context.Context, enrollment *domain.Enrollment) error
	Get(ctx context.Context, userID, programID string) (*domain.Enrollment, error)
	// ListByUser orders by joinedAt, then programId.
	ListByUser(ctx context.Context, userID string) ([]domain.Enrollment, error)
	Delete(ctx context.Context, userID, programID string) error
	DeleteByProgram(ctx context.Context, programID string) error
}

// InjuryRepository defines the interface for athlete injuries.
type InjuryRepository interface {
	Create(ctx context.Context, injury *domain.AthleteInjury) (string, error)
	ListActive(ctx context.Context, userID string) ([]domain.AthleteInjury, error)
	// ResolveActive deactivates every active injury of the user and returns how many changed.
	ResolveActive(ctx context.Context, userID string, at time.Time) (int64, error)
}

// PersonalizationRepository defines the interface for stored week overrides.
type PersonalizationRepository interface {
	Create(ctx context.Context, p *domain.ProgramPersonalization) (string, error)
	// LatestForWeek returns the most recently created personalization of any type.
	LatestForWeek(ctx context.Context, userID string, weekNumber int) (*domain.ProgramPersonalization, error)
	// DeleteByType removes the user's personalizations of the type across all weeks.
	DeleteByType(ctx context.Context, userID string, kind domain.PersonalizationType) (int64, error)
	DeleteByProgram(ctx context.Context, programID string) error
}

// UsageRepository owns the singleton AI usage counter.
type UsageRepository interface {
	// Get returns the counter, zero-valued when it was never written.
	Get(ctx context.Context) (*domain.AIUsage, error)
	// Add increments the counter in one atomic step, only while the recorded cost is
	// below limitUSD. Otherwise it changes nothing and returns ErrBudgetExceeded.
	Add(ctx context.Context, tokens int64, costUSD, limitUSD float64) (*domain.AIUsage, error)
	Reset(ctx context.Context) error
}
