package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
)

// --- Error Definitions ---
var (
	ErrAthleteNotFound       = errors.New("athlete not found")
	ErrAthleteAlreadyCoached = errors.New("athlete already has a coach")
	ErrAthleteNotManaged     = errors.New("athlete not found or not yours")
)

// SearchLimit caps the athletes returned by a search.
const SearchLimit = 20

// AthleteSummary is an athlete as listed for the coach.
type AthleteSummary struct {
	ID               string                   `json:"id"`
	Name             string                   `json:"name"`
	Email            string                   `json:"email"`
	Role             domain.Role              `json:"role"`
	AssignedPrograms []domain.AssignedProgram `json:"assignedPrograms"`
}

// AssignOutcome tells whether an assignment created a new enrollment.
type AssignOutcome int

const (
	Assigned AssignOutcome = iota
	AlreadyAssigned
)

type CoachService interface {
	// Athlete management
	ListAthletes(ctx context.Context, coachID string) ([]AthleteSummary, error)
	SearchAthletes(ctx context.Context, query string) ([]domain.User, error)
	AddAthlete(ctx context.Context, coachID, athleteID string) error
	RemoveAthlete(ctx context.Context, coachID, athleteID string) error

	// Program assignment
	AssignProgram(ctx context.Context, coachID, athleteID, programID string) (AssignOutcome, error)
	UnassignProgram(ctx context.Context, coachID, athleteID, programID string) error
}

// coachService implements the CoachService interface.
type coachService struct {
	userRepo       repository.UserRepository
	programRepo    repository.ProgramRepository
	enrollmentRepo repository.EnrollmentRepository
	logger         *slog.Logger
}

// NewCoachService creates a new instance of coachService.
func NewCoachService(
	userRepo repository.UserRepository,
	programRepo repository.ProgramRepository,
	enrollmentRepo repository.EnrollmentRepository,
	logger *slog.Logger,
) CoachService {
	return &coachService{
		userRepo:       userRepo,
		programRepo:    programRepo,
		enrollmentRepo: enrollmentRepo,
		logger:         logger,
	}
}

// === Athlete Management ===

// ListAthletes returns the coach's athletes with the programs they are enrolled in.
func (s *coachService) ListAthletes(ctx context.Context, coachID string) ([]AthleteSummary, error) {
	athletes, err := s.userRepo.ListAthletesByCoach(ctx, coachID)
	if err != nil {
		return nil, err
	}

	titles := map[string]string{}
	out := make([]AthleteSummary, 0, len(athletes))
	for _, a := range athletes {
		enrollments, err := s.enrollmentRepo.ListByUser(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("list enrollments of %s: %w", a.ID, err)
		}

		assigned := make([]domain.AssignedProgram, 0, len(enrollments))
		for _, e := range enrollments {
			title, ok := titles[e.ProgramID]
			if !ok {
				program, err := s.programRepo.GetByID(ctx, e.ProgramID)
				if err != nil {
					if errors.Is(err, repository.ErrNotFound) {
						continue
					}
					return nil, err
				}
				title = program.Title
				titles[e.ProgramID] = title
			}
			assigned = append(assigned, domain.AssignedProgram{ID: e.ProgramID, Name: title})
		}

		out = append(out, AthleteSummary{
			ID:               a.ID,
			Name:             a.Name,
			Email:            a.Email,
			Role:             a.Role,
			AssignedPrograms: assigned,
		})
	}
	return out, nil
}

// SearchAthletes finds athletes without a coach. An empty query matches nobody.
func (s *coachService) SearchAthletes(ctx context.Context, query string) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.User{}, nil
	}
	return s.userRepo.SearchAvailableAthletes(ctx, query, SearchLimit)
}

// AddAthlete links an uncoached athlete to the coach.
func (s *coachService) AddAthlete(ctx context.Context, coachID, athleteID string) error {
	// 1. Find the athlete
	athlete, err := s.userRepo.GetByID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAthleteNotFound
		}
		return err
	}
	if !athlete.IsAthlete() {
		return ErrAthleteNotFound
	}

	// 2. Only athletes without a coach can be added
	if athlete.HasCoach() {
		return ErrAthleteAlreadyCoached
	}

	// 3. SetCoach re-checks atomically
	if err = s.userRepo.SetCoach(ctx, athleteID, coachID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrAthleteAlreadyCoached
		}
		return err
	}
	s.logger.InfoContext(ctx, "Athlete added", "athlete_id", athleteID)
	return nil
}

// RemoveAthlete unlinks the athlete when the caller is its coach.
func (s *coachService) RemoveAthlete(ctx context.Context, coachID, athleteID string) error {
	if err := s.userRepo.ClearCoach(ctx, athleteID, coachID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAthleteNotManaged
		}
		return err
	}
	s.logger.InfoContext(ctx, "Athlete removed", "athlete_id", athleteID)
	return nil
}

// === Assignment Management ===

// AssignProgram enrolls a managed athlete at day 1. Assigning twice is not an error.
func (s *coachService) AssignProgram(ctx context.Context, coachID, athleteID, programID string) (AssignOutcome, error) {
	// 1. Athlete belongs to the coach
	if err := s.checkManaged(ctx, coachID, athleteID); err != nil {
		return Assigned, err
	}

	// 2. Program exists
	if _, err := s.programRepo.GetByID(ctx, programID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Assigned, ErrProgramNotFound
		}
		return Assigned, err
	}

	// 3. Enroll; an existing pair means already assigned
	enrollment := &domain.Enrollment{
		UserID:     athleteID,
		ProgramID:  programID,
		CurrentDay: 1,
		JoinedAt:   time.Now().UTC(),
	}
	if err := s.enrollmentRepo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return AlreadyAssigned, nil
		}
		return Assigned, err
	}
	s.logger.InfoContext(ctx, "Program assigned", "athlete_id", athleteID, "program_id", programID)
	return Assigned, nil
}

func (s *coachService) UnassignProgram(ctx context.Context, coachID, athleteID, programID string) error {
	if err := s.checkManaged(ctx, coachID, athleteID); err != nil {
		return err
	}
	if err := s.enrollmentRepo.Delete(ctx, athleteID, programID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Program unassigned", "athlete_id", athleteID, "program_id", programID)
	return nil
}

func (s *coachService) checkManaged(ctx context.Context, coachID, athleteID string) error {
	athlete, err := s.userRepo.GetByID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAthleteNotManaged
		}
		return err
	}
	if !athlete.HasCoach() || *athlete.CoachID != coachID {
		return ErrAthleteNotManaged
	}
	return nil
}
