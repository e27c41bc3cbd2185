package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
)

var ErrNoEnrollment = errors.New("user is not enrolled in any program")

// TrainingService builds the athlete-facing weekly plan.
type TrainingService interface {
	GetWeeklyPlan(ctx context.Context, userID string) (*domain.WeeklyPlan, error)
}

type trainingService struct {
	enrollmentRepo      repository.EnrollmentRepository
	scheduleRepo        repository.ScheduleRepository
	personalizationRepo repository.PersonalizationRepository
	logger              *slog.Logger
}

func NewTrainingService(
	enrollmentRepo repository.EnrollmentRepository,
	scheduleRepo repository.ScheduleRepository,
	personalizationRepo repository.PersonalizationRepository,
	logger *slog.Logger,
) TrainingService {
	return &trainingService{
		enrollmentRepo:      enrollmentRepo,
		scheduleRepo:        scheduleRepo,
		personalizationRepo: personalizationRepo,
		logger:              logger,
	}
}

// GetWeeklyPlan returns the newest personalization of the current week when one
// exists, otherwise the live schedules of all enrollments merged by weekday.
func (s *trainingService) GetWeeklyPlan(ctx context.Context, userID string) (*domain.WeeklyPlan, error) {
	// 1. Enrollments, first one by joinedAt
	enrollments, err := s.enrollmentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		return nil, ErrNoEnrollment
	}

	// 2. A personalization of the current week overrides the live schedule
	currentWeek := enrollments[0].CurrentWeek()
	p, err := s.personalizationRepo.LatestForWeek(ctx, userID, currentWeek)
	switch {
	case err == nil:
		doc, err := p.Document()
		if err != nil {
			return nil, err
		}
		plan := doc.Present()
		s.logger.DebugContext(ctx, "Serving personalized week", "personalization_id", p.ID, "type", p.Type, "week", currentWeek)
		return &plan, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load personalization: %w", err)
	}

	// 3. Each enrollment's own current week, loaded concurrently
	schedules := make([][]daySchedule, len(enrollments))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range enrollments {
		g.Go(func() error {
			from, to := domain.WeekRange(e.CurrentWeek())
			days, err := s.scheduleRepo.ListDayPlans(gctx, e.ProgramID, from, to)
			if err != nil {
				return fmt.Errorf("list day plans of %s: %w", e.ProgramID, err)
			}
			schedules[i], err = loadSchedule(gctx, s.scheduleRepo, days)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	weekNumber := 0
	for _, e := range enrollments {
		weekNumber = max(weekNumber, e.CurrentWeek())
	}
	return &domain.WeeklyPlan{WeekNumber: weekNumber, Days: mergeByWeekday(schedules)}, nil
}

// mergeByWeekday folds the schedules into one day per non-empty weekday index.
// Blocks keep their stored order, so orders may repeat across programs.
func mergeByWeekday(schedules [][]daySchedule) []domain.PlanDay {
	var byWeekday [domain.DaysPerWeek][]daySchedule
	for _, schedule := range schedules {
		for _, ds := range schedule {
			idx := domain.NormalizeWeekday(ds.Day.DayNumber) - 1
			byWeekday[idx] = append(byWeekday[idx], ds)
		}
	}

	days := []domain.PlanDay{}
	for idx, contributing := range byWeekday {
		if len(contributing) == 0 {
			continue
		}
		day := domain.PlanDay{
			ID:        contributing[0].Day.ID,
			DayNumber: idx + 1,
			Blocks:    []domain.PlanBlock{},
		}
		for _, ds := range contributing {
			for _, bs := range ds.Blocks {
				day.Blocks = append(day.Blocks, domain.PlanBlock{
					ID:        bs.Block.ID,
					Title:     bs.Block.Title,
					Type:      bs.Block.Type,
					Order:     bs.Order,
					Exercises: documentExercises(bs.Exercises),
				})
			}
		}
		days = append(days, day)
	}
	return days
}
