package service

import (
	"context"
	"errors"
	"fmt"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
)

var (
	ErrProgramNotFound = errors.New("program not found")
	ErrInvalidWeek     = errors.New("week number must be at least 1")
)

// ProgramSerializer turns one stored program week into a ProgramDocument.
type ProgramSerializer interface {
	SerializeWeek(ctx context.Context, programID string, weekNumber int) (domain.ProgramDocument, error)
}

type programSerializer struct {
	programRepo  repository.ProgramRepository
	scheduleRepo repository.ScheduleRepository
}

func NewProgramSerializer(programRepo repository.ProgramRepository, scheduleRepo repository.ScheduleRepository) ProgramSerializer {
	return &programSerializer{programRepo: programRepo, scheduleRepo: scheduleRepo}
}

// SerializeWeek returns a document holding exactly one week. A week without
// DayPlans yields an empty day list rather than an error.
func (s *programSerializer) SerializeWeek(ctx context.Context, programID string, weekNumber int) (domain.ProgramDocument, error) {
	if weekNumber < 1 {
		return domain.ProgramDocument{}, ErrInvalidWeek
	}

	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ProgramDocument{}, ErrProgramNotFound
		}
		return domain.ProgramDocument{}, fmt.Errorf("load program %s: %w", programID, err)
	}

	from, to := domain.WeekRange(weekNumber)
	days, err := s.scheduleRepo.ListDayPlans(ctx, programID, from, to)
	if err != nil {
		return domain.ProgramDocument{}, fmt.Errorf("list day plans: %w", err)
	}
	schedule, err := loadSchedule(ctx, s.scheduleRepo, days)
	if err != nil {
		return domain.ProgramDocument{}, fmt.Errorf("load schedule: %w", err)
	}

	week := domain.DocumentWeek{WeekNumber: weekNumber, Days: make([]domain.DocumentDay, 0, len(schedule))}
	for _, ds := range schedule {
		day := domain.DocumentDay{DayNumber: ds.Day.DayNumber, Blocks: make([]domain.DocumentBlock, 0, len(ds.Blocks))}
		for _, bs := range ds.Blocks {
			day.Blocks = append(day.Blocks, domain.DocumentBlock{
				ID:        bs.Block.ID,
				Title:     bs.Block.Title,
				Type:      bs.Block.Type,
				Exercises: documentExercises(bs.Exercises),
			})
		}
		week.Days = append(week.Days, day)
	}

	return domain.ProgramDocument{
		ID:          program.ID,
		Title:       program.Title,
		Description: program.Description,
		Weeks:       []domain.DocumentWeek{week},
	}, nil
}
