package service

import (
	"context"
	"fmt"

	"fitcoach/backend/internal/domain"
)

// Placeholder identities returned when no real program can be chosen.
const (
	DefaultProgramID    = "default-strength-program"
	FallbackProgramID   = "default-program-id"
	defaultProgramTitle = "Default Strength Program"
)

// LogicProvider supplies the domain decisions behind personalization. The
// deterministic implementation is a stand-in for a rules engine or a model.
type LogicProvider interface {
	Adapt(ctx context.Context, doc domain.ProgramDocument, injury domain.InjuryReport) (domain.ProgramDocument, error)
	SelectDefault(ctx context.Context, profile domain.AthleteProfile) (*domain.ProgramDocument, error)
	Validate(doc domain.ProgramDocument) domain.ValidationResult
}

// DeterministicLogic adapts nothing and always recommends the same program.
type DeterministicLogic struct{}

func NewDeterministicLogic() *DeterministicLogic {
	return &DeterministicLogic{}
}

// Adapt returns an unchanged copy of doc.
func (DeterministicLogic) Adapt(_ context.Context, doc domain.ProgramDocument, _ domain.InjuryReport) (domain.ProgramDocument, error) {
	return doc.Clone(), nil
}

func (DeterministicLogic) SelectDefault(_ context.Context, _ domain.AthleteProfile) (*domain.ProgramDocument, error) {
	return &domain.ProgramDocument{
		ID:    DefaultProgramID,
		Title: defaultProgramTitle,
		Weeks: []domain.DocumentWeek{},
	}, nil
}

// Validate checks the structural invariants of a document.
func (DeterministicLogic) Validate(doc domain.ProgramDocument) domain.ValidationResult {
	var errs []string
	if doc.Title == "" {
		errs = append(errs, "title is required")
	}
	if len(doc.Weeks) == 0 {
		errs = append(errs, "at least one week is required")
	}
	for _, w := range doc.Weeks {
		if w.WeekNumber < 1 {
			errs = append(errs, fmt.Sprintf("week %d: weekNumber must be at least 1", w.WeekNumber))
		}
		for _, d := range w.Days {
			if d.DayNumber <= 0 {
				errs = append(errs, fmt.Sprintf("week %d: dayNumber must be greater than 0", w.WeekNumber))
			}
			for _, b := range d.Blocks {
				if !b.Type.Valid() {
					errs = append(errs, fmt.Sprintf("day %d: block %q has unknown type %q", d.DayNumber, b.Title, b.Type))
				}
				for _, e := range b.Exercises {
					if e.Sets <= 0 {
						errs = append(errs, fmt.Sprintf("exercise %q: sets must be greater than 0", e.Name))
					}
					if e.Reps != nil && *e.Reps <= 0 {
						errs = append(errs, fmt.Sprintf("exercise %q: reps must be greater than 0", e.Name))
					}
				}
			}
		}
	}
	return domain.ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
