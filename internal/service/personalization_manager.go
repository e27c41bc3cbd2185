package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
)

var (
	ErrInvalidInjury           = errors.New("injury description is required and severity must be low, medium or high")
	ErrInvalidGeneratedProgram = errors.New("generated program is invalid")
)

// DefaultMaxDurationMinutes applies when a reschedule request carries no constraints.
const DefaultMaxDurationMinutes = 60

// Generator produces text for a prompt. It is satisfied by *ai.Gateway.
type Generator interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// RescheduleConstraints bound the rescheduled week.
type RescheduleConstraints struct {
	MaxDurationMinutes int `json:"maxDurationMinutes"`
}

// CancelInjuryResult reports what an injury cancellation changed.
type CancelInjuryResult struct {
	ResolvedInjuries        int64 `json:"resolvedInjuries"`
	RemovedPersonalizations int64 `json:"removedPersonalizations"`
}

type PersonalizationManager interface {
	AdaptForInjury(ctx context.Context, userID string, injury domain.InjuryReport) (*domain.ProgramDocument, error)
	CancelInjury(ctx context.Context, userID string) (*CancelInjuryResult, error)
	RescheduleWorkout(ctx context.Context, userID, missedWorkoutID string, constraints RescheduleConstraints) (*domain.ProgramDocument, error)
	RecommendProgram(ctx context.Context, profile domain.AthleteProfile) (string, error)
}

type personalizationManager struct {
	tx                  repository.Transactor
	enrollmentRepo      repository.EnrollmentRepository
	injuryRepo          repository.InjuryRepository
	personalizationRepo repository.PersonalizationRepository
	serializer          ProgramSerializer
	generator           Generator
	logic               LogicProvider
	logger              *slog.Logger
}

func NewPersonalizationManager(
	tx repository.Transactor,
	enrollmentRepo repository.EnrollmentRepository,
	injuryRepo repository.InjuryRepository,
	personalizationRepo repository.PersonalizationRepository,
	serializer ProgramSerializer,
	generator Generator,
	logic LogicProvider,
	logger *slog.Logger,
) PersonalizationManager {
	return &personalizationManager{
		tx:                  tx,
		enrollmentRepo:      enrollmentRepo,
		injuryRepo:          injuryRepo,
		personalizationRepo: personalizationRepo,
		serializer:          serializer,
		generator:           generator,
		logic:               logic,
		logger:              logger,
	}
}

// AdaptForInjury records the injury and stores an adapted copy of the current week.
func (m *personalizationManager) AdaptForInjury(ctx context.Context, userID string, report domain.InjuryReport) (*domain.ProgramDocument, error) {
	report.Description = strings.TrimSpace(report.Description)
	if report.Severity == "" {
		report.Severity = domain.SeverityLow
	}
	if report.Description == "" || !report.Severity.Valid() {
		return nil, ErrInvalidInjury
	}
	if report.AffectedBodyParts == nil {
		report.AffectedBodyParts = []string{}
	}

	// 1. Every report becomes a new active injury, duplicates included
	injury := &domain.AthleteInjury{
		UserID:            userID,
		Description:       report.Description,
		AffectedBodyParts: report.AffectedBodyParts,
		Severity:          report.Severity,
		IsActive:          true,
	}
	if _, err := m.injuryRepo.Create(ctx, injury); err != nil {
		return nil, fmt.Errorf("record injury: %w", err)
	}

	// 2. Current enrollment
	enrollment, err := m.firstEnrollment(ctx, userID)
	if err != nil {
		return nil, err
	}
	week := enrollment.CurrentWeek()

	// 3. Base plan of the current week
	base, err := m.serializer.SerializeWeek(ctx, enrollment.ProgramID, week)
	if err != nil {
		return nil, err
	}

	// 4. Domain adaptation
	adapted, err := m.logic.Adapt(ctx, base, report)
	if err != nil {
		return nil, fmt.Errorf("adapt program: %w", err)
	}

	// 5. Persist, no de-duplication
	if err = m.save(ctx, userID, enrollment.ProgramID, week, domain.PersonalizationInjuryAdaptation, adapted); err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "Program adapted for injury", "injury_id", injury.ID, "program_id", enrollment.ProgramID, "week", week)
	return &adapted, nil
}

// CancelInjury resolves all active injuries and drops every injury adaptation of
// the user. The deletion spans all weeks, not only the current one.
func (m *personalizationManager) CancelInjury(ctx context.Context, userID string) (*CancelInjuryResult, error) {
	result := &CancelInjuryResult{}
	err := m.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if result.ResolvedInjuries, err = m.injuryRepo.ResolveActive(ctx, userID, time.Now().UTC()); err != nil {
			return fmt.Errorf("resolve injuries: %w", err)
		}
		if result.RemovedPersonalizations, err = m.personalizationRepo.DeleteByType(ctx, userID, domain.PersonalizationInjuryAdaptation); err != nil {
			return fmt.Errorf("delete injury adaptations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "Injury cancelled", "resolved", result.ResolvedInjuries, "removed", result.RemovedPersonalizations)
	return result, nil
}

// RescheduleWorkout asks the generator for a rescheduled week. Text that is not a
// program document falls back to the deterministic adaptation of the base week.
func (m *personalizationManager) RescheduleWorkout(ctx context.Context, userID, missedWorkoutID string, constraints RescheduleConstraints) (*domain.ProgramDocument, error) {
	if constraints.MaxDurationMinutes <= 0 {
		constraints.MaxDurationMinutes = DefaultMaxDurationMinutes
	}

	enrollment, err := m.firstEnrollment(ctx, userID)
	if err != nil {
		return nil, err
	}
	week := enrollment.CurrentWeek()

	// 1. Start from the newest personalization of the week, else the live schedule
	base, err := m.baseDocument(ctx, userID, enrollment.ProgramID, week)
	if err != nil {
		return nil, err
	}

	// 2. Prompt
	prompt, err := reschedulePrompt(missedWorkoutID, constraints, base)
	if err != nil {
		return nil, err
	}

	// 3. Generation; budget and timeout errors propagate
	text, err := m.generator.Invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}

	// 4. Parse or fall back
	rescheduled, err := domain.ParseProgramDocument(text)
	if err != nil {
		m.logger.WarnContext(ctx, "Generated text is not a program document, using deterministic fallback", "error", err)
		rescheduled, err = m.logic.Adapt(ctx, base, domain.InjuryReport{
			Description:       "Rescheduling missed workout (generation fallback)",
			AffectedBodyParts: []string{},
			Severity:          domain.SeverityLow,
		})
		if err != nil {
			return nil, fmt.Errorf("fallback adaptation: %w", err)
		}
	}

	// 5. Validate before anything is stored
	if v := m.logic.Validate(rescheduled); !v.IsValid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGeneratedProgram, strings.Join(v.Errors, ", "))
	}

	// 6. Persist
	if err = m.save(ctx, userID, enrollment.ProgramID, week, domain.PersonalizationReschedule, rescheduled); err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "Workout rescheduled", "program_id", enrollment.ProgramID, "week", week, "missed_workout_id", missedWorkoutID)
	return &rescheduled, nil
}

// RecommendProgram returns the id of the program picked for the profile.
func (m *personalizationManager) RecommendProgram(ctx context.Context, profile domain.AthleteProfile) (string, error) {
	doc, err := m.logic.SelectDefault(ctx, profile)
	if err != nil {
		return "", fmt.Errorf("select default program: %w", err)
	}
	if doc == nil || doc.ID == "" {
		return FallbackProgramID, nil
	}
	return doc.ID, nil
}

// --- Helpers ---

// firstEnrollment picks the earliest joined enrollment; ListByUser already orders that way.
func (m *personalizationManager) firstEnrollment(ctx context.Context, userID string) (*domain.Enrollment, error) {
	enrollments, err := m.enrollmentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		return nil, ErrNoEnrollment
	}
	return &enrollments[0], nil
}

func (m *personalizationManager) baseDocument(ctx context.Context, userID, programID string, week int) (domain.ProgramDocument, error) {
	p, err := m.personalizationRepo.LatestForWeek(ctx, userID, week)
	if err == nil {
		return p.Document()
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.ProgramDocument{}, fmt.Errorf("load personalization: %w", err)
	}
	return m.serializer.SerializeWeek(ctx, programID, week)
}

func (m *personalizationManager) save(ctx context.Context, userID, programID string, week int, kind domain.PersonalizationType, doc domain.ProgramDocument) error {
	p, err := domain.NewPersonalization(userID, programID, week, kind, doc)
	if err != nil {
		return err
	}
	if _, err = m.personalizationRepo.Create(ctx, p); err != nil {
		return fmt.Errorf("save personalization: %w", err)
	}
	return nil
}

func reschedulePrompt(missedWorkoutID string, constraints RescheduleConstraints, base domain.ProgramDocument) (string, error) {
	plan, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode base week: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a professional sports coach assistant.\n")
	fmt.Fprintf(&b, "An athlete missed a workout (ID: %s) and needs to reschedule their week.\n\n", missedWorkoutID)
	b.WriteString("CONSTRAINTS:\n")
	fmt.Fprintf(&b, "- Max duration per workout: %d minutes.\n", constraints.MaxDurationMinutes)
	b.WriteString("- Do NOT create new exercises. Use only the ones provided.\n")
	b.WriteString("- Maintain muscular balance.\n\n")
	b.WriteString("CURRENT WEEK PLAN:\n")
	b.Write(plan)
	b.WriteString("\n\nOUTPUT:\nRespond ONLY with a valid JSON object matching the schema of the current week plan.\n")
	return b.String(), nil
}
