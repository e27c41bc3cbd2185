package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fitcoach/backend/internal/ai"
	"fitcoach/backend/internal/config"
	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/internal/repository/backend"
	"fitcoach/backend/internal/service"
	"fitcoach/backend/internal/testhelpers"
)

type managerFixture struct {
	store   *backend.Store
	manager service.PersonalizationManager
	athlete *domain.User
	program *service.ProgramDetail
}

// newManagerFixture enrolls an athlete at day 9 (week 2) of a two-week program.
func newManagerFixture(t *testing.T, gen service.Generator) managerFixture {
	t.Helper()
	store := newStore(t)
	programs := newPrograms(t, store)
	coach := createUser(t, store, "coach", domain.RoleCoach)
	athlete := createUser(t, store, "athlete", domain.RoleAthlete)
	p := createProgram(t, programs, coach.ID, "Strength Builder",
		dayInput(1, "Week 1", "Squat"), dayInput(8, "Week 2", "Deadlift", "Row"))
	enroll(t, store, athlete.ID, p.ID, 9, time.Now())

	manager := service.NewPersonalizationManager(store.Transactor, store.Enrollments, store.Injuries,
		store.Personalizations, service.NewProgramSerializer(store.Programs, store.Schedules), gen,
		service.NewDeterministicLogic(), testhelpers.NewLogger(testhelpers.NewWriter(t)))
	return managerFixture{store: store, manager: manager, athlete: athlete, program: p}
}

func latest(t *testing.T, store *backend.Store, userID string, week int) *domain.ProgramPersonalization {
	t.Helper()
	p, err := store.Personalizations.LatestForWeek(t.Context(), userID, week)
	if err != nil {
		t.Fatalf("LatestForWeek() error = %v", err)
	}
	return p
}

func TestAdaptForInjury(t *testing.T) {
	ctx := t.Context()
	f := newManagerFixture(t, &fakeGenerator{})

	report := domain.InjuryReport{Description: "sore knee", AffectedBodyParts: []string{"knee"}, Severity: domain.SeverityMedium}
	doc, err := f.manager.AdaptForInjury(ctx, f.athlete.ID, report)
	if err != nil {
		t.Fatalf("AdaptForInjury() error = %v", err)
	}
	if len(doc.Weeks) != 1 || doc.Weeks[0].WeekNumber != 2 || len(doc.Weeks[0].Days) != 1 {
		t.Fatalf("AdaptForInjury() = %+v, want the week 2 plan", doc)
	}

	stored := latest(t, f.store, f.athlete.ID, 2)
	if stored.Type != domain.PersonalizationInjuryAdaptation || stored.OriginalProgramID != f.program.ID {
		t.Errorf("stored personalization = %+v", stored)
	}
	storedDoc, err := stored.Document()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(*doc, storedDoc); diff != "" {
		t.Errorf("stored document mismatch (-returned +stored):\n%s", diff)
	}

	// A repeated report is recorded again.
	if _, err := f.manager.AdaptForInjury(ctx, f.athlete.ID, report); err != nil {
		t.Fatal(err)
	}
	active, err := f.store.Injuries.ListActive(ctx, f.athlete.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 || active[0].AffectedBodyParts[0] != "knee" {
		t.Errorf("active injuries = %+v, want 2", active)
	}
}

func TestAdaptForInjuryWithoutEnrollmentKeepsInjury(t *testing.T) {
	ctx := t.Context()
	f := newManagerFixture(t, &fakeGenerator{})
	loner := createUser(t, f.store, "loner", domain.RoleAthlete)

	_, err := f.manager.AdaptForInjury(ctx, loner.ID, domain.InjuryReport{Description: "wrist"})
	if !errors.Is(err, service.ErrNoEnrollment) {
		t.Fatalf("AdaptForInjury() error = %v, want ErrNoEnrollment", err)
	}
	active, err := f.store.Injuries.ListActive(ctx, loner.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Severity != domain.SeverityLow {
		t.Errorf("injury not recorded before the enrollment check: %+v", active)
	}
}

func TestAdaptForInjuryRejectsBadReport(t *testing.T) {
	f := newManagerFixture(t, &fakeGenerator{})
	for _, r := range []domain.InjuryReport{{}, {Description: "x", Severity: "extreme"}} {
		if _, err := f.manager.AdaptForInjury(t.Context(), f.athlete.ID, r); !errors.Is(err, service.ErrInvalidInjury) {
			t.Errorf("AdaptForInjury(%+v) error = %v, want ErrInvalidInjury", r, err)
		}
	}
}

func TestCancelInjury(t *testing.T) {
	ctx := t.Context()
	f := newManagerFixture(t, &fakeGenerator{})

	if _, err := f.manager.AdaptForInjury(ctx, f.athlete.ID, domain.InjuryReport{Description: "knee"}); err != nil {
		t.Fatal(err)
	}
	// An adaptation stored for another week is removed too.
	storePersonalization(t, f.store, f.athlete.ID, f.program.ID, 1, domain.PersonalizationInjuryAdaptation, domain.ProgramDocument{Title: "old"})
	storePersonalization(t, f.store, f.athlete.ID, f.program.ID, 1, domain.PersonalizationReschedule, domain.ProgramDocument{Title: "kept"})

	res, err := f.manager.CancelInjury(ctx, f.athlete.ID)
	if err != nil {
		t.Fatalf("CancelInjury() error = %v", err)
	}
	if diff := cmp.Diff(&service.CancelInjuryResult{ResolvedInjuries: 1, RemovedPersonalizations: 2}, res); diff != "" {
		t.Errorf("CancelInjury() mismatch (-want +got):\n%s", diff)
	}

	if active, _ := f.store.Injuries.ListActive(ctx, f.athlete.ID); len(active) != 0 {
		t.Errorf("%d injuries still active", len(active))
	}
	if _, err := f.store.Personalizations.LatestForWeek(ctx, f.athlete.ID, 2); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("week 2 adaptation not removed: %v", err)
	}
	if p := latest(t, f.store, f.athlete.ID, 1); p.Type != domain.PersonalizationReschedule {
		t.Errorf("remaining week 1 personalization = %s, want reschedule", p.Type)
	}
}

func TestRescheduleFallsBackOnNonJSON(t *testing.T) {
	ctx := t.Context()
	gen := &fakeGenerator{text: "Sorry, I cannot help with that."}
	f := newManagerFixture(t, gen)

	doc, err := f.manager.RescheduleWorkout(ctx, f.athlete.ID, "missed-1", service.RescheduleConstraints{})
	if err != nil {
		t.Fatalf("RescheduleWorkout() error = %v", err)
	}
	if v := service.NewDeterministicLogic().Validate(*doc); !v.IsValid {
		t.Errorf("fallback document invalid: %v", v.Errors)
	}
	if doc.Title != "Strength Builder" || len(doc.Weeks[0].Days) != 1 {
		t.Errorf("fallback document = %+v, want the base week", doc)
	}

	if p := latest(t, f.store, f.athlete.ID, 2); p.Type != domain.PersonalizationReschedule {
		t.Errorf("stored type = %s, want reschedule", p.Type)
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("generator called %d times", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	for _, want := range []string{"missed-1", "60 minutes", "Deadlift", "Do NOT create new exercises"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt lacks %q", want)
		}
	}
}

func TestRescheduleUsesGeneratedDocument(t *testing.T) {
	ctx := t.Context()
	gen := &fakeGenerator{text: "```json\n" + `{"title":"Strength Builder","weeks":[{"weekNumber":2,"days":[
		{"dayNumber":10,"blocks":[{"title":"Moved","type":"strength","exercises":[{"name":"Deadlift","sets":3,"reps":5}]}]}]}]}` + "\n```"}
	f := newManagerFixture(t, gen)

	doc, err := f.manager.RescheduleWorkout(ctx, f.athlete.ID, "missed-1", service.RescheduleConstraints{MaxDurationMinutes: 45})
	if err != nil {
		t.Fatalf("RescheduleWorkout() error = %v", err)
	}
	if got := doc.Weeks[0].Days[0]; got.DayNumber != 10 || got.Blocks[0].Title != "Moved" {
		t.Errorf("RescheduleWorkout() day = %+v, want the generated one", got)
	}
	if !strings.Contains(gen.prompts[0], "45 minutes") {
		t.Error("constraint missing from prompt")
	}
}

func TestRescheduleStartsFromLatestPersonalization(t *testing.T) {
	ctx := t.Context()
	gen := &fakeGenerator{text: "not json"}
	f := newManagerFixture(t, gen)

	adapted := domain.ProgramDocument{Title: "Adapted", Weeks: []domain.DocumentWeek{{WeekNumber: 2, Days: []domain.DocumentDay{
		{DayNumber: 9, Blocks: []domain.DocumentBlock{{Title: "Gentle", Type: domain.BlockTypeFlexibility, Exercises: []domain.DocumentExercise{}}}},
	}}}}
	storePersonalization(t, f.store, f.athlete.ID, f.program.ID, 2, domain.PersonalizationInjuryAdaptation, adapted)

	doc, err := f.manager.RescheduleWorkout(ctx, f.athlete.ID, "m", service.RescheduleConstraints{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(adapted, *doc); diff != "" {
		t.Errorf("base document mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(gen.prompts[0], "Gentle") {
		t.Error("prompt not built from the stored personalization")
	}
}

func TestRescheduleRejectsInvalidDocument(t *testing.T) {
	ctx := t.Context()
	gen := &fakeGenerator{text: `{"title":"Bad","weeks":[{"weekNumber":2,"days":[{"dayNumber":9,"blocks":[
		{"title":"b","type":"strength","exercises":[{"name":"Squat","sets":0}]}]}]}]}`}
	f := newManagerFixture(t, gen)

	_, err := f.manager.RescheduleWorkout(ctx, f.athlete.ID, "m", service.RescheduleConstraints{})
	if !errors.Is(err, service.ErrInvalidGeneratedProgram) {
		t.Fatalf("RescheduleWorkout() error = %v, want ErrInvalidGeneratedProgram", err)
	}
	if !strings.Contains(err.Error(), "sets must be greater than 0") {
		t.Errorf("error %q does not list the validation failure", err)
	}
	if _, err := f.store.Personalizations.LatestForWeek(ctx, f.athlete.ID, 2); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("invalid document was persisted: %v", err)
	}
}

type staticCompleter string

func (c staticCompleter) Complete(context.Context, string) (string, error) { return string(c), nil }

func TestRescheduleStopsAtBudget(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)
	gateway := ai.NewGateway(store.Usage, staticCompleter("{}"),
		config.AIConfig{BudgetUSD: 5, CostPer1KTokens: 0.03, Timeout: time.Second},
		testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if _, err := store.Usage.Add(ctx, 1, 5, 5); err != nil {
		t.Fatal(err)
	}

	programs := newPrograms(t, store)
	coach := createUser(t, store, "coach", domain.RoleCoach)
	athlete := createUser(t, store, "athlete", domain.RoleAthlete)
	p := createProgram(t, programs, coach.ID, "P", dayInput(1, "Main", "Squat"))
	enroll(t, store, athlete.ID, p.ID, 1, time.Now())
	manager := service.NewPersonalizationManager(store.Transactor, store.Enrollments, store.Injuries,
		store.Personalizations, service.NewProgramSerializer(store.Programs, store.Schedules), gateway,
		service.NewDeterministicLogic(), testhelpers.NewLogger(testhelpers.NewWriter(t)))

	if _, err := manager.RescheduleWorkout(ctx, athlete.ID, "m", service.RescheduleConstraints{}); !errors.Is(err, ai.ErrBudgetExceeded) {
		t.Fatalf("RescheduleWorkout() error = %v, want ErrBudgetExceeded", err)
	}
	if _, err := store.Personalizations.LatestForWeek(ctx, athlete.ID, 1); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("personalization stored past the budget: %v", err)
	}
}

type emptyLogic struct{ service.DeterministicLogic }

func (emptyLogic) SelectDefault(context.Context, domain.AthleteProfile) (*domain.ProgramDocument, error) {
	return nil, nil
}

func TestRecommendProgram(t *testing.T) {
	f := newManagerFixture(t, &fakeGenerator{})
	id, err := f.manager.RecommendProgram(t.Context(), domain.AthleteProfile{Age: 30, Goals: []string{"strength"}})
	if err != nil || id != service.DefaultProgramID {
		t.Errorf("RecommendProgram() = %q, %v", id, err)
	}

	manager := service.NewPersonalizationManager(f.store.Transactor, f.store.Enrollments, f.store.Injuries,
		f.store.Personalizations, service.NewProgramSerializer(f.store.Programs, f.store.Schedules), &fakeGenerator{},
		emptyLogic{}, testhelpers.NewLogger(testhelpers.NewWriter(t)))
	id, err = manager.RecommendProgram(t.Context(), domain.AthleteProfile{})
	if err != nil || id != service.FallbackProgramID {
		t.Errorf("RecommendProgram() without selection = %q, %v", id, err)
	}
}
