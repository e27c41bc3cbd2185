package service_test

import (
	"context"
	"testing"
	"time"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository/backend"
	"fitcoach/backend/internal/repository/sqlstore"
	"fitcoach/backend/internal/service"
	"fitcoach/backend/internal/testhelpers"
)

// newStore opens an in-memory SQL backend for one test.
func newStore(t *testing.T) *backend.Store {
	t.Helper()
	db, err := sqlstore.Open(t.Context(), sqlstore.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	store := backend.NewSQLStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newPrograms(t *testing.T, store *backend.Store) service.ProgramService {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	return service.NewProgramService(store.Transactor, store.Programs, store.Schedules, store.Enrollments,
		store.Personalizations, service.NewProgramSerializer(store.Programs, store.Schedules), nil, logger)
}

func createUser(t *testing.T, store *backend.Store, name string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Name: name, Email: name + "@example.com", PasswordHash: "hash", Role: role}
	if _, err := store.Users.Create(t.Context(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func intPtr(v int) *int { return &v }

// dayInput is one day holding a single strength block.
func dayInput(dayNumber int, blockTitle string, exercises ...string) service.DayInput {
	block := service.BlockInput{Title: blockTitle, Type: domain.BlockTypeStrength}
	for _, name := range exercises {
		block.Exercises = append(block.Exercises, service.ExerciseInput{Name: name, Sets: intPtr(3), Reps: intPtr(10)})
	}
	return service.DayInput{DayNumber: dayNumber, Blocks: []service.BlockInput{block}}
}

func createProgram(t *testing.T, programs service.ProgramService, coachID, title string, days ...service.DayInput) *service.ProgramDetail {
	t.Helper()
	p, err := programs.Create(t.Context(), coachID, service.ProgramInput{Title: title, Days: days})
	if err != nil {
		t.Fatalf("create program %q: %v", title, err)
	}
	return p
}

func enroll(t *testing.T, store *backend.Store, userID, programID string, currentDay int, joinedAt time.Time) {
	t.Helper()
	e := &domain.Enrollment{UserID: userID, ProgramID: programID, CurrentDay: currentDay, JoinedAt: joinedAt}
	if err := store.Enrollments.Create(t.Context(), e); err != nil {
		t.Fatalf("enroll: %v", err)
	}
}

func storePersonalization(t *testing.T, store *backend.Store, userID, programID string, week int, kind domain.PersonalizationType, doc domain.ProgramDocument) {
	t.Helper()
	p, err := domain.NewPersonalization(userID, programID, week, kind, doc)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Personalizations.Create(t.Context(), p); err != nil {
		t.Fatalf("store personalization: %v", err)
	}
}

// fakeGenerator returns canned text and records prompts.
type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *fakeGenerator) Invoke(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}
