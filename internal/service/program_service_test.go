package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/internal/service"
	"fitcoach/backend/internal/testhelpers"
)

func TestProgramCreateAndGet(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)
	programs := newPrograms(t, store)
	coach := createUser(t, store, "coach", domain.RoleCoach)

	in := service.ProgramInput{
		Title:       "  Strength Builder ",
		Description: "Two weeks",
		Days: []service.DayInput{
			{DayNumber: 8, Blocks: []service.BlockInput{{Title: "Heavy", Type: domain.BlockTypeStrength,
				Exercises: []service.ExerciseInput{{Name: "Deadlift", Sets: intPtr(5), Reps: intPtr(5)}}}}},
			{DayNumber: 1, Blocks: []service.BlockInput{
				{Title: "Warmup", Exercises: []service.ExerciseInput{{Name: "Jog", Time: domain.NewDuration(5 * time.Minute)}}},
				{Title: "Main", Type: domain.BlockTypeStrength, Exercises: []service.ExerciseInput{
					{Name: "Squat", Sets: intPtr(3), Reps: intPtr(10), Type: domain.BlockTypeStrength},
					{Name: "Lunge", Sets: intPtr(3), Reps: intPtr(12)},
				}},
			}},
		},
	}
	created, err := programs.Create(ctx, coach.ID, in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Title != "Strength Builder" || created.CreatorID != coach.ID {
		t.Errorf("Create() program = %+v", created.Program)
	}

	got, err := programs.Get(ctx, coach.ID, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	type blockView struct {
		Title     string
		Type      domain.BlockType
		Order     int
		Exercises []string
	}
	var days []int
	var blocks []blockView
	for _, d := range got.Days {
		days = append(days, d.DayNumber)
		for _, b := range d.Blocks {
			bv := blockView{Title: b.Title, Type: b.Type, Order: b.Order}
			for _, e := range b.Exercises {
				bv.Exercises = append(bv.Exercises, e.Name)
			}
			blocks = append(blocks, bv)
		}
	}
	if diff := cmp.Diff([]int{1, 8}, days); diff != "" {
		t.Errorf("days mismatch (-want +got):\n%s", diff)
	}
	wantBlocks := []blockView{
		{Title: "Warmup", Type: domain.BlockTypeOther, Order: 1, Exercises: []string{"Jog"}},
		{Title: "Main", Type: domain.BlockTypeStrength, Order: 2, Exercises: []string{"Squat", "Lunge"}},
		{Title: "Heavy", Type: domain.BlockTypeStrength, Order: 1, Exercises: []string{"Deadlift"}},
	}
	if diff := cmp.Diff(wantBlocks, blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}

	jog := got.Days[0].Blocks[0].Exercises[0]
	if jog.Sets != 1 || jog.Type != domain.BlockTypeOther || jog.Reps != nil {
		t.Errorf("defaults not applied: %+v", jog)
	}
	if jog.Time == nil || time.Duration(*jog.Time) != 5*time.Minute {
		t.Errorf("time = %v, want 5m", jog.Time)
	}

	list, err := programs.List(ctx, coach.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("List() = %v, %v", list, err)
	}
}

func TestProgramValidation(t *testing.T) {
	store := newStore(t)
	programs := newPrograms(t, store)
	coach := createUser(t, store, "coach", domain.RoleCoach)

	tests := []struct {
		name string
		in   service.ProgramInput
	}{
		{"missing title", service.ProgramInput{Title: " "}},
		{"zero day", service.ProgramInput{Title: "x", Days: []service.DayInput{{DayNumber: 0}}}},
		{"duplicate day", service.ProgramInput{Title: "x", Days: []service.DayInput{{DayNumber: 1}, {DayNumber: 1}}}},
		{"unknown block type", service.ProgramInput{Title: "x", Days: []service.DayInput{
			{DayNumber: 1, Blocks: []service.BlockInput{{Title: "b", Type: "yoga"}}}}}},
		{"zero sets", service.ProgramInput{Title: "x", Days: []service.DayInput{dayWith(service.ExerciseInput{Name: "e", Sets: intPtr(0)})}}},
		{"negative reps", service.ProgramInput{Title: "x", Days: []service.DayInput{dayWith(service.ExerciseInput{Name: "e", Reps: intPtr(-1)})}}},
		{"sub-second time", service.ProgramInput{Title: "x", Days: []service.DayInput{dayWith(service.ExerciseInput{Name: "e", Time: domain.NewDuration(1500 * time.Millisecond)})}}},
		{"zero time", service.ProgramInput{Title: "x", Days: []service.DayInput{dayWith(service.ExerciseInput{Name: "e", Time: domain.NewDuration(0)})}}},
		{"missing exercise name", service.ProgramInput{Title: "x", Days: []service.DayInput{dayWith(service.ExerciseInput{})}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := programs.Create(t.Context(), coach.ID, tt.in)
			if !errors.Is(err, service.ErrInvalidProgram) {
				t.Errorf("Create() error = %v, want ErrInvalidProgram", err)
			}
		})
	}

	list, err := programs.List(t.Context(), coach.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("invalid programs were stored: %v", list)
	}
}

func dayWith(e service.ExerciseInput) service.DayInput {
	return service.DayInput{DayNumber: 1, Blocks: []service.BlockInput{{Title: "b", Exercises: []service.ExerciseInput{e}}}}
}

func TestProgramDuplicateTitle(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)
	programs := newPrograms(t, store)
	coach := createUser(t, store, "coach", domain.RoleCoach)
	other := createUser(t, store, "other", domain.RoleCoach)

	a := createProgram(t, programs, coach.ID, "A")
	createProgram(t, programs, coach.ID, "B")
	createProgram(t, programs, other.ID, "A")

	if _, err := programs.Create(ctx, coach.ID, service.ProgramInput{Title: "A"}); !errors.Is(err, service.ErrDuplicateProgramTitle) {
		t.Errorf("Create(dup) error = %v, want ErrDuplicateProgramTitle", err)
	}
	if _, err := programs.Update(ctx, coach.ID, a.ID, service.ProgramInput{Title: "B"}); !errors.Is(err, service.ErrDuplicateProgramTitle) {
		t.Errorf("Update(to B) error = %v, want ErrDuplicateProgramTitle", err)
	}
	if _, err := programs.Update(ctx, coach.ID, a.ID, service.ProgramInput{Title: "A", Description: "same title"}); err != nil {
		t.Errorf("Update(keep title) error = %v", err)
	}
}

func TestProgramScopedToCreator(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)
	programs := newPrograms(t, store)
	coach := createUser(t, store, "coach", domain.RoleCoach)
	other := createUser(t, store, "other", domain.RoleCoach)
	p := createProgram(t, programs, coach.ID, "Mine", dayInput(1, "Main", "Squat"))

	if _, err := programs.Get(ctx, other.ID, p.ID); !errors.Is(err, service.ErrProgramNotFound) {
		t.Errorf("Get() by other coach error = %v, want ErrProgramNotFound", err)
	}
	if err := programs.Delete(ctx, other.ID, p.ID); !errors.Is(err, service.ErrProgramNotFound) {
		t.Errorf("Delete() by other coach error = %v, want ErrProgramNotFound", err)
	}
	if _, err := programs.Get(ctx, coach.ID, "missing"); !errors.Is(err, service.ErrProgramNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrProgramNotFound", err)
	}
}

func TestProgramUpdateReplacesStructure(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)
	programs := newPrograms(t, store)
	coach := createUser(t, store, "coach", domain.RoleCoach)
	p := createProgram(t, programs, coach.ID, "P", dayInput(1, "Main", "Squat", "Bench"), dayInput(2, "Main", "Row"))

	updated, err := programs.Update(ctx, coach.ID, p.ID, service.ProgramInput{
		Title: "P2", Days: []service.DayInput{dayInput(3, "New", "Press")},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Title != "P2" || len(updated.Days) != 1 || updated.Days[0].DayNumber != 3 {
		t.Fatalf("Update() = %+v", updated)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Errorf("lastEditDate %v before creation %v", updated.UpdatedAt, updated.CreatedAt)
	}

	all, err := store.Schedules.ListAllDayPlans(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("%d day plans left after update, want 1", len(all))
	}
}

// failingSchedule fails every CreateExercise call.
type failingSchedule struct {
	repository.ScheduleRepository
}

var errStorage = errors.New("simulated storage failure")

func (f failingSchedule) CreateExercise(context.Context, string, *domain.Exercise) (string, error) {
	return "", errStorage
}

func TestProgramUpdateRollsBack(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)
	programs := newPrograms(t, store)
	coach := createUser(t, store, "coach", domain.RoleCoach)
	p := createProgram(t, programs, coach.ID, "P", dayInput(1, "Main", "Squat", "Bench"))

	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	broken := failingSchedule{store.Schedules}
	failing := service.NewProgramService(store.Transactor, store.Programs, broken, store.Enrollments,
		store.Personalizations, service.NewProgramSerializer(store.Programs, broken), nil, logger)

	_, err := failing.Update(ctx, coach.ID, p.ID, service.ProgramInput{
		Title: "Renamed", Days: []service.DayInput{dayInput(1, "Main", "Press")},
	})
	if !errors.Is(err, errStorage) {
		t.Fatalf("Update() error = %v, want simulated failure", err)
	}

	got, err := programs.Get(ctx, coach.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "P" {
		t.Errorf("title = %q, metadata update was not rolled back", got.Title)
	}
	if len(got.Days) != 1 || len(got.Days[0].Blocks) != 1 {
		t.Fatalf("structure after rollback = %+v", got.Days)
	}
	var names []string
	for _, e := range got.Days[0].Blocks[0].Exercises {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"Squat", "Bench"}, names); diff != "" {
		t.Errorf("exercises after rollback (-want +got):\n%s", diff)
	}
}

func TestProgramCreateRollsBack(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)
	coach := createUser(t, store, "coach", domain.RoleCoach)

	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	broken := failingSchedule{store.Schedules}
	failing := service.NewProgramService(store.Transactor, store.Programs, broken, store.Enrollments,
		store.Personalizations, service.NewProgramSerializer(store.Programs, broken), nil, logger)

	if _, err := failing.Create(ctx, coach.ID, service.ProgramInput{Title: "P", Days: []service.DayInput{dayInput(1, "Main", "Squat")}}); !errors.Is(err, errStorage) {
		t.Fatalf("Create() error = %v, want simulated failure", err)
	}
	if _, err := store.Programs.GetByCreatorAndTitle(ctx, coach.ID, "P"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("program row survived the rollback: %v", err)
	}
}

func TestProgramDeleteCascades(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)
	programs := newPrograms(t, store)
	coach := createUser(t, store, "coach", domain.RoleCoach)
	athlete := createUser(t, store, "athlete", domain.RoleAthlete)
	p := createProgram(t, programs, coach.ID, "P", dayInput(1, "Main", "Squat"))
	enroll(t, store, athlete.ID, p.ID, 1, time.Now())
	storePersonalization(t, store, athlete.ID, p.ID, 1, domain.PersonalizationReschedule, domain.ProgramDocument{Title: "P"})

	if err := programs.Delete(ctx, coach.ID, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := store.Programs.GetByID(ctx, p.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("program still present: %v", err)
	}
	if days, _ := store.Schedules.ListAllDayPlans(ctx, p.ID); len(days) != 0 {
		t.Errorf("%d day plans left", len(days))
	}
	if list, _ := store.Enrollments.ListByUser(ctx, athlete.ID); len(list) != 0 {
		t.Errorf("%d enrollments left", len(list))
	}
	if _, err := store.Personalizations.LatestForWeek(ctx, athlete.ID, 1); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("personalization left: %v", err)
	}
}

// memoryStorage keeps uploads in memory.
type memoryStorage struct {
	objects    map[string][]byte
	presignErr error
}

func (m *memoryStorage) PutObject(_ context.Context, key, _ string, body io.Reader) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = b
	return nil
}

func (m *memoryStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if m.presignErr != nil {
		return "", m.presignErr
	}
	return "https://files.example.com/" + key + "?signed", nil
}

func (m *memoryStorage) DeleteObject(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func TestExportWeek(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	files := &memoryStorage{objects: map[string][]byte{}}
	serializer := service.NewProgramSerializer(store.Programs, store.Schedules)
	uploading := service.NewProgramService(store.Transactor, store.Programs, store.Schedules, store.Enrollments,
		store.Personalizations, serializer, files, logger)
	local := newPrograms(t, store)

	coach := createUser(t, store, "coach", domain.RoleCoach)
	p := createProgram(t, local, coach.ID, "Strength Builder", dayInput(1, "Main", "Squat", "Bench"))

	res, err := local.ExportWeek(ctx, coach.ID, p.ID, 1)
	if err != nil {
		t.Fatalf("ExportWeek() without storage error = %v", err)
	}
	if res.Export != nil || res.Workbook == nil || res.FileName != "strength-builder-week-1.xlsx" {
		t.Fatalf("ExportWeek() = %+v", res)
	}
	rows := workbookRows(t, res.Workbook.Bytes())
	if len(rows) != 3 || rows[1][5] != "Squat" {
		t.Errorf("workbook rows = %v", rows)
	}

	res, err = uploading.ExportWeek(ctx, coach.ID, p.ID, 1)
	if err != nil {
		t.Fatalf("ExportWeek() with storage error = %v", err)
	}
	if res.Export == nil || !strings.HasPrefix(res.Export.ObjectKey, "exports/"+p.ID+"/week-1/") {
		t.Fatalf("ExportWeek() = %+v", res)
	}
	if _, ok := files.objects[res.Export.ObjectKey]; !ok {
		t.Error("workbook was not uploaded")
	}
	if !strings.Contains(res.Export.DownloadURL, res.Export.ObjectKey) {
		t.Errorf("DownloadURL = %q", res.Export.DownloadURL)
	}

	if _, err := local.ExportWeek(ctx, coach.ID, p.ID, 0); !errors.Is(err, service.ErrInvalidWeek) {
		t.Errorf("ExportWeek(week 0) error = %v, want ErrInvalidWeek", err)
	}
}

func TestExportWeekRemovesUnsignedUpload(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	files := &memoryStorage{objects: map[string][]byte{}, presignErr: errors.New("signer unavailable")}
	serializer := service.NewProgramSerializer(store.Programs, store.Schedules)
	uploading := service.NewProgramService(store.Transactor, store.Programs, store.Schedules, store.Enrollments,
		store.Personalizations, serializer, files, logger)

	coach := createUser(t, store, "coach", domain.RoleCoach)
	p := createProgram(t, uploading, coach.ID, "Strength Builder", dayInput(1, "Main", "Squat"))

	if _, err := uploading.ExportWeek(ctx, coach.ID, p.ID, 1); err == nil {
		t.Fatal("ExportWeek() succeeded without a download URL")
	}
	if len(files.objects) != 0 {
		t.Errorf("unsigned export left in storage: %v", files.objects)
	}
}

func workbookRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("Week 1")
	if err != nil {
		t.Fatal(err)
	}
	return rows
}
