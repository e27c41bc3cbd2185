package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/internal/repository/backend"
	"fitcoach/backend/internal/service"
)

const (
	seedCoachEmail = "seed.coach@fitcoach.local"
	seedTitle      = "Strength Builder"
)

var seedEmail string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the Strength Builder program and enroll a user",
	Long: `Create the two-week Strength Builder program, owned by a seed coach,
and enroll the user with the given email. Running it again reuses the program
and leaves an existing enrollment alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := seedStrengthBuilder(cmd.Context(), store, logger, seedEmail)
		if err != nil {
			return err
		}
		if res.ProgramCreated {
			color.Green("✓ Created program %s", seedTitle)
		} else {
			color.Yellow("• Program %s already exists", seedTitle)
		}
		if res.Enrolled {
			color.Green("✓ Enrolled %s", seedEmail)
		} else {
			color.Yellow("• %s was already enrolled", seedEmail)
		}
		fmt.Printf("  %s\n", color.New(color.Faint).Sprint(res.ProgramID))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "email of the user to enroll")
	_ = seedCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(seedCmd)
}

type seedResult struct {
	ProgramID      string
	ProgramCreated bool
	Enrolled       bool
}

func seedStrengthBuilder(ctx context.Context, store *backend.Store, logger *slog.Logger, email string) (*seedResult, error) {
	// 1. The target user has to exist already.
	user, err := store.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user with email %s not found, sign up first", email)
		}
		return nil, err
	}

	// 2. Seed coach, registered with a throwaway password.
	coach, err := store.Users.GetByEmail(ctx, seedCoachEmail)
	if errors.Is(err, repository.ErrNotFound) {
		auth := service.NewAuthService(store.Users, uuid.NewString(), time.Hour, logger)
		coach, err = auth.Register(ctx, "Seed Coach", seedCoachEmail, uuid.NewString(), domain.RoleCoach)
	}
	if err != nil {
		return nil, fmt.Errorf("seed coach: %w", err)
	}

	// 3. Program, reused when present.
	res := &seedResult{}
	existing, err := store.Programs.GetByCreatorAndTitle(ctx, coach.ID, seedTitle)
	switch {
	case err == nil:
		res.ProgramID = existing.ID
	case errors.Is(err, repository.ErrNotFound):
		serializer := service.NewProgramSerializer(store.Programs, store.Schedules)
		programs := service.NewProgramService(store.Transactor, store.Programs, store.Schedules, store.Enrollments,
			store.Personalizations, serializer, nil, logger)
		created, err := programs.Create(ctx, coach.ID, strengthBuilder())
		if err != nil {
			return nil, fmt.Errorf("create program: %w", err)
		}
		res.ProgramID = created.ID
		res.ProgramCreated = true
	default:
		return nil, err
	}

	// 4. Enrollment on day 1.
	err = store.Enrollments.Create(ctx, &domain.Enrollment{
		UserID:     user.ID,
		ProgramID:  res.ProgramID,
		CurrentDay: 1,
		JoinedAt:   time.Now().UTC(),
	})
	switch {
	case err == nil:
		res.Enrolled = true
	case errors.Is(err, repository.ErrConflict):
	default:
		return nil, fmt.Errorf("enroll user: %w", err)
	}
	return res, nil
}

type seedExercise struct {
	name string
	sets int
	reps int
	time time.Duration
}

type seedBlock struct {
	title     string
	kind      domain.BlockType
	exercises []seedExercise
}

// strengthBuilder returns two weeks; the second repeats the first with one extra set on strength work.
func strengthBuilder() service.ProgramInput {
	week := [][]seedBlock{
		{
			{"Warmup Run", domain.BlockTypeCardio, []seedExercise{{name: "5km Run", sets: 1, time: 25 * time.Minute}}},
			{"Gymnastics", domain.BlockTypeSkill, []seedExercise{{name: "Handstand Practice", sets: 5, time: 30 * time.Second}}},
		},
		{
			{"Heavy Lifting", domain.BlockTypeStrength, []seedExercise{{name: "Deadlift", sets: 5, reps: 5}, {name: "Overhead Press", sets: 4, reps: 8}}},
		},
		{
			{"Leg Day", domain.BlockTypeStrength, []seedExercise{{name: "Back Squat", sets: 5, reps: 5}}},
			{"Metcon", domain.BlockTypeCardio, []seedExercise{{name: "Rowing Intervals (500m)", sets: 10}}},
		},
		{
			{"Advanced Skills", domain.BlockTypeSkill, []seedExercise{{name: "Muscle-up Progression", sets: 5, reps: 3}}},
		},
		{
			{"Upper Body", domain.BlockTypeStrength, []seedExercise{{name: "Bench Press", sets: 5, reps: 5}, {name: "Bent Over Row", sets: 4, reps: 10}}},
			{"Recovery", domain.BlockTypeFlexibility, []seedExercise{{name: "Yoga Flow", sets: 1, time: 20 * time.Minute}}},
		},
		{
			{"HIIT", domain.BlockTypeCardio, []seedExercise{{name: "Interval Run (400m)", sets: 8}}},
			{"Bodyweight Strength", domain.BlockTypeStrength, []seedExercise{{name: "Weighted Pull-ups", sets: 5, reps: 5}, {name: "Dips", sets: 4, reps: 12}}},
		},
		{
			{"Mobility", domain.BlockTypeFlexibility, []seedExercise{{name: "Full Body Stretch", sets: 1, time: 30 * time.Minute}}},
		},
	}

	in := service.ProgramInput{
		Title:       seedTitle,
		Description: "A comprehensive strength and conditioning program.",
	}
	for w := range 2 {
		for d, blocks := range week {
			day := service.DayInput{DayNumber: w*7 + d + 1}
			for _, b := range blocks {
				block := service.BlockInput{Title: b.title, Type: b.kind}
				for _, e := range b.exercises {
					sets := e.sets
					if w == 1 && b.kind == domain.BlockTypeStrength {
						sets++
					}
					ex := service.ExerciseInput{Name: e.name, Sets: &sets, Type: b.kind}
					if e.reps > 0 {
						reps := e.reps
						ex.Reps = &reps
					}
					if e.time > 0 {
						t := domain.Duration(e.time)
						ex.Time = &t
					}
					block.Exercises = append(block.Exercises, ex)
				}
				day.Blocks = append(day.Blocks, block)
			}
			in.Days = append(in.Days, day)
		}
	}
	return in
}
