package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
)

type sqlScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a repository.ScheduleRepository on db.
func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &sqlScheduleRepository{db: db}
}

func (r *sqlScheduleRepository) CreateDayPlan(ctx context.Context, day *domain.DayPlan) (string, error) {
	day.ID = domain.NewID()

	q := conn(ctx, r.db)
	query := q.Rebind(`INSERT INTO day_plans (id, program_id, day_number) VALUES (?, ?, ?)`)
	if _, err := q.ExecContext(ctx, query, day.ID, day.ProgramID, day.DayNumber); err != nil {
		return "", fmt.Errorf("insert day plan: %w", err)
	}
	return day.ID, nil
}

func (r *sqlScheduleRepository) CreateBlock(ctx context.Context, dayPlanID string, order int, block *domain.WodBloc) (string, error) {
	block.ID = domain.NewID()

	q := conn(ctx, r.db)
	if _, err := q.ExecContext(ctx, q.Rebind(`INSERT INTO wod_blocs (id, title, type) VALUES (?, ?, ?)`),
		block.ID, block.Title, block.Type); err != nil {
		return "", fmt.Errorf("insert block: %w", err)
	}
	if _, err := q.ExecContext(ctx, q.Rebind(`INSERT INTO day_blocks (day_plan_id, block_id, sort_order) VALUES (?, ?, ?)`),
		dayPlanID, block.ID, order); err != nil {
		return "", fmt.Errorf("link block to day: %w", err)
	}
	return block.ID, nil
}

func (r *sqlScheduleRepository) CreateExercise(ctx context.Context, blockID string, exercise *domain.Exercise) (string, error) {
	exercise.ID = domain.NewID()

	q := conn(ctx, r.db)
	if _, err := q.ExecContext(ctx,
		q.Rebind(`INSERT INTO exercises (id, name, sets, reps, time_seconds, type) VALUES (?, ?, ?, ?, ?, ?)`),
		exercise.ID, exercise.Name, exercise.Sets, exercise.Reps, exercise.Time, exercise.Type); err != nil {
		return "", fmt.Errorf("insert exercise: %w", err)
	}
	if _, err := q.ExecContext(ctx, q.Rebind(`INSERT INTO block_exercises (block_id, exercise_id) VALUES (?, ?)`),
		blockID, exercise.ID); err != nil {
		return "", fmt.Errorf("link exercise to block: %w", err)
	}
	return exercise.ID, nil
}

func (r *sqlScheduleRepository) ListDayPlans(ctx context.Context, programID string, fromDay, toDay int) ([]domain.DayPlan, error) {
	q := conn(ctx, r.db)
	days := []domain.DayPlan{}
	query := q.Rebind(`SELECT id, program_id, day_number FROM day_plans
		WHERE program_id = ? AND day_number >= ? AND day_number <= ?
		ORDER BY day_number, id`)
	if err := q.SelectContext(ctx, &days, query, programID, fromDay, toDay); err != nil {
		return nil, fmt.Errorf("list day plans: %w", err)
	}
	return days, nil
}

func (r *sqlScheduleRepository) ListAllDayPlans(ctx context.Context, programID string) ([]domain.DayPlan, error) {
	q := conn(ctx, r.db)
	days := []domain.DayPlan{}
	query := q.Rebind(`SELECT id, program_id, day_number FROM day_plans WHERE program_id = ? ORDER BY day_number, id`)
	if err := q.SelectContext(ctx, &days, query, programID); err != nil {
		return nil, fmt.Errorf("list day plans: %w", err)
	}
	return days, nil
}

type dayBlockRow struct {
	DayPlanID string           `db:"day_plan_id"`
	Order     int              `db:"sort_order"`
	BlockID   string           `db:"id"`
	Title     string           `db:"title"`
	Type      domain.BlockType `db:"type"`
}

func (r *sqlScheduleRepository) ListDayBlocks(ctx context.Context, dayPlanIDs []string) ([]domain.DayBlock, error) {
	if len(dayPlanIDs) == 0 {
		return []domain.DayBlock{}, nil
	}

	q := conn(ctx, r.db)
	query, args, err := sqlx.In(`SELECT db.day_plan_id, db.sort_order, b.id, b.title, b.type
		FROM day_blocks db JOIN wod_blocs b ON b.id = db.block_id
		WHERE db.day_plan_id IN (?)
		ORDER BY db.sort_order, b.id`, dayPlanIDs)
	if err != nil {
		return nil, err
	}

	var rows []dayBlockRow
	if err := q.SelectContext(ctx, &rows, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list day blocks: %w", err)
	}

	out := make([]domain.DayBlock, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.DayBlock{
			DayPlanID: row.DayPlanID,
			Order:     row.Order,
			Block:     domain.WodBloc{ID: row.BlockID, Title: row.Title, Type: row.Type},
		})
	}
	return out, nil
}

type blockExerciseRow struct {
	BlockID string `db:"block_id"`
	domain.Exercise
}

func (r *sqlScheduleRepository) ListBlockExercises(ctx context.Context, blockIDs []string) ([]domain.BlockExercise, error) {
	if len(blockIDs) == 0 {
		return []domain.BlockExercise{}, nil
	}

	q := conn(ctx, r.db)
	query, args, err := sqlx.In(`SELECT be.block_id, e.id, e.name, e.sets, e.reps, e.time_seconds, e.type
		FROM block_exercises be JOIN exercises e ON e.id = be.exercise_id
		WHERE be.block_id IN (?)
		ORDER BY e.id`, blockIDs)
	if err != nil {
		return nil, err
	}

	var rows []blockExerciseRow
	if err := q.SelectContext(ctx, &rows, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list block exercises: %w", err)
	}

	out := make([]domain.BlockExercise, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.BlockExercise{BlockID: row.BlockID, Exercise: row.Exercise})
	}
	return out, nil
}

func (r *sqlScheduleRepository) DeleteByProgram(ctx context.Context, programID string) error {
	q := conn(ctx, r.db)
	// Exercises first: they are only reachable through the block and day joins.
	statements := []string{
		`DELETE FROM exercises WHERE id IN (
			SELECT be.exercise_id FROM block_exercises be
			JOIN day_blocks db ON db.block_id = be.block_id
			JOIN day_plans dp ON dp.id = db.day_plan_id
			WHERE dp.program_id = ?)`,
		`DELETE FROM wod_blocs WHERE id IN (
			SELECT db.block_id FROM day_blocks db
			JOIN day_plans dp ON dp.id = db.day_plan_id
			WHERE dp.program_id = ?)`,
		`DELETE FROM day_plans WHERE program_id = ?`,
	}
	for _, stmt := range statements {
		if _, err := q.ExecContext(ctx, q.Rebind(stmt), programID); err != nil {
			return fmt.Errorf("delete program schedule: %w", err)
		}
	}
	return nil
}
