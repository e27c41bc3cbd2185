package service

import (
	"context"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
)

// daySchedule is one DayPlan with its blocks resolved, blocks in stored order.
type daySchedule struct {
	Day    domain.DayPlan
	Blocks []blockSchedule
}

type blockSchedule struct {
	Order     int
	Block     domain.WodBloc
	Exercises []domain.Exercise
}

// loadSchedule resolves the blocks and exercises of the given days with two set queries.
// The result keeps the order of days.
func loadSchedule(ctx context.Context, repo repository.ScheduleRepository, days []domain.DayPlan) ([]daySchedule, error) {
	if len(days) == 0 {
		return []daySchedule{}, nil
	}

	dayIDs := make([]string, len(days))
	for i, d := range days {
		dayIDs[i] = d.ID
	}
	links, err := repo.ListDayBlocks(ctx, dayIDs)
	if err != nil {
		return nil, err
	}

	blockIDs := make([]string, 0, len(links))
	for _, l := range links {
		blockIDs = append(blockIDs, l.Block.ID)
	}
	exerciseLinks, err := repo.ListBlockExercises(ctx, blockIDs)
	if err != nil {
		return nil, err
	}

	exercisesByBlock := make(map[string][]domain.Exercise, len(blockIDs))
	for _, be := range exerciseLinks {
		exercisesByBlock[be.BlockID] = append(exercisesByBlock[be.BlockID], be.Exercise)
	}
	blocksByDay := make(map[string][]blockSchedule, len(days))
	for _, l := range links {
		exercises := exercisesByBlock[l.Block.ID]
		if exercises == nil {
			exercises = []domain.Exercise{}
		}
		blocksByDay[l.DayPlanID] = append(blocksByDay[l.DayPlanID], blockSchedule{
			Order:     l.Order,
			Block:     l.Block,
			Exercises: exercises,
		})
	}

	out := make([]daySchedule, len(days))
	for i, d := range days {
		blocks := blocksByDay[d.ID]
		if blocks == nil {
			blocks = []blockSchedule{}
		}
		out[i] = daySchedule{Day: d, Blocks: blocks}
	}
	return out, nil
}

func documentExercise(e domain.Exercise) domain.DocumentExercise {
	return domain.DocumentExercise{
		ID:   e.ID,
		Name: e.Name,
		Sets: e.Sets,
		Reps: e.Reps,
		Time: e.Time,
		Type: e.Type,
	}
}

func documentExercises(exercises []domain.Exercise) []domain.DocumentExercise {
	out := make([]domain.DocumentExercise, len(exercises))
	for i, e := range exercises {
		out[i] = documentExercise(e)
	}
	return out
}
