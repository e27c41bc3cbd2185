package domain

// WeeklyPlan is the presentation shape returned by GET /training/week.
type WeeklyPlan struct {
	WeekNumber int       `json:"weekNumber"`
	Days       []PlanDay `json:"days"`
}

// PlanDay is one weekday (DayNumber normalized to 1..7). ID borrows the first
// contributing DayPlan's id on the live-schedule path and is empty for personalized weeks.
type PlanDay struct {
	ID        string      `json:"id,omitempty"`
	DayNumber int         `json:"dayNumber"`
	Blocks    []PlanBlock `json:"blocks"`
}

// PlanBlock carries a display order. It is a hint only: merged programs may collide.
type PlanBlock struct {
	ID        string             `json:"id,omitempty"`
	Title     string             `json:"title"`
	Type      BlockType          `json:"type"`
	Order     int                `json:"order"`
	Exercises []DocumentExercise `json:"exercises"`
}

// Present reshapes a stored document for display. Only the first week is rendered;
// day numbers are normalized to weekdays and block order is recomputed as the dense
// 1-based position in the block list.
func (d ProgramDocument) Present() WeeklyPlan {
	if len(d.Weeks) == 0 {
		return WeeklyPlan{WeekNumber: 1, Days: []PlanDay{}}
	}
	week := d.Weeks[0]

	days := make([]PlanDay, 0, len(week.Days))
	for _, day := range week.Days {
		blocks := make([]PlanBlock, 0, len(day.Blocks))
		for i, b := range day.Blocks {
			exercises := b.Exercises
			if exercises == nil {
				exercises = []DocumentExercise{}
			}
			blocks = append(blocks, PlanBlock{
				ID:        b.ID,
				Title:     b.Title,
				Type:      b.Type,
				Order:     i + 1,
				Exercises: exercises,
			})
		}
		days = append(days, PlanDay{
			DayNumber: NormalizeWeekday(day.DayNumber),
			Blocks:    blocks,
		})
	}
	return WeeklyPlan{WeekNumber: week.WeekNumber, Days: days}
}
