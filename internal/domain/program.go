// internal/domain/program.go
package domain

import (
	"time"
)

// Program is a named training plan owned by a coach, spanning one or more 7-day weeks.
type Program struct {
	ID          string    `bson:"_id" db:"id" json:"id"`
	CreatorID   string    `bson:"creatorId" db:"creator_id" json:"creatorId"` // Coach who owns the program
	Title       string    `bson:"title" db:"title" json:"title"`              // Unique per creator
	Description string    `bson:"description,omitempty" db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" db:"updated_at" json:"lastEditDate"`
}

// DayPlan is one absolute day within a program's timeline. DayNumber is 1-based and unbounded.
type DayPlan struct {
	ID        string `bson:"_id" db:"id" json:"id"`
	ProgramID string `bson:"programId" db:"program_id" json:"programId"`
	DayNumber int    `bson:"dayNumber" db:"day_number" json:"dayNumber"`
}

// WodBloc is a titled, typed group of exercises within a day (e.g. "Warmup").
type WodBloc struct {
	ID    string    `bson:"_id" db:"id" json:"id"`
	Title string    `bson:"title" db:"title" json:"title"`
	Type  BlockType `bson:"type" db:"type" json:"type"`
}

// DayBlock is one row of the day <-> block join. Order is scoped to the day.
type DayBlock struct {
	DayPlanID string
	Order     int
	Block     WodBloc
}
