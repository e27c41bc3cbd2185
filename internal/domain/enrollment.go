package domain

import (
	"time"
)

// Enrollment is a user's participation in a program, tracked by absolute day progress.
// (UserID, ProgramID) is unique: re-enrollment is delete + insert.
type Enrollment struct {
	UserID     string    `bson:"userId" db:"user_id" json:"userId"`
	ProgramID  string    `bson:"programId" db:"program_id" json:"programId"`
	CurrentDay int       `bson:"currentDay" db:"current_day" json:"currentDay"`
	JoinedAt   time.Time `bson:"joinedAt" db:"joined_at" json:"joinedAt"`
}

// CurrentWeek is the 1-based week containing CurrentDay.
func (e Enrollment) CurrentWeek() int {
	return WeekOf(e.CurrentDay)
}

// AssignedProgram is the light program reference shown on a coach's athlete list.
type AssignedProgram struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
