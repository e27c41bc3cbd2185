package domain

import (
	"time"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleCoach   Role = "coach"
	RoleAthlete Role = "athlete"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCoach || r == RoleAthlete
}

// User represents a user in the system (either a Coach or an Athlete).
type User struct {
	ID           string    `bson:"_id" db:"id" json:"id"`
	Name         string    `bson:"name" db:"name" json:"name"`
	Email        string    `bson:"email" db:"email" json:"email"`            // Should be unique
	PasswordHash string    `bson:"passwordHash" db:"password_hash" json:"-"` // Never expose this via JSON
	Role         Role      `bson:"role" db:"role" json:"role"`
	CreatedAt    time.Time `bson:"createdAt" db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" db:"updated_at" json:"updatedAt"`

	// --- Athlete-specific ---
	// The coach managing this athlete. Nil while the athlete is available for coaching.
	CoachID *string `bson:"coachId,omitempty" db:"coach_id" json:"coachId,omitempty"`
}

// Helper methods (Optional but can be useful)
func (u *User) IsCoach() bool {
	return u.Role == RoleCoach
}

func (u *User) IsAthlete() bool {
	return u.Role == RoleAthlete
}

// HasCoach reports whether the athlete is already managed by a coach.
func (u *User) HasCoach() bool {
	return u.CoachID != nil && *u.CoachID != ""
}
