package domain

import (
	"time"
)

// Severity of an athlete injury.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// InjuryReport is the injury description submitted by an athlete.
type InjuryReport struct {
	Description       string   `json:"description"`
	AffectedBodyParts []string `json:"affectedBodyParts"`
	Severity          Severity `json:"severity"`
}

// AthleteInjury is a persisted injury. Several may be active at once.
type AthleteInjury struct {
	ID                string     `bson:"_id" db:"id" json:"id"`
	UserID            string     `bson:"userId" db:"user_id" json:"userId"`
	Description       string     `bson:"description" db:"description" json:"description"`
	AffectedBodyParts []string   `bson:"affectedBodyParts" db:"-" json:"affectedBodyParts"`
	Severity          Severity   `bson:"severity" db:"severity" json:"severity"`
	IsActive          bool       `bson:"isActive" db:"is_active" json:"isActive"`
	CreatedAt         time.Time  `bson:"createdAt" db:"created_at" json:"createdAt"`
	ResolvedAt        *time.Time `bson:"resolvedAt,omitempty" db:"resolved_at" json:"resolvedAt,omitempty"`
}

// AthleteProfile feeds default-program recommendation.
type AthleteProfile struct {
	Age                 int      `json:"age"`
	Gender              string   `json:"gender"` // male, female or other
	Goals               []string `json:"goals"`
	AvailabilityPerWeek int      `json:"availabilityPerWeek"`
}
