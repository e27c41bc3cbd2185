package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// PersonalizationType tags how a personalization was produced.
type PersonalizationType string

const (
	PersonalizationInjuryAdaptation PersonalizationType = "injury_adaptation"
	PersonalizationReschedule       PersonalizationType = "reschedule"
	PersonalizationAIGenerated      PersonalizationType = "ai_generated"
)

// CurrentDocumentSchemaVersion is written alongside every stored document payload.
const CurrentDocumentSchemaVersion = 1

// ProgramPersonalization is a stored override of one program week for one user.
// Data is kept opaque at the storage boundary; use Document to decode it.
// The most recently created row for (user, week) wins.
type ProgramPersonalization struct {
	ID                string              `bson:"_id" db:"id" json:"id"`
	UserID            string              `bson:"userId" db:"user_id" json:"userId"`
	OriginalProgramID string              `bson:"originalProgramId" db:"original_program_id" json:"originalProgramId"`
	WeekNumber        int                 `bson:"weekNumber" db:"week_number" json:"weekNumber"`
	DayNumber         *int                `bson:"dayNumber,omitempty" db:"day_number" json:"dayNumber,omitempty"` // nil: whole-week override
	Type              PersonalizationType `bson:"personalizationType" db:"personalization_type" json:"personalizationType"`
	SchemaVersion     int                 `bson:"schemaVersion" db:"schema_version" json:"schemaVersion"`
	Data              json.RawMessage     `bson:"data" db:"data" json:"data"`
	CreatedAt         time.Time           `bson:"createdAt" db:"created_at" json:"createdAt"`
}

// NewPersonalization encodes doc into a personalization payload.
func NewPersonalization(userID, programID string, week int, kind PersonalizationType, doc ProgramDocument) (*ProgramPersonalization, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode program document: %w", err)
	}
	return &ProgramPersonalization{
		UserID:            userID,
		OriginalProgramID: programID,
		WeekNumber:        week,
		Type:              kind,
		SchemaVersion:     CurrentDocumentSchemaVersion,
		Data:              data,
	}, nil
}

// Document decodes the stored payload into the typed Program document.
func (p *ProgramPersonalization) Document() (ProgramDocument, error) {
	if p.SchemaVersion > CurrentDocumentSchemaVersion {
		return ProgramDocument{}, fmt.Errorf("unsupported document schema version %d", p.SchemaVersion)
	}
	var doc ProgramDocument
	if err := json.Unmarshal(p.Data, &doc); err != nil {
		return ProgramDocument{}, fmt.Errorf("decode personalization %s: %w", p.ID, err)
	}
	return doc, nil
}
