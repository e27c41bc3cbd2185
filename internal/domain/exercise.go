// internal/domain/exercise.go
package domain

// BlockType is the closed set of tags shared by workout blocks and exercises.
type BlockType string

const (
	BlockTypeCardio      BlockType = "cardio"
	BlockTypeStrength    BlockType = "strength"
	BlockTypeFlexibility BlockType = "flexibility"
	BlockTypeSkill       BlockType = "skill"
	BlockTypeOther       BlockType = "other"
)

// Valid reports whether t belongs to the closed set.
func (t BlockType) Valid() bool {
	switch t {
	case BlockTypeCardio, BlockTypeStrength, BlockTypeFlexibility, BlockTypeSkill, BlockTypeOther:
		return true
	}
	return false
}

// Exercise is a single movement prescription inside a WodBloc.
type Exercise struct {
	ID   string    `bson:"_id" db:"id" json:"id"`
	Name string    `bson:"name" db:"name" json:"name"`
	Sets int       `bson:"sets" db:"sets" json:"sets"`                     // Always > 0
	Reps *int      `bson:"reps,omitempty" db:"reps" json:"reps,omitempty"` // > 0 when present
	Time *Duration `bson:"time,omitempty" db:"time_seconds" json:"time,omitempty"`
	Type BlockType `bson:"type,omitempty" db:"type" json:"type,omitempty"`
}

// BlockExercise is one row of the block <-> exercise join, with the exercise resolved.
type BlockExercise struct {
	BlockID  string
	Exercise Exercise
}
