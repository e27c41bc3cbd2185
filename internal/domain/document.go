package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ProgramDocument is the portable, storage-independent snapshot of a program
// (Program -> Week -> Day -> Block -> Exercise). It is the base plan fed into
// personalization and the payload stored inside ProgramPersonalization.Data.
type ProgramDocument struct {
	ID          string         `json:"id,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Weeks       []DocumentWeek `json:"weeks"`
}

type DocumentWeek struct {
	WeekNumber int           `json:"weekNumber"`
	Days       []DocumentDay `json:"days"`
}

// DocumentDay carries the absolute day number within the program.
type DocumentDay struct {
	DayNumber int             `json:"dayNumber"`
	Blocks    []DocumentBlock `json:"blocks"`
}

type DocumentBlock struct {
	ID        string             `json:"id,omitempty"`
	Title     string             `json:"title"`
	Type      BlockType          `json:"type"`
	Exercises []DocumentExercise `json:"exercises"`
}

type DocumentExercise struct {
	ID   string    `json:"id,omitempty"`
	Name string    `json:"name"`
	Sets int       `json:"sets"`
	Reps *int      `json:"reps,omitempty"`
	Time *Duration `json:"time,omitempty"`
	Type BlockType `json:"type,omitempty"`
}

// ErrNotProgramDocument reports text that does not have the Program document shape.
var ErrNotProgramDocument = errors.New("text is not a program document")

// ParseProgramDocument decodes generated text into a ProgramDocument. Markdown code
// fences around the JSON are tolerated; unknown fields, a missing title or an empty
// week list are rejected.
func ParseProgramDocument(text string) (ProgramDocument, error) {
	body := stripCodeFence(text)

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()

	var doc ProgramDocument
	if err := dec.Decode(&doc); err != nil {
		return ProgramDocument{}, fmt.Errorf("%w: %v", ErrNotProgramDocument, err)
	}
	if dec.More() {
		return ProgramDocument{}, fmt.Errorf("%w: trailing data after JSON object", ErrNotProgramDocument)
	}
	if doc.Title == "" || len(doc.Weeks) == 0 {
		return ProgramDocument{}, fmt.Errorf("%w: title and weeks are required", ErrNotProgramDocument)
	}
	return doc, nil
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag such as "json".
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Clone returns a deep copy of the document.
func (d ProgramDocument) Clone() ProgramDocument {
	out := d
	out.Weeks = make([]DocumentWeek, len(d.Weeks))
	for i, w := range d.Weeks {
		out.Weeks[i] = DocumentWeek{WeekNumber: w.WeekNumber, Days: make([]DocumentDay, len(w.Days))}
		for j, day := range w.Days {
			nd := DocumentDay{DayNumber: day.DayNumber, Blocks: make([]DocumentBlock, len(day.Blocks))}
			for k, b := range day.Blocks {
				nb := b
				nb.Exercises = make([]DocumentExercise, len(b.Exercises))
				for x, ex := range b.Exercises {
					ne := ex
					if ex.Reps != nil {
						r := *ex.Reps
						ne.Reps = &r
					}
					if ex.Time != nil {
						t := *ex.Time
						ne.Time = &t
					}
					nb.Exercises[x] = ne
				}
				nd.Blocks[k] = nb
			}
			out.Weeks[i].Days[j] = nd
		}
	}
	return out
}

// ValidationResult is the outcome of validating a Program document.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors,omitempty"`
}
