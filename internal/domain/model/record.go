package model

import (
	"time"
)

// Generation identifies one of the coexisting storage schema layouts.
type Generation int

const (
	// GenerationLegacy is the original single-table layout keyed by label.
	GenerationLegacy Generation = 1
	// GenerationPractice is the normalized practice_* layout.
	GenerationPractice Generation = 2
	// GenerationExercise is the current exercise_* layout.
	GenerationExercise Generation = 3
)

// Generations lists every known generation, newest first.
var Generations = []Generation{GenerationExercise, GenerationPractice, GenerationLegacy}

// Valid reports whether g is a known generation.
func (g Generation) Valid() bool {
	return g >= GenerationLegacy && g <= GenerationExercise
}

// Submission is one finished practice attempt as handed over by a caller.
type Submission struct {
	Type            string    `json:"type"`
	Theme           string    `json:"theme,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at,omitempty"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
	Inputs          Fields    `json:"inputs"`
	Scores          []Score   `json:"scores,omitempty"`
	Feedback        string    `json:"feedback,omitempty"`
	AIModel         string    `json:"ai_model,omitempty"`
}

// PracticeRecord is the canonical form of one attempt.
type PracticeRecord struct {
	SessionID       string     `json:"session_id"`
	UserID          string     `json:"user_id"`
	PracticeTypeKey string     `json:"practice_type"`
	Category        string     `json:"category"`
	Subcategory     string     `json:"subcategory"`
	SourceLabel     string     `json:"source_label"`
	Theme           string     `json:"theme"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         time.Time  `json:"ended_at"`
	DurationSeconds int        `json:"duration_seconds"`
	Inputs          Fields     `json:"inputs"`
	Scores          []Score    `json:"scores"`
	Feedback        string     `json:"feedback"`
	AIModel         string     `json:"ai_model"`
	Status          string     `json:"status"`
	Generation      Generation `json:"generation,omitempty"`
	Buffered        bool       `json:"buffered"`
}

// StatusCompleted is the only status written by this system.
const StatusCompleted = "completed"

// LegacyScore is a score in the pre-normalization display shape.
type LegacyScore struct {
	Score float64 `json:"score"`
	Max   float64 `json:"max"`
}

// LegacyRecord is the denormalized, label-keyed shape returned to older
// callers and used by exports.
type LegacyRecord struct {
	SessionID       string                 `json:"session_id"`
	Type            string                 `json:"type"`
	PracticeTypeKey string                 `json:"practice_type_key"`
	Theme           string                 `json:"theme"`
	Date            time.Time              `json:"date"`
	DurationSeconds int                    `json:"duration"`
	DurationDisplay string                 `json:"duration_display"`
	Inputs          Fields                 `json:"inputs"`
	Scores          map[string]LegacyScore `json:"scores"`
	Feedback        string                 `json:"feedback"`
	AIModel         string                 `json:"ai_model"`
	Buffered        bool                   `json:"buffered"`
}
