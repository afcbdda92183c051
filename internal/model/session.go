package model

import "time"

const (
	SessionRunning   = "running"
	SessionCompleted = "completed"
	SessionSkipped   = "skipped"
	SessionCancelled = "cancelled"
)

// SessionRecord is what the engine reports when a study block ends.
type SessionRecord struct {
	SessionID       string `json:"sessionId"`
	SubjectID       string `json:"subjectId"`
	DurationMinutes int    `json:"durationMinutes"`
	Skipped         bool   `json:"skipped"`
	// Cancelled is set when the block was abandoned before it finished.
	Cancelled bool `json:"cancelled,omitempty"`
}

type StudySession struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	SubjectID       string     `json:"subjectId"`
	DurationMinutes int        `json:"durationMinutes"`
	Status          string     `json:"status"`
	Skipped         bool       `json:"skipped"`
	StartedAt       time.Time  `json:"startedAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}
