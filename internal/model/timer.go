package model

import "time"

const (
	ModeIdle   = "idle"
	ModeFocus  = "focus"
	ModeBreak  = "break"
	ModePaused = "paused"
)

// TimerSnapshot is the last known countdown state persisted per user. A missing
// record means ModeIdle.
type TimerSnapshot struct {
	EndAt           *time.Time `json:"end_at"`
	Mode            string     `json:"mode"`
	TimeLeftSeconds int        `json:"time_left_seconds"`
	Subject         string     `json:"subject"`
	IsRunning       bool       `json:"is_running"`
	// Completed marks a block that ran out and waits for the next one to be
	// started; SequenceIndex then already points at that next block.
	Completed     bool      `json:"completed,omitempty"`
	BlockType     BlockType `json:"block_type,omitempty"`
	SequenceIndex int       `json:"sequence_index"`
	SessionID     string    `json:"session_id,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}
