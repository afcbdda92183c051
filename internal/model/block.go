package model

import "time"

type BlockType string

const (
	BlockStudy      BlockType = "study"
	BlockShortBreak BlockType = "short_break"
	BlockLongBreak  BlockType = "long_break"
)

func (t BlockType) IsBreak() bool {
	return t == BlockShortBreak || t == BlockLongBreak
}

// Mode is the persisted timer mode for a block of this type.
func (t BlockType) Mode() string {
	if t.IsBreak() {
		return ModeBreak
	}
	return ModeFocus
}

type Block struct {
	Type            BlockType `json:"type"`
	SubjectID       string    `json:"subjectId,omitempty"`
	DurationSeconds int       `json:"durationSeconds"`
	SequenceIndex   int       `json:"sequenceIndex"`
}

func (b Block) DurationMinutes() int {
	return b.DurationSeconds / 60
}

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
)

type HistoryEntry struct {
	Block   Block   `json:"block"`
	Outcome Outcome `json:"outcome"`
	// AppliedMinutes is the exact delta added to the subject's progress.
	AppliedMinutes int       `json:"appliedMinutes"`
	At             time.Time `json:"at"`
}

type CycleState struct {
	Plan         []Block        `json:"plan"`
	CurrentIndex int            `json:"currentIndex"`
	Progress     map[string]int `json:"progress"`
	History      []HistoryEntry `json:"history"`
}

// Current returns the active block, or false once the cycle is exhausted.
func (c *CycleState) Current() (Block, bool) {
	if c.CurrentIndex < 0 || c.CurrentIndex >= len(c.Plan) {
		return Block{}, false
	}
	return c.Plan[c.CurrentIndex], true
}

func (c *CycleState) Complete() bool {
	return c.CurrentIndex >= len(c.Plan)
}

// CycleRecord is the persisted form of a CycleState, tied to the plan it indexes.
type CycleRecord struct {
	PlanFingerprint string         `json:"planFingerprint"`
	CurrentIndex    int            `json:"currentIndex"`
	Progress        map[string]int `json:"progress"`
	History         []HistoryEntry `json:"history"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}
