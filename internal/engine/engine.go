// Package engine drives a study cycle: it owns the cycle state, talks to the
// timing backend and reports finished study blocks to a Recorder.
package engine

import (
	"context"
	"time"

	"studycycle/backend/internal/model"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

const (
	DefaultPersistEvery    = 5
	DefaultRecorderRetries = 2
	defaultRetryBackoff    = 500 * time.Millisecond
	recordTimeout          = 10 * time.Second
)

// SnapshotStore persists the countdown and cycle position of one user. Loads
// return store.ErrNotFound when nothing was saved.
type SnapshotStore interface {
	LoadTimer(ctx context.Context, userID string) (*model.TimerSnapshot, error)
	SaveTimer(ctx context.Context, userID string, snap *model.TimerSnapshot) error
	LoadCycle(ctx context.Context, userID string) (*model.CycleRecord, error)
	SaveCycle(ctx context.Context, userID string, rec *model.CycleRecord) error
}

// Recorder receives study session boundaries. Calls run on a worker goroutine
// and may fail without affecting local state.
type Recorder interface {
	RecordStart(ctx context.Context, userID, sessionID, subjectID string) error
	RecordEnd(ctx context.Context, userID string, rec model.SessionRecord) error
}

// Alarm plays the completion signal. Trigger must return promptly.
type Alarm interface {
	Trigger(ctx context.Context, signal model.AlarmSignal, block model.Block)
}

type Options struct {
	UserID string
	// AutoAdvance starts the next block as soon as the countdown of the
	// current one completes. When false the controller waits in
	// StatusCompleted for Advance.
	AutoAdvance bool
	// PersistEvery throttles snapshot writes to one per N ticks.
	PersistEvery    int
	TickInterval    time.Duration
	RecorderRetries int
	RetryBackoff    time.Duration
}

func (o Options) withDefaults() Options {
	if o.PersistEvery <= 0 {
		o.PersistEvery = DefaultPersistEvery
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.RecorderRetries < 0 {
		o.RecorderRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	return o
}

type noopRecorder struct{}

func (noopRecorder) RecordStart(context.Context, string, string, string) error { return nil }

func (noopRecorder) RecordEnd(context.Context, string, model.SessionRecord) error { return nil }

type noopAlarm struct{}

func (noopAlarm) Trigger(context.Context, model.AlarmSignal, model.Block) {}
