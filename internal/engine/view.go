package engine

import (
	"time"

	"studycycle/backend/internal/model"
)

type SubjectProgress struct {
	SubjectID   string `json:"subjectId"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Minutes     int    `json:"minutes"`
	GoalMinutes int    `json:"goalMinutes"`
}

// View is a read-only copy of the controller state.
type View struct {
	Status          Status            `json:"status"`
	Mode            string            `json:"mode"`
	TimeLeftSeconds int               `json:"timeLeftSeconds"`
	EndAt           *time.Time        `json:"endAt,omitempty"`
	Block           *model.Block      `json:"block,omitempty"`
	SubjectName     string            `json:"subjectName,omitempty"`
	CurrentIndex    int               `json:"currentIndex"`
	TotalBlocks     int               `json:"totalBlocks"`
	CycleComplete   bool              `json:"cycleComplete"`
	Progress        []SubjectProgress `json:"progress"`
	HistoryLength   int               `json:"historyLength"`
	SessionID       string            `json:"sessionId,omitempty"`
	Backend         string            `json:"backend,omitempty"`
	PendingRecords  int               `json:"pendingRecords"`
	FailedRecords   int               `json:"failedRecords"`
}

// ProgressOf returns the accrued minutes for subjectID.
func (v View) ProgressOf(subjectID string) int {
	for _, p := range v.Progress {
		if p.SubjectID == subjectID {
			return p.Minutes
		}
	}
	return 0
}

type NotificationKind string

const (
	NotifyState           NotificationKind = "state"
	NotifyAlarm           NotificationKind = "alarm"
	NotifyRecorderFailure NotificationKind = "recorder_failure"
)

type Notification struct {
	Kind   NotificationKind   `json:"kind"`
	View   View               `json:"view"`
	Block  *model.Block       `json:"block,omitempty"`
	Signal *model.AlarmSignal `json:"signal,omitempty"`
	Error  string             `json:"error,omitempty"`
}

const subscriberBuffer = 64
