// Package timer owns the countdown of the active block. A Backend accepts
// commands and reports progress as events; nothing else is shared with its caller.
package timer

import "time"

type CommandKind string

const (
	CmdStart CommandKind = "START"
	CmdPause CommandKind = "PAUSE"
	CmdStop  CommandKind = "STOP"
)

type Command struct {
	Kind    CommandKind
	Seconds int
	Mode    string
	// Deadline pins the countdown to an absolute end time. When zero the backend
	// uses now+Seconds at the moment it accepts the command.
	Deadline time.Time
	// Session tags every event produced for this countdown.
	Session uint64
}

func Start(seconds int, mode string, deadline time.Time, session uint64) Command {
	return Command{Kind: CmdStart, Seconds: seconds, Mode: mode, Deadline: deadline, Session: session}
}

func Pause(session uint64) Command {
	return Command{Kind: CmdPause, Session: session}
}

func Stop(session uint64) Command {
	return Command{Kind: CmdStop, Session: session}
}

type EventKind string

const (
	EventTick     EventKind = "TICK"
	EventComplete EventKind = "COMPLETE"
	EventPaused   EventKind = "PAUSED"
	EventStopped  EventKind = "STOPPED"
)

type Event struct {
	Kind     EventKind
	TimeLeft int
	Mode     string
	Session  uint64
}
