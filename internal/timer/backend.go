package timer

import (
	"errors"
	"fmt"
	"time"

	"studycycle/backend/internal/clock"
)

// ErrActorInit reports that the background countdown could not be created.
var ErrActorInit = errors.New("timer: actor initialization failed")

const DefaultTickInterval = time.Second

// Backend runs one countdown at a time. Send never blocks; a newly accepted
// command supersedes whatever the backend was doing.
type Backend interface {
	Send(cmd Command)
	Events() <-chan Event
	Close()
	Name() string
}

type Factory func() (Backend, error)

type Options struct {
	Clock        clock.Clock
	TickInterval time.Duration
}

func ActorFactory(opts Options) Factory {
	return func() (Backend, error) {
		return NewActor(opts)
	}
}

func ForegroundFactory(opts Options) Factory {
	return func() (Backend, error) {
		return NewForeground(opts), nil
	}
}

// countdown is the state both backends keep for the active session.
type countdown struct {
	deadline   time.Time
	mode       string
	session    uint64
	running    bool
	pausedLeft int
}

func (c *countdown) begin(now time.Time, cmd Command) {
	c.deadline = cmd.Deadline
	if c.deadline.IsZero() {
		c.deadline = now.Add(time.Duration(cmd.Seconds) * time.Second)
	}
	c.mode = cmd.Mode
	c.session = cmd.Session
	c.running = true
	c.pausedLeft = 0
}

func (c *countdown) remaining(now time.Time) int {
	return clock.CeilSeconds(c.deadline.Sub(now))
}

func (c *countdown) sessionFor(cmd Command) uint64 {
	if cmd.Session != 0 {
		return cmd.Session
	}
	return c.session
}

func validate(opts Options) error {
	if opts.Clock == nil {
		return fmt.Errorf("%w: clock is required", ErrActorInit)
	}
	if opts.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive, got %s", ErrActorInit, opts.TickInterval)
	}
	return nil
}
