package timer

import (
	"sync"
	"time"

	"studycycle/backend/internal/clock"
)

// Foreground runs the countdown inline: commands are applied synchronously under
// a mutex and an interval callback refreshes the remaining time. It is the
// fallback when an Actor cannot be created and behaves identically to callers.
type Foreground struct {
	mu       sync.Mutex
	clock    clock.Clock
	interval time.Duration

	outbox *mailbox[Event]
	events chan Event
	quit   chan struct{}
	wg     sync.WaitGroup
	closed bool

	state countdown
	// gen invalidates interval callbacks of superseded countdowns.
	gen    uint64
	ticker clock.Ticker
	stop   chan struct{}
}

func NewForeground(opts Options) *Foreground {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	f := &Foreground{
		clock:    opts.Clock,
		interval: opts.TickInterval,
		outbox:   newMailbox[Event](),
		events:   make(chan Event, 16),
		quit:     make(chan struct{}),
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		forward(f.outbox, f.events, f.quit)
	}()
	return f
}

func (f *Foreground) Name() string { return "foreground" }

func (f *Foreground) Events() <-chan Event { return f.events }

func (f *Foreground) Send(cmd Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	switch cmd.Kind {
	case CmdStart:
		f.stopIntervalLocked()
		f.state.begin(f.clock.Now(), cmd)
		f.startIntervalLocked()
		f.tickLocked()
	case CmdPause:
		left := f.state.pausedLeft
		if f.state.running {
			left = f.state.remaining(f.clock.Now())
			f.state.running = false
			f.state.pausedLeft = left
			f.stopIntervalLocked()
		}
		f.outbox.push(Event{Kind: EventPaused, TimeLeft: left, Mode: f.state.mode, Session: f.state.sessionFor(cmd)})
	case CmdStop:
		f.stopIntervalLocked()
		f.state = countdown{}
		f.outbox.push(Event{Kind: EventStopped, Session: cmd.Session})
	}
}

func (f *Foreground) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.stopIntervalLocked()
	close(f.quit)
	f.mu.Unlock()

	f.wg.Wait()
	close(f.events)
}

func (f *Foreground) startIntervalLocked() {
	f.gen++
	gen := f.gen
	ticker := f.clock.NewTicker(f.interval)
	stop := make(chan struct{})
	f.ticker = ticker
	f.stop = stop
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			select {
			case <-f.quit:
				return
			case <-stop:
				return
			case <-ticker.C():
				f.mu.Lock()
				if f.gen != gen {
					f.mu.Unlock()
					return
				}
				f.tickLocked()
				done := !f.state.running
				f.mu.Unlock()
				if done {
					return
				}
			}
		}
	}()
}

func (f *Foreground) stopIntervalLocked() {
	f.gen++
	if f.ticker != nil {
		f.ticker.Stop()
		f.ticker = nil
	}
	if f.stop != nil {
		close(f.stop)
		f.stop = nil
	}
}

func (f *Foreground) tickLocked() {
	if !f.state.running {
		return
	}
	left := f.state.remaining(f.clock.Now())
	f.outbox.push(Event{Kind: EventTick, TimeLeft: left, Mode: f.state.mode, Session: f.state.session})
	if left > 0 {
		return
	}
	f.state.running = false
	f.stopIntervalLocked()
	f.outbox.push(Event{Kind: EventComplete, Mode: f.state.mode, Session: f.state.session})
}
