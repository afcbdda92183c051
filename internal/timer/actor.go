package timer

import (
	"sync"
	"time"

	"studycycle/backend/internal/clock"
)

// Actor owns the countdown on its own goroutine. Commands and events travel
// through unbounded ordered mailboxes.
type Actor struct {
	clock    clock.Clock
	interval time.Duration

	inbox  *mailbox[Command]
	outbox *mailbox[Event]
	events chan Event

	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	// owned by run
	state  countdown
	ticker clock.Ticker
}

func NewActor(opts Options) (*Actor, error) {
	if err := validate(opts); err != nil {
		return nil, err
	}
	a := &Actor{
		clock:    opts.Clock,
		interval: opts.TickInterval,
		inbox:    newMailbox[Command](),
		outbox:   newMailbox[Event](),
		events:   make(chan Event, 16),
		quit:     make(chan struct{}),
	}
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.run()
	}()
	go func() {
		defer a.wg.Done()
		forward(a.outbox, a.events, a.quit)
	}()
	return a, nil
}

func (a *Actor) Name() string { return "actor" }

func (a *Actor) Send(cmd Command) {
	select {
	case <-a.quit:
		return
	default:
	}
	a.inbox.push(cmd)
}

func (a *Actor) Events() <-chan Event { return a.events }

// Close stops the goroutines and closes the events channel. Pending events are
// dropped.
func (a *Actor) Close() {
	a.closeOnce.Do(func() {
		close(a.quit)
		a.wg.Wait()
		close(a.events)
	})
}

func (a *Actor) run() {
	defer a.stopTicker()
	for {
		var tickC <-chan time.Time
		if a.ticker != nil {
			tickC = a.ticker.C()
		}
		select {
		case <-a.quit:
			return
		case <-a.inbox.ready:
			for _, cmd := range a.inbox.drain() {
				a.handle(cmd)
			}
		case <-tickC:
			a.tick()
		}
	}
}

func (a *Actor) handle(cmd Command) {
	switch cmd.Kind {
	case CmdStart:
		a.stopTicker()
		a.state.begin(a.clock.Now(), cmd)
		a.ticker = a.clock.NewTicker(a.interval)
		a.tick()
	case CmdPause:
		left := a.state.pausedLeft
		if a.state.running {
			left = a.state.remaining(a.clock.Now())
			a.state.running = false
			a.state.pausedLeft = left
			a.stopTicker()
		}
		a.emit(Event{Kind: EventPaused, TimeLeft: left, Mode: a.state.mode, Session: a.state.sessionFor(cmd)})
	case CmdStop:
		a.stopTicker()
		a.state = countdown{}
		a.emit(Event{Kind: EventStopped, Session: cmd.Session})
	}
}

func (a *Actor) tick() {
	if !a.state.running {
		return
	}
	left := a.state.remaining(a.clock.Now())
	a.emit(Event{Kind: EventTick, TimeLeft: left, Mode: a.state.mode, Session: a.state.session})
	if left > 0 {
		return
	}
	a.state.running = false
	a.stopTicker()
	a.emit(Event{Kind: EventComplete, Mode: a.state.mode, Session: a.state.session})
}

func (a *Actor) emit(ev Event) {
	a.outbox.push(ev)
}

func (a *Actor) stopTicker() {
	if a.ticker != nil {
		a.ticker.Stop()
		a.ticker = nil
	}
}
