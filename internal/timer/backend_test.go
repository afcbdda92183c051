package timer

import (
	"errors"
	"testing"
	"time"

	"studycycle/backend/internal/clock"
)

var epoch = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type backendCase struct {
	name string
	make func(t *testing.T, clk clock.Clock) Backend
}

func backends() []backendCase {
	return []backendCase{
		{"actor", func(t *testing.T, clk clock.Clock) Backend {
			a, err := NewActor(Options{Clock: clk, TickInterval: time.Second})
			if err != nil {
				t.Fatalf("new actor: %v", err)
			}
			return a
		}},
		{"foreground", func(t *testing.T, clk clock.Clock) Backend {
			return NewForeground(Options{Clock: clk, TickInterval: time.Second})
		}},
	}
}

func nextEvent(t *testing.T, b Backend) Event {
	t.Helper()
	select {
	case ev := <-b.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func expectEvent(t *testing.T, b Backend, kind EventKind, left int, session uint64) {
	t.Helper()
	ev := nextEvent(t, b)
	if ev.Kind != kind || ev.TimeLeft != left || ev.Session != session {
		t.Fatalf("got %+v, want kind=%s left=%d session=%d", ev, kind, left, session)
	}
}

func expectQuiet(t *testing.T, b Backend) {
	t.Helper()
	select {
	case ev := <-b.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCountdownCompletes(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			clk := clock.NewManual(epoch)
			b := bc.make(t, clk)
			defer b.Close()

			b.Send(Start(3, "focus", time.Time{}, 1))
			expectEvent(t, b, EventTick, 3, 1)
			clk.Advance(time.Second)
			expectEvent(t, b, EventTick, 2, 1)
			clk.Advance(time.Second)
			expectEvent(t, b, EventTick, 1, 1)
			clk.Advance(time.Second)
			expectEvent(t, b, EventTick, 0, 1)

			ev := nextEvent(t, b)
			if ev.Kind != EventComplete || ev.Mode != "focus" || ev.Session != 1 {
				t.Fatalf("expected COMPLETE for focus, got %+v", ev)
			}
			clk.Advance(5 * time.Second)
			expectQuiet(t, b)
		})
	}
}

func TestCompletionFollowsDeadlineNotTicks(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			clk := clock.NewManual(epoch)
			b := bc.make(t, clk)
			defer b.Close()

			b.Send(Start(1500, "focus", time.Time{}, 7))
			expectEvent(t, b, EventTick, 1500, 7)

			// One wakeup after a long suspension finishes the block.
			clk.Advance(30 * time.Minute)
			expectEvent(t, b, EventTick, 0, 7)
			expectEvent(t, b, EventComplete, 0, 7)
		})
	}
}

func TestStartWithPastDeadlineCompletesImmediately(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			clk := clock.NewManual(epoch)
			b := bc.make(t, clk)
			defer b.Close()

			b.Send(Start(60, "break", epoch.Add(-30*time.Second), 2))
			expectEvent(t, b, EventTick, 0, 2)
			expectEvent(t, b, EventComplete, 0, 2)
		})
	}
}

func TestPauseReportsRemaining(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			clk := clock.NewManual(epoch)
			b := bc.make(t, clk)
			defer b.Close()

			b.Send(Start(10, "focus", time.Time{}, 1))
			expectEvent(t, b, EventTick, 10, 1)
			clk.Advance(2500 * time.Millisecond)
			expectEvent(t, b, EventTick, 8, 1)

			b.Send(Pause(1))
			expectEvent(t, b, EventPaused, 8, 1)

			clk.Advance(5 * time.Second)
			expectQuiet(t, b)

			// Pausing again reports the frozen value.
			b.Send(Pause(1))
			expectEvent(t, b, EventPaused, 8, 1)
		})
	}
}

func TestNewCommandSupersedesSession(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			clk := clock.NewManual(epoch)
			b := bc.make(t, clk)
			defer b.Close()

			b.Send(Start(100, "focus", time.Time{}, 1))
			expectEvent(t, b, EventTick, 100, 1)
			b.Send(Start(5, "break", time.Time{}, 2))
			expectEvent(t, b, EventTick, 5, 2)

			b.Send(Stop(3))
			expectEvent(t, b, EventStopped, 0, 3)

			clk.Advance(10 * time.Second)
			expectQuiet(t, b)
		})
	}
}

func TestCloseClosesEvents(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			clk := clock.NewManual(epoch)
			b := bc.make(t, clk)
			b.Send(Start(10, "focus", time.Time{}, 1))
			b.Close()
			b.Close()

			deadline := time.After(2 * time.Second)
			for {
				select {
				case _, ok := <-b.Events():
					if !ok {
						b.Send(Start(1, "focus", time.Time{}, 2))
						return
					}
				case <-deadline:
					t.Fatal("events channel not closed")
				}
			}
		})
	}
}

func TestNewActorRejectsInvalidOptions(t *testing.T) {
	if _, err := NewActor(Options{TickInterval: time.Second}); !errors.Is(err, ErrActorInit) {
		t.Fatalf("expected ErrActorInit without clock, got %v", err)
	}
	if _, err := NewActor(Options{Clock: clock.System{}}); !errors.Is(err, ErrActorInit) {
		t.Fatalf("expected ErrActorInit without interval, got %v", err)
	}
	b, err := ForegroundFactory(Options{})()
	if err != nil {
		t.Fatalf("foreground factory: %v", err)
	}
	defer b.Close()
	if b.Name() != "foreground" {
		t.Fatalf("unexpected backend %s", b.Name())
	}
}
