// Package clock supplies wall-clock timestamps and tickers to the timer engine.
// Remaining time is always derived from absolute timestamps read here, never from
// counted ticks.
package clock

import "time"

type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// System is the process wall clock.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

func (System) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }

func (s *systemTicker) Stop() { s.t.Stop() }

// CeilSeconds converts a remaining duration to whole seconds, rounding up so a
// caller is never shown less time than truly remains. Non-positive input yields 0.
func CeilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
