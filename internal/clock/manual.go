package clock

import (
	"sync"
	"time"
)

// Manual is a Clock that only moves when Advance or Set is called. Tickers created
// from it fire once per crossed interval boundary, dropping ticks a slow reader
// has not consumed, like time.Ticker.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	tickers map[*manualTicker]struct{}
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC(), tickers: make(map[*manualTicker]struct{})}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTicker{
		owner:    m,
		interval: d,
		next:     m.now.Add(d),
		ch:       make(chan time.Time, 1),
	}
	m.tickers[t] = struct{}{}
	return t
}

// Advance moves the clock forward and fires every ticker whose next boundary was
// crossed.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	m.fireLocked()
}

// Set jumps the clock to t, which may be in the past.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
	m.fireLocked()
}

// Tickers reports how many tickers are live.
func (m *Manual) Tickers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}

func (m *Manual) fireLocked() {
	for t := range m.tickers {
		if m.now.Before(t.next) {
			continue
		}
		select {
		case t.ch <- m.now:
		default:
		}
		for !m.now.Before(t.next) {
			t.next = t.next.Add(t.interval)
		}
	}
}

type manualTicker struct {
	owner    *Manual
	interval time.Duration
	next     time.Time
	ch       chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	delete(t.owner.tickers, t)
}
