package timer

import "sync"

// mailbox is an unbounded FIFO. push never blocks; ready is signalled whenever
// items are waiting.
type mailbox[T any] struct {
	mu    sync.Mutex
	items []T
	ready chan struct{}
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{ready: make(chan struct{}, 1)}
}

func (m *mailbox[T]) push(v T) {
	m.mu.Lock()
	m.items = append(m.items, v)
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *mailbox[T]) drain() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}

// forward moves events from the mailbox to out, in order, until quit closes.
func forward(box *mailbox[Event], out chan<- Event, quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case <-box.ready:
			for _, ev := range box.drain() {
				select {
				case out <- ev:
				case <-quit:
					return
				}
			}
		}
	}
}
