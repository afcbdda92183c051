package engine

import (
	"context"
	"sync"
	"time"

	"studycycle/backend/internal/logger"
	"studycycle/backend/internal/model"
)

type recordJob struct {
	start     bool
	userID    string
	sessionID string
	subjectID string
	end       model.SessionRecord
}

func (j recordJob) kind() string {
	if j.start {
		return "start"
	}
	return "end"
}

// recordQueue delivers recorder calls one at a time in submission order.
// Calls that still fail after the retries are parked until requeued.
type recordQueue struct {
	recorder Recorder
	retries  int
	backoff  time.Duration
	log      *logger.Logger
	onFail   func(job recordJob, err error)

	mu      sync.Mutex
	pending []recordJob
	failed  []recordJob
	busy    bool
	ready   chan struct{}
	idle    *sync.Cond
	closing bool
	done    chan struct{}
}

func newRecordQueue(recorder Recorder, retries int, backoff time.Duration, log *logger.Logger, onFail func(recordJob, error)) *recordQueue {
	q := &recordQueue{
		recorder: recorder,
		retries:  retries,
		backoff:  backoff,
		log:      log,
		onFail:   onFail,
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	q.idle = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *recordQueue) push(job recordJob) {
	q.mu.Lock()
	if q.closing {
		q.mu.Unlock()
		q.log.Warn("recorder call dropped after close", "kind", job.kind(), "session_id", q.sessionOf(job))
		return
	}
	q.pending = append(q.pending, job)
	q.mu.Unlock()
	q.signal()
}

// requeue moves parked failures back to the queue and returns how many moved.
func (q *recordQueue) requeue() int {
	q.mu.Lock()
	if q.closing {
		q.mu.Unlock()
		return 0
	}
	n := len(q.failed)
	q.pending = append(q.pending, q.failed...)
	q.failed = nil
	q.mu.Unlock()
	if n > 0 {
		q.signal()
	}
	return n
}

func (q *recordQueue) counts() (pending, failed int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending = len(q.pending)
	if q.busy {
		pending++
	}
	return pending, len(q.failed)
}

// wait blocks until nothing is queued or in flight.
func (q *recordQueue) wait() {
	q.mu.Lock()
	for len(q.pending) > 0 || q.busy {
		q.idle.Wait()
	}
	q.mu.Unlock()
}

// close delivers what is queued and stops the worker.
func (q *recordQueue) close() {
	q.mu.Lock()
	if q.closing {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closing = true
	q.mu.Unlock()
	q.signal()
	<-q.done
}

func (q *recordQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *recordQueue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.idle.Broadcast()
			closing := q.closing
			q.mu.Unlock()
			if closing {
				return
			}
			<-q.ready
			continue
		}
		job := q.pending[0]
		q.pending = q.pending[1:]
		q.busy = true
		q.mu.Unlock()

		err := q.deliver(job)

		q.mu.Lock()
		q.busy = false
		if err != nil {
			q.failed = append(q.failed, job)
		}
		q.mu.Unlock()
		if err != nil && q.onFail != nil {
			q.onFail(job, err)
		}
	}
}

func (q *recordQueue) deliver(job recordJob) error {
	var err error
	for attempt := 0; attempt <= q.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(q.backoff * time.Duration(attempt))
		}
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if job.start {
			err = q.recorder.RecordStart(ctx, job.userID, job.sessionID, job.subjectID)
		} else {
			err = q.recorder.RecordEnd(ctx, job.userID, job.end)
		}
		cancel()
		if err == nil {
			return nil
		}
		q.log.Debug("recorder call failed", "kind", job.kind(), "attempt", attempt+1, "error", err)
	}
	return err
}

func (q *recordQueue) sessionOf(job recordJob) string {
	if job.start {
		return job.sessionID
	}
	return job.end.SessionID
}
