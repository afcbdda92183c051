package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"studycycle/backend/internal/clock"
	"studycycle/backend/internal/logger"
	"studycycle/backend/internal/model"
	"studycycle/backend/internal/plan"
	"studycycle/backend/internal/timer"
)

type Deps struct {
	Clock    clock.Clock
	Store    SnapshotStore
	Recorder Recorder
	Alarm    Alarm
	// Backend creates the timing backend. It defaults to the goroutine actor.
	Backend timer.Factory
	// Fallback is used when Backend fails. It defaults to the foreground timer.
	Fallback timer.Factory
	Logger   *logger.Logger
}

// Controller is the single owner of one user's cycle state. Every exported
// method is safe for concurrent use and returns without waiting on the
// timing backend.
type Controller struct {
	mu sync.Mutex

	opts     Options
	clock    clock.Clock
	store    SnapshotStore
	alarm    Alarm
	log      *logger.Logger
	records  *recordQueue
	factory  timer.Factory
	fallback timer.Factory

	backend timer.Backend
	session uint64
	pumps   sync.WaitGroup

	subjects []model.Subject
	settings model.Settings
	cycle    model.CycleState

	status    Status
	timeLeft  int
	endAt     time.Time
	sessionID string
	ticks     int
	closed    bool

	subMu      sync.Mutex
	subs       map[int]chan Notification
	nextSub    int
	subsClosed bool
}

func New(deps Deps, opts Options) *Controller {
	opts = opts.withDefaults()
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Recorder == nil {
		deps.Recorder = noopRecorder{}
	}
	if deps.Alarm == nil {
		deps.Alarm = noopAlarm{}
	}
	timerOpts := timer.Options{Clock: deps.Clock, TickInterval: opts.TickInterval}
	if deps.Backend == nil {
		deps.Backend = timer.ActorFactory(timerOpts)
	}
	if deps.Fallback == nil {
		deps.Fallback = timer.ForegroundFactory(timerOpts)
	}
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	log = log.With("component", "engine", "user_id", opts.UserID)

	c := &Controller{
		opts:     opts,
		clock:    deps.Clock,
		store:    deps.Store,
		alarm:    deps.Alarm,
		log:      log,
		factory:  deps.Backend,
		fallback: deps.Fallback,
		settings: model.DefaultSettings(),
		cycle:    model.CycleState{Plan: []model.Block{}, Progress: map[string]int{}},
		status:   StatusIdle,
		subs:     make(map[int]chan Notification),
	}
	c.records = newRecordQueue(deps.Recorder, opts.RecorderRetries, opts.RetryBackoff, log, c.recordFailed)
	return c
}

// Start begins the current block. A paused block resumes and a finished one
// moves on to the next block.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	switch c.status {
	case StatusRunning:
		return &StateError{Op: "start", Status: c.status}
	case StatusPaused:
		return c.resumeLocked(ctx)
	case StatusCompleted:
		return c.advanceLocked(ctx, "start")
	}
	blk, err := c.currentLocked("start")
	if err != nil {
		return err
	}
	return c.startBlockLocked(ctx, blk, blk.DurationSeconds, true)
}

func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.status != StatusRunning {
		return &StateError{Op: "pause", Status: c.status}
	}
	c.timeLeft = clock.CeilSeconds(c.endAt.Sub(c.clock.Now()))
	c.endAt = time.Time{}
	c.status = StatusPaused
	if c.backend != nil {
		c.backend.Send(timer.Pause(c.session))
	}
	c.persistLocked(ctx, false)
	c.notifyStateLocked()
	return nil
}

// Resume restarts a paused block with the time it had left.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.status != StatusPaused {
		return &StateError{Op: "resume", Status: c.status}
	}
	return c.resumeLocked(ctx)
}

// Advance starts the next block after a completed one.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.status != StatusCompleted {
		return &StateError{Op: "advance", Status: c.status}
	}
	return c.advanceLocked(ctx, "advance")
}

// Skip abandons the current block, credits it as if it had run in full and
// leaves the controller idle on the next block.
func (c *Controller) Skip(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	blk, err := c.currentLocked("skip")
	if err != nil {
		return err
	}
	c.stopBackendLocked()
	c.finishLocked(blk, model.OutcomeSkipped)
	c.idleLocked()
	c.persistLocked(ctx, true)
	c.notifyStateLocked()
	return nil
}

// Previous undoes the last finished block and leaves the controller idle on it.
func (c *Controller) Previous(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.status == StatusRunning {
		return &StateError{Op: "go back", Status: c.status}
	}
	n := len(c.cycle.History)
	if n == 0 {
		return ErrNoHistory
	}
	last := c.cycle.History[n-1]
	c.cancelSessionLocked()
	c.stopBackendLocked()
	c.cycle.History = c.cycle.History[:n-1]
	if last.Block.Type == model.BlockStudy && last.AppliedMinutes > 0 {
		left := c.cycle.Progress[last.Block.SubjectID] - last.AppliedMinutes
		if left < 0 {
			left = 0
		}
		c.cycle.Progress[last.Block.SubjectID] = left
	}
	c.cycle.CurrentIndex = last.Block.SequenceIndex
	c.idleLocked()
	c.persistLocked(ctx, true)
	c.notifyStateLocked()
	return nil
}

// ResetBlock re-arms the current block with its full duration.
func (c *Controller) ResetBlock(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, err := c.currentLocked("reset block"); err != nil {
		return err
	}
	c.cancelSessionLocked()
	c.stopBackendLocked()
	c.idleLocked()
	c.persistLocked(ctx, false)
	c.notifyStateLocked()
	return nil
}

// ResetSubject clears the progress and history of the subject owning the
// current block and moves back to that subject's first block.
func (c *Controller) ResetSubject(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if len(c.cycle.Plan) == 0 {
		return &PlanError{Op: "reset subject", Reason: ReasonEmptyPlan}
	}
	subjectID, ok := plan.OwnerOf(c.cycle.Plan, c.cycle.CurrentIndex)
	if !ok {
		return &PlanError{Op: "reset subject", Reason: ReasonEmptyPlan}
	}
	c.cancelSessionLocked()
	c.stopBackendLocked()
	kept := c.cycle.History[:0]
	for _, entry := range c.cycle.History {
		owner, _ := plan.OwnerOf(c.cycle.Plan, entry.Block.SequenceIndex)
		if owner == subjectID {
			continue
		}
		kept = append(kept, entry)
	}
	c.cycle.History = kept
	c.cycle.Progress[subjectID] = 0
	c.cycle.CurrentIndex = plan.FirstIndexOf(c.cycle.Plan, subjectID)
	c.idleLocked()
	c.persistLocked(ctx, true)
	c.notifyStateLocked()
	c.log.Info("subject reset", "subject_id", subjectID)
	return nil
}

// ResetCycle drops all progress and rebuilds the plan.
func (c *Controller) ResetCycle(ctx context.Context, subjects []model.Subject, settings model.Settings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.cancelSessionLocked()
	c.stopBackendLocked()
	c.rebuildLocked(subjects, settings)
	c.idleLocked()
	c.persistLocked(ctx, true)
	c.notifyStateLocked()
	c.log.Info("cycle reset", "blocks", len(c.cycle.Plan))
	return nil
}

// RetryRecords queues recorder calls that failed earlier and returns how many
// were queued.
func (c *Controller) RetryRecords(_ context.Context) int {
	n := c.records.requeue()
	if n > 0 {
		c.log.Info("retrying recorder calls", "count", n)
	}
	return n
}

// WaitRecords blocks until every queued recorder call was attempted.
func (c *Controller) WaitRecords() {
	c.records.wait()
}

func (c *Controller) State() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Plan returns a copy of the current plan.
func (c *Controller) Plan() []model.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Block, len(c.cycle.Plan))
	copy(out, c.cycle.Plan)
	return out
}

// Cycle returns a deep copy of the cycle state.
func (c *Controller) Cycle() model.CycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyCycle(c.cycle)
}

// Subscribe registers for notifications. Slow subscribers miss notifications
// rather than stall the controller. The returned func unsubscribes.
func (c *Controller) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)
	c.subMu.Lock()
	if c.subsClosed {
		c.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
			c.subMu.Unlock()
		})
	}
}

// Close stops the countdown, saves the last snapshot and delivers queued
// recorder calls. A running block keeps its deadline and resumes on the next
// Load.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.persistLocked(context.Background(), true)
	if c.backend != nil {
		c.backend.Close()
		c.backend = nil
	}
	c.mu.Unlock()

	c.pumps.Wait()
	c.records.close()

	c.subMu.Lock()
	c.subsClosed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.subMu.Unlock()
}

func (c *Controller) currentLocked(op string) (model.Block, error) {
	if len(c.cycle.Plan) == 0 {
		return model.Block{}, &PlanError{Op: op, Reason: ReasonEmptyPlan}
	}
	blk, ok := c.cycle.Current()
	if !ok {
		return model.Block{}, &PlanError{Op: op, Reason: ReasonExhausted}
	}
	return blk, nil
}

func (c *Controller) resumeLocked(ctx context.Context) error {
	blk, err := c.currentLocked("resume")
	if err != nil {
		return err
	}
	return c.startBlockLocked(ctx, blk, c.timeLeft, false)
}

func (c *Controller) advanceLocked(ctx context.Context, op string) error {
	blk, err := c.currentLocked(op)
	if err != nil {
		return err
	}
	return c.startBlockLocked(ctx, blk, blk.DurationSeconds, true)
}

// startBlockLocked runs blk for seconds. fresh marks the start of a new study
// session rather than the continuation of a paused or restored one.
func (c *Controller) startBlockLocked(ctx context.Context, blk model.Block, seconds int, fresh bool) error {
	b, err := c.backendLocked()
	if err != nil {
		return err
	}
	now := c.clock.Now()
	c.session++
	c.status = StatusRunning
	c.timeLeft = seconds
	c.endAt = now.Add(time.Duration(seconds) * time.Second)
	c.ticks = 0
	if blk.Type == model.BlockStudy && (fresh || c.sessionID == "") {
		c.sessionID = uuid.NewString()
		c.records.push(recordJob{start: true, userID: c.opts.UserID, sessionID: c.sessionID, subjectID: blk.SubjectID})
	}
	b.Send(timer.Start(seconds, blk.Type.Mode(), c.endAt, c.session))
	c.persistLocked(ctx, fresh)
	c.notifyStateLocked()
	c.log.Debug("block started", "index", blk.SequenceIndex, "type", blk.Type, "seconds", seconds, "backend", b.Name())
	return nil
}

// completeLocked finishes the running block. chain allows AutoAdvance to start
// the next block right away.
func (c *Controller) completeLocked(ctx context.Context, chain bool) {
	blk, ok := c.cycle.Current()
	if !ok {
		c.status = StatusCompleted
		return
	}
	c.finishLocked(blk, model.OutcomeCompleted)
	c.status = StatusCompleted
	c.timeLeft = 0
	c.endAt = time.Time{}

	signal := c.settings.AlarmSignal()
	if signal.Enabled {
		c.alarm.Trigger(ctx, signal, blk)
	}
	c.notifyLocked(Notification{Kind: NotifyAlarm, View: c.viewLocked(), Block: &blk, Signal: &signal})
	c.log.Info("block completed", "index", blk.SequenceIndex, "type", blk.Type, "subject_id", blk.SubjectID)

	if next, ok := c.cycle.Current(); ok && chain && c.opts.AutoAdvance {
		if err := c.startBlockLocked(ctx, next, next.DurationSeconds, true); err == nil {
			return
		}
		c.log.Error("auto advance failed", "index", next.SequenceIndex)
	}
	if _, ok := c.cycle.Current(); !ok {
		c.log.Info("cycle complete", "blocks", len(c.cycle.Plan))
	}
	c.persistLocked(ctx, true)
	c.notifyStateLocked()
}

// finishLocked credits blk, reports study blocks to the recorder and moves the
// cycle to the next block.
func (c *Controller) finishLocked(blk model.Block, outcome model.Outcome) {
	applied := 0
	if blk.Type == model.BlockStudy {
		applied = c.creditLocked(blk.SubjectID, blk.DurationMinutes())
		sid := c.sessionID
		if sid == "" {
			sid = uuid.NewString()
		}
		c.records.push(recordJob{
			userID: c.opts.UserID,
			end: model.SessionRecord{
				SessionID:       sid,
				SubjectID:       blk.SubjectID,
				DurationMinutes: blk.DurationMinutes(),
				Skipped:         outcome == model.OutcomeSkipped,
			},
		})
	}
	c.sessionID = ""
	c.cycle.History = append(c.cycle.History, model.HistoryEntry{
		Block:          blk,
		Outcome:        outcome,
		AppliedMinutes: applied,
		At:             c.clock.Now(),
	})
	c.cycle.CurrentIndex++
}

// cancelSessionLocked closes the session of an abandoned study block with the
// whole minutes actually studied. Nothing is credited.
func (c *Controller) cancelSessionLocked() {
	if c.sessionID == "" {
		return
	}
	sid := c.sessionID
	c.sessionID = ""
	blk, ok := c.cycle.Current()
	if !ok || blk.Type != model.BlockStudy {
		return
	}
	left := c.timeLeft
	if c.status == StatusRunning {
		left = clock.CeilSeconds(c.endAt.Sub(c.clock.Now()))
	}
	studied := blk.DurationSeconds - left
	if studied < 0 {
		studied = 0
	}
	c.records.push(recordJob{
		userID: c.opts.UserID,
		end: model.SessionRecord{
			SessionID:       sid,
			SubjectID:       blk.SubjectID,
			DurationMinutes: studied / 60,
			Cancelled:       true,
		},
	})
	c.log.Info("session cancelled", "session_id", sid, "studied_seconds", studied)
}

// creditLocked adds minutes to the subject's progress, capped at its goal, and
// returns the minutes actually added.
func (c *Controller) creditLocked(subjectID string, minutes int) int {
	cur := c.cycle.Progress[subjectID]
	next := cur + minutes
	if goal := c.goalOf(subjectID); goal > 0 && next > goal {
		next = goal
	}
	if next < cur {
		next = cur
	}
	c.cycle.Progress[subjectID] = next
	return next - cur
}

// idleLocked parks the controller on the current block with its full duration.
func (c *Controller) idleLocked() {
	c.status = StatusIdle
	c.endAt = time.Time{}
	c.ticks = 0
	c.timeLeft = 0
	if blk, ok := c.cycle.Current(); ok {
		c.timeLeft = blk.DurationSeconds
	}
}

func (c *Controller) rebuildLocked(subjects []model.Subject, settings model.Settings) {
	c.subjects = append([]model.Subject(nil), subjects...)
	c.settings = settings
	c.cycle = model.CycleState{
		Plan:     plan.Build(subjects, settings),
		Progress: make(map[string]int),
		History:  []model.HistoryEntry{},
	}
}

// backendLocked returns the live backend, creating one when needed. A backend
// that fails to initialize is replaced by the fallback.
func (c *Controller) backendLocked() (timer.Backend, error) {
	if c.backend != nil {
		return c.backend, nil
	}
	b, err := c.factory()
	if err != nil {
		if errors.Is(err, timer.ErrActorInit) {
			c.log.Warn("timing actor unavailable, using foreground timer", "error", err)
		} else {
			c.log.Error("timing backend failed, using foreground timer", "error", err)
		}
		b, err = c.fallback()
		if err != nil {
			return nil, fmt.Errorf("engine: create fallback timer: %w", err)
		}
	}
	c.backend = b
	c.pumps.Add(1)
	go c.pump(b)
	return b, nil
}

// replaceBackendLocked discards the live backend so the next start gets a
// fresh instance.
func (c *Controller) replaceBackendLocked() {
	if c.backend == nil {
		return
	}
	c.backend.Close()
	c.backend = nil
}

func (c *Controller) stopBackendLocked() {
	c.session++
	if c.backend != nil {
		c.backend.Send(timer.Stop(c.session))
	}
}

func (c *Controller) pump(b timer.Backend) {
	defer c.pumps.Done()
	for ev := range b.Events() {
		c.handleEvent(b, ev)
	}
}

func (c *Controller) handleEvent(b timer.Backend, ev timer.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || b != c.backend || ev.Session != c.session {
		return
	}
	ctx := context.Background()
	switch ev.Kind {
	case timer.EventTick:
		if c.status != StatusRunning {
			return
		}
		c.timeLeft = ev.TimeLeft
		c.ticks++
		if c.ticks%c.opts.PersistEvery == 0 {
			c.persistLocked(ctx, false)
		}
		c.notifyStateLocked()
	case timer.EventComplete:
		if c.status != StatusRunning {
			return
		}
		c.completeLocked(ctx, true)
	case timer.EventPaused:
		if c.status != StatusPaused || ev.TimeLeft == c.timeLeft {
			return
		}
		c.timeLeft = ev.TimeLeft
		c.persistLocked(ctx, false)
		c.notifyStateLocked()
	}
}

func (c *Controller) recordFailed(job recordJob, err error) {
	c.log.Error("session recorder failed", "kind", job.kind(), "session_id", c.records.sessionOf(job), "error", err)
	c.mu.Lock()
	view := c.viewLocked()
	c.mu.Unlock()
	c.notifyLocked(Notification{Kind: NotifyRecorderFailure, View: view, Error: err.Error()})
}

func (c *Controller) goalOf(subjectID string) int {
	for _, s := range c.subjects {
		if s.ID == subjectID {
			return s.TimeGoalMinutes
		}
	}
	return 0
}

func (c *Controller) subjectName(subjectID string) string {
	for _, s := range c.subjects {
		if s.ID == subjectID {
			return s.Name
		}
	}
	return ""
}

func (c *Controller) viewLocked() View {
	v := View{
		Status:          c.status,
		Mode:            c.modeLocked(),
		TimeLeftSeconds: c.timeLeft,
		CurrentIndex:    c.cycle.CurrentIndex,
		TotalBlocks:     len(c.cycle.Plan),
		CycleComplete:   len(c.cycle.Plan) > 0 && c.cycle.Complete(),
		HistoryLength:   len(c.cycle.History),
		SessionID:       c.sessionID,
		Progress:        make([]SubjectProgress, 0, len(c.subjects)),
	}
	if c.status == StatusRunning {
		end := c.endAt
		v.EndAt = &end
	}
	if blk, ok := c.cycle.Current(); ok {
		v.Block = &blk
		owner, _ := plan.OwnerOf(c.cycle.Plan, blk.SequenceIndex)
		v.SubjectName = c.subjectName(owner)
	}
	if c.backend != nil {
		v.Backend = c.backend.Name()
	}
	for _, s := range c.subjects {
		if s.TimeGoalMinutes <= 0 {
			continue
		}
		v.Progress = append(v.Progress, SubjectProgress{
			SubjectID:   s.ID,
			Name:        s.Name,
			Color:       s.Color,
			Minutes:     c.cycle.Progress[s.ID],
			GoalMinutes: s.TimeGoalMinutes,
		})
	}
	v.PendingRecords, v.FailedRecords = c.records.counts()
	return v
}

func (c *Controller) modeLocked() string {
	switch c.status {
	case StatusPaused:
		return model.ModePaused
	case StatusRunning:
		if blk, ok := c.cycle.Current(); ok {
			return blk.Type.Mode()
		}
	}
	return model.ModeIdle
}

func (c *Controller) notifyStateLocked() {
	c.notifyLocked(Notification{Kind: NotifyState, View: c.viewLocked()})
}

// notifyLocked fans n out to subscribers; it only needs subMu.
func (c *Controller) notifyLocked(n Notification) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- n:
		default:
			c.log.Debug("subscriber lagging, notification dropped", "kind", n.Kind)
		}
	}
}

func copyCycle(src model.CycleState) model.CycleState {
	dst := model.CycleState{
		Plan:         append([]model.Block(nil), src.Plan...),
		CurrentIndex: src.CurrentIndex,
		Progress:     make(map[string]int, len(src.Progress)),
		History:      append([]model.HistoryEntry(nil), src.History...),
	}
	for k, v := range src.Progress {
		dst.Progress[k] = v
	}
	return dst
}
