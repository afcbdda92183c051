package engine

import (
	"context"
	"errors"
	"time"

	"studycycle/backend/internal/clock"
	"studycycle/backend/internal/model"
	"studycycle/backend/internal/plan"
	"studycycle/backend/internal/store"
	"studycycle/backend/internal/timer"
)

// Load builds the plan for subjects and settings and reattaches whatever was
// persisted for it. A countdown that was running resumes from its absolute
// deadline; one whose deadline already passed completes immediately.
func (c *Controller) Load(ctx context.Context, subjects []model.Subject, settings model.Settings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.stopBackendLocked()
	c.rebuildLocked(subjects, settings)
	c.sessionID = ""
	if c.store != nil {
		c.restoreCycleLocked(ctx)
	}
	c.idleLocked()
	if c.store != nil {
		if err := c.restoreTimerLocked(ctx); err != nil {
			return err
		}
	}
	c.notifyStateLocked()
	c.log.Info("cycle loaded", "blocks", len(c.cycle.Plan), "index", c.cycle.CurrentIndex, "status", c.status)
	return nil
}

// Resync recomputes the remaining time of a running block from its deadline
// and restarts the countdown on a fresh backend. Call it whenever the host may
// have been suspended.
func (c *Controller) Resync(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.status != StatusRunning {
		return nil
	}
	blk, err := c.currentLocked("resync")
	if err != nil {
		return err
	}
	return c.resyncLocked(ctx, blk, c.endAt, true)
}

// resyncLocked restarts the countdown of blk from endAt. chain lets a block
// found already over start the next one; a cold start never does.
func (c *Controller) resyncLocked(ctx context.Context, blk model.Block, endAt time.Time, chain bool) error {
	now := c.clock.Now()
	if overdue := now.Sub(endAt); overdue > c.opts.TickInterval {
		c.log.Warn("clock anomaly: deadline long past, completing block", "index", blk.SequenceIndex, "overdue", overdue.String())
	}
	remaining := clock.CeilSeconds(endAt.Sub(now))
	if remaining > blk.DurationSeconds {
		c.log.Warn("clock anomaly: deadline beyond block length, clamping", "index", blk.SequenceIndex, "remaining", remaining)
		remaining = blk.DurationSeconds
		endAt = now.Add(time.Duration(remaining) * time.Second)
	}
	if remaining == 0 {
		c.stopBackendLocked()
		c.status = StatusRunning
		c.completeLocked(ctx, chain)
		return nil
	}

	c.replaceBackendLocked()
	b, err := c.backendLocked()
	if err != nil {
		return err
	}
	c.session++
	c.status = StatusRunning
	c.endAt = endAt
	c.timeLeft = remaining
	c.ticks = 0
	b.Send(timer.Start(remaining, blk.Type.Mode(), endAt, c.session))
	c.persistLocked(ctx, false)
	c.notifyStateLocked()
	c.log.Debug("countdown resynced", "index", blk.SequenceIndex, "remaining", remaining, "backend", b.Name())
	return nil
}

func (c *Controller) restoreCycleLocked(ctx context.Context) {
	rec, err := c.store.LoadCycle(ctx, c.opts.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.log.Warn("load cycle record failed, starting fresh", "error", err)
		}
		return
	}
	if rec.PlanFingerprint != plan.Fingerprint(c.cycle.Plan) {
		c.log.Info("plan changed since last run, starting fresh cycle")
		return
	}
	if rec.CurrentIndex < 0 || rec.CurrentIndex > len(c.cycle.Plan) {
		c.log.Warn("cycle record index out of range, starting fresh", "index", rec.CurrentIndex)
		return
	}
	c.cycle.CurrentIndex = rec.CurrentIndex
	for id, minutes := range rec.Progress {
		if minutes > 0 {
			c.cycle.Progress[id] = minutes
		}
	}
	if rec.History != nil {
		c.cycle.History = append([]model.HistoryEntry(nil), rec.History...)
	}
}

func (c *Controller) restoreTimerLocked(ctx context.Context) error {
	snap, err := c.store.LoadTimer(ctx, c.opts.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.log.Warn("load timer snapshot failed, staying idle", "error", err)
		}
		return nil
	}
	blk, ok := c.cycle.Current()
	if snap.Completed {
		if snap.SequenceIndex == c.cycle.CurrentIndex && (!ok || snap.BlockType == blk.Type) {
			c.status = StatusCompleted
			c.timeLeft = 0
		}
		return nil
	}
	if !ok || snap.Mode == model.ModeIdle || snap.Mode == "" {
		return nil
	}
	if snap.SequenceIndex != blk.SequenceIndex || snap.BlockType != blk.Type {
		c.log.Warn("timer snapshot does not match the current block, ignoring",
			"snapshot_index", snap.SequenceIndex, "index", blk.SequenceIndex)
		return nil
	}
	c.sessionID = snap.SessionID

	switch {
	case snap.IsRunning && snap.EndAt != nil:
		return c.resyncLocked(ctx, blk, *snap.EndAt, false)
	default:
		left := snap.TimeLeftSeconds
		if left < 0 {
			left = 0
		}
		if left > blk.DurationSeconds {
			left = blk.DurationSeconds
		}
		c.status = StatusPaused
		c.timeLeft = left
	}
	return nil
}

// persistLocked writes the timer snapshot and, when withCycle is set, the
// cycle record. Storage failures are logged; local state stays authoritative.
func (c *Controller) persistLocked(ctx context.Context, withCycle bool) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveTimer(ctx, c.opts.UserID, c.snapshotLocked()); err != nil {
		c.log.Warn("save timer snapshot failed", "error", err)
	}
	if !withCycle {
		return
	}
	cycle := copyCycle(c.cycle)
	rec := &model.CycleRecord{
		PlanFingerprint: plan.Fingerprint(cycle.Plan),
		CurrentIndex:    cycle.CurrentIndex,
		Progress:        cycle.Progress,
		History:         cycle.History,
		UpdatedAt:       c.clock.Now(),
	}
	if err := c.store.SaveCycle(ctx, c.opts.UserID, rec); err != nil {
		c.log.Warn("save cycle record failed", "error", err)
	}
}

func (c *Controller) snapshotLocked() *model.TimerSnapshot {
	snap := &model.TimerSnapshot{
		Mode:            c.modeLocked(),
		TimeLeftSeconds: c.timeLeft,
		IsRunning:       c.status == StatusRunning,
		Completed:       c.status == StatusCompleted,
		SequenceIndex:   c.cycle.CurrentIndex,
		SessionID:       c.sessionID,
		UpdatedAt:       c.clock.Now(),
	}
	if blk, ok := c.cycle.Current(); ok {
		snap.BlockType = blk.Type
		owner, _ := plan.OwnerOf(c.cycle.Plan, blk.SequenceIndex)
		snap.Subject = c.subjectName(owner)
	}
	if c.status == StatusRunning {
		end := c.endAt
		snap.EndAt = &end
	}
	return snap
}
