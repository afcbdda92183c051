package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"studycycle/backend/internal/model"
)

// SnapshotRepository stores the engine's timer snapshot and cycle record.
type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) GetTimer(ctx context.Context, userID string) (*model.TimerSnapshot, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT end_at, mode, time_left_seconds, subject, is_running, completed, block_type,
		        sequence_index, session_id, updated_at
		 FROM timer_snapshots WHERE user_id = ?`,
		userID,
	)

	var snap model.TimerSnapshot
	var endAt sql.NullString
	var isRunning, completed int
	var blockType string
	var updatedAt string
	err := row.Scan(
		&endAt,
		&snap.Mode,
		&snap.TimeLeftSeconds,
		&snap.Subject,
		&isRunning,
		&completed,
		&blockType,
		&snap.SequenceIndex,
		&snap.SessionID,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get timer snapshot: %w", err)
	}
	snap.IsRunning = isRunning != 0
	snap.Completed = completed != 0
	snap.BlockType = model.BlockType(blockType)
	if snap.EndAt, err = parseNullTime(endAt); err != nil {
		return nil, fmt.Errorf("parse snapshot end_at: %w", err)
	}
	if snap.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse snapshot updated_at: %w", err)
	}
	return &snap, nil
}

func (r *SnapshotRepository) SaveTimer(ctx context.Context, userID string, snap *model.TimerSnapshot) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO timer_snapshots (
			user_id, end_at, mode, time_left_seconds, subject, is_running, completed, block_type,
			sequence_index, session_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			end_at = excluded.end_at,
			mode = excluded.mode,
			time_left_seconds = excluded.time_left_seconds,
			subject = excluded.subject,
			is_running = excluded.is_running,
			completed = excluded.completed,
			block_type = excluded.block_type,
			sequence_index = excluded.sequence_index,
			session_id = excluded.session_id,
			updated_at = excluded.updated_at`,
		userID,
		nullableTime(snap.EndAt),
		snap.Mode,
		snap.TimeLeftSeconds,
		snap.Subject,
		boolToInt(snap.IsRunning),
		boolToInt(snap.Completed),
		string(snap.BlockType),
		snap.SequenceIndex,
		snap.SessionID,
		formatTime(snap.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save timer snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) GetCycle(ctx context.Context, userID string) (*model.CycleRecord, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT plan_fingerprint, current_index, progress, history, updated_at
		 FROM cycle_states WHERE user_id = ?`,
		userID,
	)

	var rec model.CycleRecord
	var progress string
	var history string
	var updatedAt string
	err := row.Scan(&rec.PlanFingerprint, &rec.CurrentIndex, &progress, &history, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get cycle state: %w", err)
	}
	if err := json.Unmarshal([]byte(progress), &rec.Progress); err != nil {
		return nil, fmt.Errorf("decode cycle progress: %w", err)
	}
	if err := json.Unmarshal([]byte(history), &rec.History); err != nil {
		return nil, fmt.Errorf("decode cycle history: %w", err)
	}
	if rec.Progress == nil {
		rec.Progress = make(map[string]int)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse cycle updated_at: %w", err)
	}
	return &rec, nil
}

func (r *SnapshotRepository) SaveCycle(ctx context.Context, userID string, rec *model.CycleRecord) error {
	progress, err := json.Marshal(rec.Progress)
	if err != nil {
		return fmt.Errorf("encode cycle progress: %w", err)
	}
	history := []byte("[]")
	if len(rec.History) > 0 {
		if history, err = json.Marshal(rec.History); err != nil {
			return fmt.Errorf("encode cycle history: %w", err)
		}
	}
	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO cycle_states (user_id, plan_fingerprint, current_index, progress, history, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			plan_fingerprint = excluded.plan_fingerprint,
			current_index = excluded.current_index,
			progress = excluded.progress,
			history = excluded.history,
			updated_at = excluded.updated_at`,
		userID,
		rec.PlanFingerprint,
		rec.CurrentIndex,
		string(progress),
		string(history),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save cycle state: %w", err)
	}
	return nil
}

// Delete removes both records for the user.
func (r *SnapshotRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timer_snapshots WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete timer snapshot: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cycle_states WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete cycle state: %w", err)
	}
	return nil
}
