package repository

import (
	"context"
	"database/sql"
	"fmt"

	"studycycle/backend/internal/model"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, subject_id, duration_minutes, status, skipped,
		started_at, ended_at, created_at, updated_at`

func (r *SessionRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

func (r *SessionRepository) Insert(ctx context.Context, session *model.StudySession) error {
	return insertSession(ctx, r.db, session)
}

func (r *SessionRepository) InsertTx(ctx context.Context, tx *sql.Tx, session *model.StudySession) error {
	return insertSession(ctx, tx, session)
}

func (r *SessionRepository) GetTx(ctx context.Context, tx *sql.Tx, userID, sessionID string) (*model.StudySession, error) {
	row := tx.QueryRowContext(
		ctx,
		`SELECT `+sessionColumns+` FROM study_sessions WHERE user_id = ? AND id = ?`,
		userID,
		sessionID,
	)
	return scanSession(row)
}

func (r *SessionRepository) Get(ctx context.Context, userID, sessionID string) (*model.StudySession, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+sessionColumns+` FROM study_sessions WHERE user_id = ? AND id = ?`,
		userID,
		sessionID,
	)
	return scanSession(row)
}

func (r *SessionRepository) UpdateTx(ctx context.Context, tx *sql.Tx, session *model.StudySession) error {
	_, err := tx.ExecContext(
		ctx,
		`UPDATE study_sessions
		 SET subject_id = ?,
		     duration_minutes = ?,
		     status = ?,
		     skipped = ?,
		     ended_at = ?,
		     updated_at = ?
		 WHERE id = ?`,
		session.SubjectID,
		session.DurationMinutes,
		session.Status,
		boolToInt(session.Skipped),
		nullableTime(session.EndedAt),
		formatTime(session.UpdatedAt),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// List returns the newest sessions first.
func (r *SessionRepository) List(ctx context.Context, userID string, limit int) ([]model.StudySession, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM study_sessions
		 WHERE user_id = ?
		 ORDER BY started_at DESC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.StudySession, 0, limit)
	for rows.Next() {
		session, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertSession(ctx context.Context, db execer, session *model.StudySession) error {
	_, err := db.ExecContext(
		ctx,
		`INSERT INTO study_sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.SubjectID,
		session.DurationMinutes,
		session.Status,
		boolToInt(session.Skipped),
		formatTime(session.StartedAt),
		nullableTime(session.EndedAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func scanSession(s scanner) (*model.StudySession, error) {
	session := model.StudySession{}
	var skipped int
	var startedAt string
	var endedAt sql.NullString
	var createdAt string
	var updatedAt string
	err := s.Scan(
		&session.ID,
		&session.UserID,
		&session.SubjectID,
		&session.DurationMinutes,
		&session.Status,
		&skipped,
		&startedAt,
		&endedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	session.Skipped = skipped != 0

	if session.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse session started_at: %w", err)
	}
	if session.EndedAt, err = parseNullTime(endedAt); err != nil {
		return nil, fmt.Errorf("parse session ended_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse session updated_at: %w", err)
	}
	return &session, nil
}
