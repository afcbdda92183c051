package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "studycycle/backend/internal/errors"
	"studycycle/backend/internal/model"
	"studycycle/backend/internal/repository"
)

// SessionRecorder writes study session boundaries reported by the engine.
type SessionRecorder struct {
	repo *repository.SessionRepository
	now  func() time.Time
}

func NewSessionRecorder(repo *repository.SessionRepository) *SessionRecorder {
	return &SessionRecorder{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (r *SessionRecorder) RecordStart(ctx context.Context, userID, sessionID, subjectID string) error {
	if _, err := r.repo.Get(ctx, userID, sessionID); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("record session start: %w", err)
	}

	now := r.now()
	session := model.StudySession{
		ID:        sessionID,
		UserID:    userID,
		SubjectID: subjectID,
		Status:    model.SessionRunning,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.Insert(ctx, &session); err != nil {
		return fmt.Errorf("record session start: %w", err)
	}
	return nil
}

// RecordEnd closes the session, creating it when its start was never recorded.
// Ending an already finished session is a no-op so retries are safe.
func (r *SessionRecorder) RecordEnd(ctx context.Context, userID string, rec model.SessionRecord) error {
	now := r.now()
	tx, err := r.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	status := model.SessionCompleted
	switch {
	case rec.Cancelled:
		status = model.SessionCancelled
	case rec.Skipped:
		status = model.SessionSkipped
	}

	session, err := r.repo.GetTx(ctx, tx, userID, rec.SessionID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		session = &model.StudySession{
			ID:        rec.SessionID,
			UserID:    userID,
			StartedAt: now.Add(-time.Duration(rec.DurationMinutes) * time.Minute),
			CreatedAt: now,
		}
		fillEnded(session, rec, status, now)
		if err := r.repo.InsertTx(ctx, tx, session); err != nil {
			return fmt.Errorf("record session end: %w", err)
		}
	case err != nil:
		return fmt.Errorf("record session end: %w", err)
	case session.Status != model.SessionRunning:
		return nil
	default:
		fillEnded(session, rec, status, now)
		if err := r.repo.UpdateTx(ctx, tx, session); err != nil {
			return fmt.Errorf("record session end: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session end: %w", err)
	}
	return nil
}

func fillEnded(session *model.StudySession, rec model.SessionRecord, status string, now time.Time) {
	session.SubjectID = rec.SubjectID
	session.DurationMinutes = rec.DurationMinutes
	session.Status = status
	session.Skipped = rec.Skipped
	session.EndedAt = &now
	session.UpdatedAt = now
}

type SessionService struct {
	repo *repository.SessionRepository
}

func NewSessionService(repo *repository.SessionRepository) *SessionService {
	return &SessionService{repo: repo}
}

func (s *SessionService) GetHistory(ctx context.Context, userID string, limit int) ([]model.StudySession, *apperrors.APIError) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	sessions, err := s.repo.List(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to get history")
	}
	return sessions, nil
}
