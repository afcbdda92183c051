package store

import (
	"context"
	"errors"

	"studycycle/backend/internal/model"
	"studycycle/backend/internal/repository"
)

// SQL keeps records in the application database.
type SQL struct {
	repo *repository.SnapshotRepository
}

func NewSQL(repo *repository.SnapshotRepository) *SQL {
	return &SQL{repo: repo}
}

func (s *SQL) LoadTimer(ctx context.Context, userID string) (*model.TimerSnapshot, error) {
	snap, err := s.repo.GetTimer(ctx, userID)
	return snap, translate(err)
}

func (s *SQL) SaveTimer(ctx context.Context, userID string, snap *model.TimerSnapshot) error {
	return s.repo.SaveTimer(ctx, userID, snap)
}

func (s *SQL) LoadCycle(ctx context.Context, userID string) (*model.CycleRecord, error) {
	rec, err := s.repo.GetCycle(ctx, userID)
	return rec, translate(err)
}

func (s *SQL) SaveCycle(ctx context.Context, userID string, rec *model.CycleRecord) error {
	return s.repo.SaveCycle(ctx, userID, rec)
}

func (s *SQL) Clear(ctx context.Context, userID string) error {
	return s.repo.Delete(ctx, userID)
}

func translate(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
