package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "studycycle/backend/internal/errors"
	"studycycle/backend/internal/model"
	"studycycle/backend/internal/repository"
)

const maxSubjectNameLength = 80

type SubjectService struct {
	repo *repository.SubjectRepository
}

func NewSubjectService(repo *repository.SubjectRepository) *SubjectService {
	return &SubjectService{repo: repo}
}

type CreateSubjectInput struct {
	Name            string
	Color           string
	TimeGoalMinutes int
	Order           *int
}

// UpdateSubjectInput carries only the fields the caller wants to change.
type UpdateSubjectInput struct {
	Name            *string
	Color           *string
	TimeGoalMinutes *int
	Order           *int
}

func (s *SubjectService) List(ctx context.Context, userID string) ([]model.Subject, *apperrors.APIError) {
	subjects, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list subjects")
	}
	return subjects, nil
}

func (s *SubjectService) Create(ctx context.Context, userID string, input CreateSubjectInput) (*model.Subject, *apperrors.APIError) {
	name, apiErr := validateSubjectName(input.Name)
	if apiErr != nil {
		return nil, apiErr
	}
	if input.TimeGoalMinutes < 0 {
		return nil, apperrors.BadRequest("invalid_time_goal", "timeGoalMinutes must not be negative")
	}

	order := 0
	if input.Order != nil {
		order = *input.Order
	} else {
		next, err := s.repo.NextOrder(ctx, userID)
		if err != nil {
			return nil, apperrors.Internal("failed to order subject")
		}
		order = next
	}

	now := time.Now().UTC()
	subject := model.Subject{
		ID:              uuid.NewString(),
		UserID:          userID,
		Name:            name,
		Color:           strings.TrimSpace(input.Color),
		TimeGoalMinutes: input.TimeGoalMinutes,
		Order:           order,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, &subject); err != nil {
		return nil, apperrors.Internal("failed to create subject")
	}
	return &subject, nil
}

func (s *SubjectService) Update(ctx context.Context, userID, id string, input UpdateSubjectInput) (*model.Subject, *apperrors.APIError) {
	subject, err := s.repo.Get(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("subject_not_found", "subject not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get subject")
	}

	if input.Name != nil {
		name, apiErr := validateSubjectName(*input.Name)
		if apiErr != nil {
			return nil, apiErr
		}
		subject.Name = name
	}
	if input.Color != nil {
		subject.Color = strings.TrimSpace(*input.Color)
	}
	if input.TimeGoalMinutes != nil {
		if *input.TimeGoalMinutes < 0 {
			return nil, apperrors.BadRequest("invalid_time_goal", "timeGoalMinutes must not be negative")
		}
		subject.TimeGoalMinutes = *input.TimeGoalMinutes
	}
	if input.Order != nil {
		subject.Order = *input.Order
	}
	subject.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, subject); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("subject_not_found", "subject not found")
		}
		return nil, apperrors.Internal("failed to update subject")
	}
	return subject, nil
}

func (s *SubjectService) Delete(ctx context.Context, userID, id string) *apperrors.APIError {
	err := s.repo.Delete(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("subject_not_found", "subject not found")
	}
	if err != nil {
		return apperrors.Internal("failed to delete subject")
	}
	return nil
}

func validateSubjectName(raw string) (string, *apperrors.APIError) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperrors.BadRequest("invalid_name", "name is required")
	}
	if len(name) > maxSubjectNameLength {
		return "", apperrors.BadRequest("invalid_name", "name is too long")
	}
	return name, nil
}
