package service

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "studycycle/backend/internal/errors"
	"studycycle/backend/internal/model"
	"studycycle/backend/internal/repository"
)

type SettingsService struct {
	repo *repository.SettingsRepository
}

func NewSettingsService(repo *repository.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// Get returns the stored settings, or the defaults for a user that never saved any.
func (s *SettingsService) Get(ctx context.Context, userID string) (*model.UserSettings, *apperrors.APIError) {
	settings, err := s.repo.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.UserSettings{UserID: userID, Settings: model.DefaultSettings()}, nil
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get settings")
	}
	return settings, nil
}

func (s *SettingsService) Update(ctx context.Context, userID string, input model.Settings) (*model.UserSettings, *apperrors.APIError) {
	switch {
	case input.StudyDurationMinutes <= 0:
		return nil, apperrors.BadRequest("invalid_settings", "studyDurationMinutes must be positive")
	case input.ShortBreakMinutes <= 0:
		return nil, apperrors.BadRequest("invalid_settings", "shortBreakMinutes must be positive")
	case input.LongBreakMinutes <= 0:
		return nil, apperrors.BadRequest("invalid_settings", "longBreakMinutes must be positive")
	case input.LongBreakInterval <= 0:
		return nil, apperrors.BadRequest("invalid_settings", "longBreakInterval must be positive")
	case input.SoundDurationSeconds < 0:
		return nil, apperrors.BadRequest("invalid_settings", "soundDurationSeconds must not be negative")
	}
	input.SoundID = strings.TrimSpace(input.SoundID)

	settings := model.UserSettings{
		UserID:    userID,
		Settings:  input.Normalized(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, &settings); err != nil {
		return nil, apperrors.Internal("failed to save settings")
	}
	return &settings, nil
}
