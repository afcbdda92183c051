package repository

import (
	"context"
	"database/sql"
	"fmt"

	"studycycle/backend/internal/model"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (*model.UserSettings, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT user_id, study_duration_minutes, short_break_minutes, long_break_minutes,
		        long_break_interval, sound_enabled, sound_id, sound_duration_seconds, updated_at
		 FROM user_settings WHERE user_id = ?`,
		userID,
	)

	var settings model.UserSettings
	var soundEnabled int
	var updatedAt string
	err := row.Scan(
		&settings.UserID,
		&settings.StudyDurationMinutes,
		&settings.ShortBreakMinutes,
		&settings.LongBreakMinutes,
		&settings.LongBreakInterval,
		&soundEnabled,
		&settings.SoundID,
		&settings.SoundDurationSeconds,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	settings.SoundEnabled = soundEnabled != 0
	if settings.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse settings updated_at: %w", err)
	}
	return &settings, nil
}

func (r *SettingsRepository) Upsert(ctx context.Context, settings *model.UserSettings) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO user_settings (
			user_id, study_duration_minutes, short_break_minutes, long_break_minutes,
			long_break_interval, sound_enabled, sound_id, sound_duration_seconds, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			study_duration_minutes = excluded.study_duration_minutes,
			short_break_minutes = excluded.short_break_minutes,
			long_break_minutes = excluded.long_break_minutes,
			long_break_interval = excluded.long_break_interval,
			sound_enabled = excluded.sound_enabled,
			sound_id = excluded.sound_id,
			sound_duration_seconds = excluded.sound_duration_seconds,
			updated_at = excluded.updated_at`,
		settings.UserID,
		settings.StudyDurationMinutes,
		settings.ShortBreakMinutes,
		settings.LongBreakMinutes,
		settings.LongBreakInterval,
		boolToInt(settings.SoundEnabled),
		settings.SoundID,
		settings.SoundDurationSeconds,
		formatTime(settings.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
