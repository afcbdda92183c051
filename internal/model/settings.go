package model

import "time"

const (
	DefaultStudyDurationMinutes = 50
	DefaultShortBreakMinutes    = 10
	DefaultLongBreakMinutes     = 30
	DefaultLongBreakInterval    = 4
	DefaultSoundID              = "bell"
	DefaultSoundDurationSeconds = 2.0
)

type Settings struct {
	StudyDurationMinutes int     `json:"studyDurationMinutes" yaml:"study_duration_minutes"`
	ShortBreakMinutes    int     `json:"shortBreakMinutes" yaml:"short_break_minutes"`
	LongBreakMinutes     int     `json:"longBreakMinutes" yaml:"long_break_minutes"`
	LongBreakInterval    int     `json:"longBreakInterval" yaml:"long_break_interval"`
	SoundEnabled         bool    `json:"soundEnabled" yaml:"sound_enabled"`
	SoundID              string  `json:"soundId" yaml:"sound_id"`
	SoundDurationSeconds float64 `json:"soundDurationSeconds" yaml:"sound_duration_seconds"`
}

type UserSettings struct {
	UserID string `json:"userId"`
	Settings
	UpdatedAt time.Time `json:"updatedAt"`
}

func DefaultSettings() Settings {
	return Settings{
		StudyDurationMinutes: DefaultStudyDurationMinutes,
		ShortBreakMinutes:    DefaultShortBreakMinutes,
		LongBreakMinutes:     DefaultLongBreakMinutes,
		LongBreakInterval:    DefaultLongBreakInterval,
		SoundEnabled:         true,
		SoundID:              DefaultSoundID,
		SoundDurationSeconds: DefaultSoundDurationSeconds,
	}
}

// Normalized replaces non-positive durations and interval with the defaults.
func (s Settings) Normalized() Settings {
	if s.StudyDurationMinutes <= 0 {
		s.StudyDurationMinutes = DefaultStudyDurationMinutes
	}
	if s.ShortBreakMinutes <= 0 {
		s.ShortBreakMinutes = DefaultShortBreakMinutes
	}
	if s.LongBreakMinutes <= 0 {
		s.LongBreakMinutes = DefaultLongBreakMinutes
	}
	if s.LongBreakInterval <= 0 {
		s.LongBreakInterval = DefaultLongBreakInterval
	}
	if s.SoundID == "" {
		s.SoundID = DefaultSoundID
	}
	if s.SoundDurationSeconds <= 0 {
		s.SoundDurationSeconds = DefaultSoundDurationSeconds
	}
	return s
}

func (s Settings) AlarmSignal() AlarmSignal {
	n := s.Normalized()
	return AlarmSignal{
		ID:              n.SoundID,
		DurationSeconds: n.SoundDurationSeconds,
		Enabled:         s.SoundEnabled,
	}
}

type AlarmSignal struct {
	ID              string  `json:"id"`
	DurationSeconds float64 `json:"durationSeconds"`
	Enabled         bool    `json:"enabled"`
}
