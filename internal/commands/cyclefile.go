package commands

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"studycycle/backend/internal/model"
)

// CycleFile is the on-disk description of a cycle:
//
//	settings:
//	  study_duration_minutes: 50
//	subjects:
//	  - name: Math
//	    time_goal_minutes: 100
type CycleFile struct {
	Settings *model.Settings `yaml:"settings"`
	Subjects []model.Subject `yaml:"subjects"`
}

// ReadCycleFile parses path. Missing settings fall back to the defaults and a
// subject without an id is keyed by its name.
func ReadCycleFile(path string) ([]model.Subject, model.Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, model.Settings{}, fmt.Errorf("read cycle file: %w", err)
	}
	return ParseCycleFile(raw)
}

func ParseCycleFile(raw []byte) ([]model.Subject, model.Settings, error) {
	var file CycleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, model.Settings{}, fmt.Errorf("parse cycle file: %w", err)
	}

	settings := model.DefaultSettings()
	if file.Settings != nil {
		settings = file.Settings.Normalized()
	}

	seen := make(map[string]struct{}, len(file.Subjects))
	subjects := make([]model.Subject, 0, len(file.Subjects))
	for i, s := range file.Subjects {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, model.Settings{}, fmt.Errorf("subject %d: name is required", i+1)
		}
		if s.TimeGoalMinutes < 0 {
			return nil, model.Settings{}, fmt.Errorf("subject %q: time_goal_minutes must not be negative", s.Name)
		}
		if s.ID == "" {
			s.ID = strings.ToLower(strings.Join(strings.Fields(s.Name), "-"))
		}
		if _, dup := seen[s.ID]; dup {
			return nil, model.Settings{}, fmt.Errorf("subject %q: duplicate id %q", s.Name, s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Order == 0 {
			s.Order = i + 1
		}
		subjects = append(subjects, s)
	}
	return subjects, settings, nil
}
