// Package store keeps the per-user timer snapshot and cycle record the engine
// reloads on start-up.
package store

import (
	"encoding/json"
	"errors"

	"studycycle/backend/internal/model"
)

// ErrNotFound means nothing was persisted for the user; callers treat it as idle.
var ErrNotFound = errors.New("store: not found")

const (
	kindTimer = "timer"
	kindCycle = "cycle"
)

func encodeTimer(s *model.TimerSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

func decodeTimer(data []byte) (*model.TimerSnapshot, error) {
	var s model.TimerSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Mode == "" {
		s.Mode = model.ModeIdle
	}
	return &s, nil
}

func encodeCycle(r *model.CycleRecord) ([]byte, error) {
	return json.Marshal(r)
}

func decodeCycle(data []byte) (*model.CycleRecord, error) {
	var r model.CycleRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.Progress == nil {
		r.Progress = make(map[string]int)
	}
	return &r, nil
}
