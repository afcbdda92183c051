package store

import (
	"context"
	"sync"

	"studycycle/backend/internal/model"
)

// Memory keeps encoded records in process memory. Values are copied on the way
// in and out so callers never share state with the store.
type Memory struct {
	mu     sync.Mutex
	timers map[string][]byte
	cycles map[string][]byte
	writes int
}

func NewMemory() *Memory {
	return &Memory{
		timers: make(map[string][]byte),
		cycles: make(map[string][]byte),
	}
}

func (m *Memory) LoadTimer(_ context.Context, userID string) (*model.TimerSnapshot, error) {
	m.mu.Lock()
	data, ok := m.timers[userID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeTimer(data)
}

func (m *Memory) SaveTimer(_ context.Context, userID string, snap *model.TimerSnapshot) error {
	data, err := encodeTimer(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers[userID] = data
	m.writes++
	return nil
}

func (m *Memory) LoadCycle(_ context.Context, userID string) (*model.CycleRecord, error) {
	m.mu.Lock()
	data, ok := m.cycles[userID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeCycle(data)
}

func (m *Memory) SaveCycle(_ context.Context, userID string, rec *model.CycleRecord) error {
	data, err := encodeCycle(rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[userID] = data
	return nil
}

func (m *Memory) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.timers, userID)
	delete(m.cycles, userID)
	return nil
}

// TimerWrites counts SaveTimer calls.
func (m *Memory) TimerWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
