package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNoHistory = errors.New("engine: no finished block to step back to")
	ErrClosed    = errors.New("engine: controller closed")
)

const (
	ReasonEmptyPlan = "empty plan"
	ReasonExhausted = "cycle already complete"
)

// PlanError rejects a command that needs a block when the plan has none left.
type PlanError struct {
	Op     string
	Reason string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("engine: %s: %s", e.Op, e.Reason)
}

// StateError rejects a command that is not valid in the current status.
type StateError struct {
	Op     string
	Status Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("engine: cannot %s while %s", e.Op, e.Status)
}
