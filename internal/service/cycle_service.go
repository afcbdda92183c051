package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"studycycle/backend/internal/clock"
	"studycycle/backend/internal/engine"
	apperrors "studycycle/backend/internal/errors"
	"studycycle/backend/internal/logger"
	"studycycle/backend/internal/model"
	"studycycle/backend/internal/plan"
	"studycycle/backend/internal/timer"
)

type CycleOptions struct {
	AutoAdvance     bool
	PersistEvery    int
	TickInterval    time.Duration
	RecorderRetries int
	// Foreground skips the goroutine actor and runs every countdown inline.
	Foreground bool
}

// CycleService keeps one engine controller per user, created on first use
// from the user's subjects and settings.
type CycleService struct {
	subjects *SubjectService
	settings *SettingsService
	store    engine.SnapshotStore
	recorder engine.Recorder
	alarm    engine.Alarm
	clock    clock.Clock
	opts     CycleOptions
	log      *logger.Logger

	mu          sync.Mutex
	controllers map[string]*engine.Controller
	closed      bool
	closeOnce   sync.Once
}

func NewCycleService(
	subjects *SubjectService,
	settings *SettingsService,
	store engine.SnapshotStore,
	recorder engine.Recorder,
	alarm engine.Alarm,
	clk clock.Clock,
	opts CycleOptions,
	log *logger.Logger,
) *CycleService {
	if clk == nil {
		clk = clock.System{}
	}
	return &CycleService{
		subjects:    subjects,
		settings:    settings,
		store:       store,
		recorder:    recorder,
		alarm:       alarm,
		clock:       clk,
		opts:        opts,
		log:         log.With("component", "cycle_service"),
		controllers: make(map[string]*engine.Controller),
	}
}

type PlanBlock struct {
	model.Block
	SubjectName string `json:"subjectName,omitempty"`
}

type PlanView struct {
	Blocks       []PlanBlock `json:"blocks"`
	TotalSeconds int         `json:"totalSeconds"`
	CurrentIndex int         `json:"currentIndex"`
}

func (s *CycleService) State(ctx context.Context, userID string) (*engine.View, *apperrors.APIError) {
	ctrl, apiErr := s.controller(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	view := ctrl.State()
	return &view, nil
}

func (s *CycleService) Plan(ctx context.Context, userID string) (*PlanView, *apperrors.APIError) {
	ctrl, apiErr := s.controller(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	subjects, apiErr := s.subjects.List(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	names := make(map[string]string, len(subjects))
	for _, subject := range subjects {
		names[subject.ID] = subject.Name
	}

	blocks := ctrl.Plan()
	view := &PlanView{
		Blocks:       make([]PlanBlock, 0, len(blocks)),
		TotalSeconds: plan.TotalSeconds(blocks),
		CurrentIndex: ctrl.State().CurrentIndex,
	}
	for _, b := range blocks {
		owner, _ := plan.OwnerOf(blocks, b.SequenceIndex)
		view.Blocks = append(view.Blocks, PlanBlock{Block: b, SubjectName: names[owner]})
	}
	return view, nil
}

func (s *CycleService) Start(ctx context.Context, userID string) (*engine.View, *apperrors.APIError) {
	return s.run(ctx, userID, (*engine.Controller).Start)
}

func (s *CycleService) Pause(ctx context.Context, userID string) (*engine.View, *apperrors.APIError) {
	return s.run(ctx, userID, (*engine.Controller).Pause)
}

func (s *CycleService) Resume(ctx context.Context, userID string) (*engine.View, *apperrors.APIError) {
	return s.run(ctx, userID, (*engine.Controller).Resume)
}

func (s *CycleService) Advance(ctx context.Context, userID string) (*engine.View, *apperrors.APIError) {
	return s.run(ctx, userID, (*engine.Controller).Advance)
}

func (s *CycleService) Skip(ctx context.Context, userID string) (*engine.View, *apperrors.APIError) {
	return s.run(ctx, userID, (*engine.Controller).Skip)
}

func (s *CycleService) Previous(ctx context.Context, userID string) (*engine.View, *apperrors.APIError) {
	return s.run(ctx, userID, (*engine.Controller).Previous)
}

func (s *CycleService) ResetBlock(ctx context.Context, userID string) (*engine.View, *apperrors.APIError) {
	return s.run(ctx, userID, (*engine.Controller).ResetBlock)
}

func (s *CycleService) ResetSubject(ctx context.Context, userID string) (*engine.View, *apperrors.APIError) {
	return s.run(ctx, userID, (*engine.Controller).ResetSubject)
}

func (s *CycleService) Resync(ctx context.Context, userID string) (*engine.View, *apperrors.APIError) {
	return s.run(ctx, userID, (*engine.Controller).Resync)
}

// ResetCycle rebuilds the plan from the user's current subjects and settings.
func (s *CycleService) ResetCycle(ctx context.Context, userID string) (*engine.View, *apperrors.APIError) {
	subjects, settings, apiErr := s.inputs(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	return s.run(ctx, userID, func(ctrl *engine.Controller, ctx context.Context) error {
		return ctrl.ResetCycle(ctx, subjects, settings)
	})
}

func (s *CycleService) RetryRecords(ctx context.Context, userID string) (int, *apperrors.APIError) {
	ctrl, apiErr := s.controller(ctx, userID)
	if apiErr != nil {
		return 0, apiErr
	}
	return ctrl.RetryRecords(ctx), nil
}

// Subscribe streams the user's notifications until cancel is called.
func (s *CycleService) Subscribe(ctx context.Context, userID string) (<-chan engine.Notification, func(), *apperrors.APIError) {
	ctrl, apiErr := s.controller(ctx, userID)
	if apiErr != nil {
		return nil, nil, apiErr
	}
	ch, cancel := ctrl.Subscribe()
	return ch, cancel, nil
}

// Close shuts every controller down, saving their snapshots. Later calls wait
// for the first one to finish.
func (s *CycleService) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		controllers := s.controllers
		s.controllers = make(map[string]*engine.Controller)
		s.mu.Unlock()

		for userID, ctrl := range controllers {
			ctrl.Close()
			s.log.Debug("controller closed", "user_id", userID)
		}
	})
}

func (s *CycleService) run(
	ctx context.Context,
	userID string,
	op func(*engine.Controller, context.Context) error,
) (*engine.View, *apperrors.APIError) {
	ctrl, apiErr := s.controller(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := op(ctrl, ctx); err != nil {
		return nil, engineError(err, ctrl.State())
	}
	view := ctrl.State()
	return &view, nil
}

func (s *CycleService) controller(ctx context.Context, userID string) (*engine.Controller, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, apperrors.Unavailable("server is shutting down")
	}
	if ctrl, ok := s.controllers[userID]; ok {
		return ctrl, nil
	}

	subjects, settings, apiErr := s.inputs(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	ctrl := engine.New(s.deps(), engine.Options{
		UserID:          userID,
		AutoAdvance:     s.opts.AutoAdvance,
		PersistEvery:    s.opts.PersistEvery,
		TickInterval:    s.opts.TickInterval,
		RecorderRetries: s.opts.RecorderRetries,
	})
	if err := ctrl.Load(ctx, subjects, settings); err != nil {
		ctrl.Close()
		s.log.Error("load cycle failed", "user_id", userID, "error", err)
		return nil, apperrors.Internal("failed to load cycle")
	}
	s.controllers[userID] = ctrl
	return ctrl, nil
}

func (s *CycleService) deps() engine.Deps {
	deps := engine.Deps{
		Clock:    s.clock,
		Store:    s.store,
		Recorder: s.recorder,
		Alarm:    s.alarm,
		Logger:   s.log,
	}
	if s.opts.Foreground {
		deps.Backend = timer.ForegroundFactory(timer.Options{Clock: s.clock, TickInterval: s.opts.TickInterval})
	}
	return deps
}

func (s *CycleService) inputs(ctx context.Context, userID string) ([]model.Subject, model.Settings, *apperrors.APIError) {
	subjects, apiErr := s.subjects.List(ctx, userID)
	if apiErr != nil {
		return nil, model.Settings{}, apiErr
	}
	settings, apiErr := s.settings.Get(ctx, userID)
	if apiErr != nil {
		return nil, model.Settings{}, apiErr
	}
	return subjects, settings.Settings, nil
}

func engineError(err error, view engine.View) *apperrors.APIError {
	details := map[string]interface{}{"state": view}
	var planErr *engine.PlanError
	var stateErr *engine.StateError
	switch {
	case errors.As(err, &planErr):
		return apperrors.Unprocessable("invalid_plan", planErr.Error()).WithDetails(details)
	case errors.As(err, &stateErr):
		return apperrors.Conflict("invalid_state", stateErr.Error()).WithDetails(details)
	case errors.Is(err, engine.ErrNoHistory):
		return apperrors.Conflict("no_history", "there is no finished block to go back to").WithDetails(details)
	case errors.Is(err, engine.ErrClosed):
		return apperrors.Unavailable("cycle engine is shutting down")
	default:
		return apperrors.Internal("cycle command failed")
	}
}
