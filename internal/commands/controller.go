package commands

import (
	"context"
	"io"

	"studycycle/backend/internal/alarm"
	"studycycle/backend/internal/engine"
	"studycycle/backend/internal/store"
)

// openController loads the cycle file and reattaches the state saved for the
// configured user. Close the controller to save it again.
func (o *rootOptions) openController(ctx context.Context, out io.Writer) (*engine.Controller, error) {
	subjects, settings, err := ReadCycleFile(o.cfg.CycleFile)
	if err != nil {
		return nil, err
	}
	disk, err := store.NewDisk(o.cfg.StorePath)
	if err != nil {
		return nil, err
	}

	ctrl := engine.New(engine.Deps{
		Store:  disk,
		Alarm:  alarm.NewBell(out),
		Logger: o.log,
	}, engine.Options{
		UserID:       o.cfg.User,
		AutoAdvance:  o.cfg.AutoAdvance,
		TickInterval: o.cfg.TickInterval,
	})
	if err := ctrl.Load(ctx, subjects, settings); err != nil {
		ctrl.Close()
		return nil, err
	}
	return ctrl, nil
}
