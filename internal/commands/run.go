package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"studycycle/backend/internal/engine"
)

type runOptions struct {
	once   bool
	manual bool
}

func addRun(topLevel *cobra.Command, opts *rootOptions) {
	ro := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start or resume the cycle and show the countdown.",
		Long: `Start or resume the cycle and show the countdown. Interrupting the
command saves the countdown; the next run picks it up from its deadline.`,
		Example: `
cyclectl run
cyclectl run --once
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ro.manual {
				opts.cfg.AutoAdvance = false
			}
			return ro.run(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&ro.once, "once", false, "Stop after the current block finishes.")
	cmd.Flags().BoolVar(&ro.manual, "manual", false, "Do not start the next block automatically.")

	topLevel.AddCommand(cmd)
}

func (ro *runOptions) run(cmd *cobra.Command, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	ctrl, err := opts.openController(ctx, out)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	events, cancel := ctrl.Subscribe()
	defer cancel()

	if err := ctrl.Start(ctx); err != nil {
		var stateErr *engine.StateError
		if !errors.As(err, &stateErr) || stateErr.Status != engine.StatusRunning {
			return err
		}
	}
	printLine(out, ctrl.State())

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case n := <-events:
			switch n.Kind {
			case engine.NotifyState:
				printLine(out, n.View)
			case engine.NotifyRecorderFailure:
				opts.log.Warn("session not recorded", "error", n.Error)
			case engine.NotifyAlarm:
				if ro.once {
					return nil
				}
			}
			if n.View.CycleComplete {
				fmt.Fprintln(out)
				color.New(color.FgCyan, color.Bold).Fprintln(out, "Cycle complete")
				return nil
			}
			if n.Kind == engine.NotifyState && n.View.Status == engine.StatusCompleted {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Block finished; run again to start the next one.")
				return nil
			}
		}
	}
}

// printLine redraws the single countdown line.
func printLine(out io.Writer, v engine.View) {
	if v.Block == nil {
		return
	}
	label := blockLabel(v.Block.Type)
	if v.SubjectName != "" {
		label += " " + v.SubjectName
	}
	fmt.Fprintf(out, "\r%s %d/%d %-24s %s ",
		statusColor(v.Status).Sprintf("%-9s", v.Status),
		v.CurrentIndex+1, v.TotalBlocks, label, formatClock(v.TimeLeftSeconds))
}
