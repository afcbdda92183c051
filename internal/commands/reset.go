package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"studycycle/backend/internal/engine"
)

func addReset(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:       "reset [block|subject|cycle]",
		Short:     "Restart the current block, the current subject or the whole cycle.",
		ValidArgs: []string{"block", "subject", "cycle"},
		Args:      cobra.ExactValidArgs(1),
		Example: `
cyclectl reset block
cyclectl reset cycle
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "block":
				return opts.apply(cmd, (*engine.Controller).ResetBlock)
			case "subject":
				return opts.apply(cmd, (*engine.Controller).ResetSubject)
			case "cycle":
				subjects, settings, err := ReadCycleFile(opts.cfg.CycleFile)
				if err != nil {
					return err
				}
				return opts.apply(cmd, func(ctrl *engine.Controller, ctx context.Context) error {
					return ctrl.ResetCycle(ctx, subjects, settings)
				})
			}
			return fmt.Errorf("unknown reset target %q", args[0])
		},
	}

	topLevel.AddCommand(cmd)
}
