package commands

import (
	"context"

	"github.com/spf13/cobra"

	"studycycle/backend/internal/engine"
)

type controlCommand struct {
	use     string
	short   string
	example string
	do      func(*engine.Controller, context.Context) error
}

// addControl registers the one-shot commands that change the saved cycle and
// print the resulting state.
func addControl(topLevel *cobra.Command, opts *rootOptions) {
	for _, c := range []controlCommand{
		{use: "pause", short: "Pause the running block.", example: "cyclectl pause", do: (*engine.Controller).Pause},
		{use: "skip", short: "Finish the current block early and credit it in full.", example: "cyclectl skip", do: (*engine.Controller).Skip},
		{use: "previous", short: "Undo the last finished block.", example: "cyclectl previous", do: (*engine.Controller).Previous},
	} {
		topLevel.AddCommand(newControlCommand(c, opts))
	}
}

func newControlCommand(c controlCommand, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     c.use,
		Short:   c.short,
		Example: "\n" + c.example + "\n",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.apply(cmd, c.do)
		},
	}
}

func (o *rootOptions) apply(cmd *cobra.Command, do func(*engine.Controller, context.Context) error) error {
	ctrl, err := o.openController(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := do(ctrl, cmd.Context()); err != nil {
		return err
	}
	if o.cfg.JSON {
		return writeJSON(cmd.OutOrStdout(), ctrl.State())
	}
	printView(cmd.OutOrStdout(), ctrl.State())
	return nil
}
