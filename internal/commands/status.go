package commands

import (
	"github.com/spf13/cobra"
)

func addStatus(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show where the cycle stands.",
		Example: `
cyclectl status
cyclectl status --json
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := opts.openController(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer ctrl.Close()

			view := ctrl.State()
			if opts.cfg.JSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			printView(cmd.OutOrStdout(), view)
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}
