// Package commands is the cobra command tree of cyclectl, a local study cycle
// timer that keeps its state on disk between runs.
package commands

import (
	"github.com/spf13/cobra"
)

func New() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "cyclectl",
		Short:         "Run a study cycle timer from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	opts.addFlags(cmd)

	addCommands(cmd, opts)
	return cmd
}

func addCommands(topLevel *cobra.Command, opts *rootOptions) {
	addPlan(topLevel, opts)
	addRun(topLevel, opts)
	addStatus(topLevel, opts)
	addControl(topLevel, opts)
	addReset(topLevel, opts)
	addVersion(topLevel)
}
