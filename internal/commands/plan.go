package commands

import (
	"github.com/spf13/cobra"

	"studycycle/backend/internal/plan"
)

func addPlan(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the blocks of the cycle described by the cycle file.",
		Example: `
cyclectl plan -f ./cycle.yaml
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subjects, settings, err := ReadCycleFile(opts.cfg.CycleFile)
			if err != nil {
				return err
			}
			blocks := plan.Build(subjects, settings)
			if opts.cfg.JSON {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"blocks":       blocks,
					"totalSeconds": plan.TotalSeconds(blocks),
					"fingerprint":  plan.Fingerprint(blocks),
				})
			}
			printPlan(cmd.OutOrStdout(), blocks, subjects, -1)
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}
