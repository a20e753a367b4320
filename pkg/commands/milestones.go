package commands

import (
	"github.com/spf13/cobra"

	"github.com/havenapp/haven/pkg/printers"
)

func addMilestones(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "milestones",
		Short: "Show achievement progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := newEnv()
			if err != nil {
				return err
			}

			lifetime := e.tasks.Lifetime()
			// Catch up on anything earned outside this process.
			if _, err := e.milestones.Evaluate(lifetime); err != nil {
				return err
			}

			pp := printers.PrettyPrint{}
			pp.NewLine()
			pp.Milestones(e.milestones.Statuses(), e.milestones.NextProgress(lifetime))
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}
