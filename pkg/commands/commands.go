package commands

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "haven",
		Short: base.Wrap80("Journaling with an AI companion and a gamified task list, on the command line."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging.")

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addJournal(topLevel)
	addTask(topLevel)
	addChat(topLevel)
	addMilestones(topLevel)
	addPersona(topLevel)
	addWatch(topLevel)
	addVersion(topLevel)
}
