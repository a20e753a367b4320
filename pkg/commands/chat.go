package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/havenapp/haven/pkg/printers"
)

const defaultCompanion = "Aria"

func addChat(topLevel *cobra.Command) {
	companionName := defaultCompanion
	var message string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk with your companion",
		Example: `
haven chat how was my week?
haven chat --companion Sage what should I focus on?
`,
		Args: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			message = strings.Join(args, " ")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := newEnv()
			if err != nil {
				return err
			}

			pp := printers.PrettyPrint{}

			// Without a message, show the transcript.
			if message == "" {
				pp.NewLine()
				pp.Title(companionName)
				pp.Conversation(companionName, e.companion.History(companionName)...)
				return nil
			}

			res, err := e.companion.Send(context.Background(), companionName, message)
			if err != nil {
				return err
			}

			if !res.Update.Empty() {
				if _, err := e.milestones.Evaluate(e.tasks.Lifetime()); err != nil {
					return err
				}
			}

			pp.NewLine()
			pp.Conversation(companionName, res.Message)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&companionName, "companion", "c", defaultCompanion,
		"Companion to talk with.")

	addChatClear(cmd, &companionName)

	topLevel.AddCommand(cmd)
}

func addChatClear(topLevel *cobra.Command, companionName *string) {
	yes := false

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear a companion's conversation history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			if !yes {
				return errors.New("pass --yes to confirm; this cannot be undone")
			}

			e, err := newEnv()
			if err != nil {
				return err
			}
			if err := e.companion.ClearHistory(*companionName); err != nil {
				return err
			}
			fmt.Printf("Cleared conversation with %s.\n", *companionName)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm clearing the history.")

	topLevel.AddCommand(cmd)
}
