package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func addPersona(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Show or set how your companion sees you",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	addPersonaShow(cmd)
	addPersonaSet(cmd)

	topLevel.AddCommand(cmd)
}

func addPersonaShow(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current persona",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := newEnv()
			if err != nil {
				return err
			}
			fmt.Println(e.companion.Persona())
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}

func addPersonaSet(topLevel *cobra.Command) {
	var text string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the persona",
		Example: `
haven persona set a software engineer who journals to unwind
`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires persona text")
			}
			text = strings.Join(args, " ")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := newEnv()
			if err != nil {
				return err
			}
			return e.companion.SetPersona(text)
		},
	}

	topLevel.AddCommand(cmd)
}
