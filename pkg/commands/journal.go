package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/havenapp/haven/pkg/journal"
	"github.com/havenapp/haven/pkg/printers"
)

func addJournal(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Work with journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	addJournalNew(cmd)
	addJournalList(cmd)
	addJournalRemove(cmd)

	topLevel.AddCommand(cmd)
}

func addJournalNew(topLevel *cobra.Command) {
	var title string
	var mood string
	var id string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Write a journal entry",
		Example: `
haven journal new --title "Monday" --mood calm slow morning, long walk, good coffee
`,
		Args: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if len(args) < 1 {
				return errors.New("requires entry content")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			e, err := newEnv()
			if err != nil {
				return err
			}

			if mood == "" && id == "" && isatty.IsTerminal(os.Stdin.Fd()) {
				picked, err := pickMood()
				if err != nil {
					return err
				}
				mood = picked
			}

			res, err := e.journal.Save(context.Background(), journal.Input{
				ID:      id,
				Title:   title,
				Content: strings.Join(args, " "),
				Mood:    journal.Mood(mood),
			})
			if err != nil {
				return err
			}
			if res.SummaryDegraded {
				fmt.Println("Saved. Summary unavailable right now; it was recorded as such.")
			}

			pp := printers.PrettyPrint{}
			pp.NewLine()
			pp.Title("Journal")
			pp.Entries(e.journal.List()...)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Entry title.")
	cmd.Flags().StringVarP(&mood, "mood", "m", "", "Mood: happy, sad, anxious, calm, tired, or grateful.")
	cmd.Flags().StringVar(&id, "id", "", "Entry id to edit in place.")
	_ = cmd.MarkFlagRequired("title")

	topLevel.AddCommand(cmd)
}

// pickMood runs an interactive mood selection, with a skip option.
func pickMood() (string, error) {
	const skip = "skip"
	items := []string{skip}
	for _, m := range journal.Moods() {
		items = append(items, fmt.Sprintf("%s %s", m.String(), m.Emoji()))
	}

	prompt := promptui.Select{
		Label: "How are you feeling",
		Items: items,
	}
	_, picked, err := prompt.Run()
	if err != nil {
		return "", err
	}
	if picked == skip {
		return "", nil
	}
	return strings.Fields(picked)[0], nil
}

func addJournalList(topLevel *cobra.Command) {
	showID := false

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List journal entries, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := newEnv()
			if err != nil {
				return err
			}

			entries := e.journal.List()
			pp := printers.PrettyPrint{ShowID: showID}
			pp.NewLine()
			pp.TitleWithCount("Journal", len(entries))
			pp.Entries(entries...)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showID, "show-ids", false, "Show entry ids.")

	topLevel.AddCommand(cmd)
}

func addJournalRemove(topLevel *cobra.Command) {
	var id string

	cmd := &cobra.Command{
		Use:     "rm",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a journal entry",
		Example: `
haven journal rm <entry id>
`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires an entry id")
			}
			id = strings.Join(args, " ")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := newEnv()
			if err != nil {
				return err
			}
			return e.journal.Delete(id)
		},
	}

	topLevel.AddCommand(cmd)
}
