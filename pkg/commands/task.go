package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/havenapp/haven/pkg/printers"
)

func addTask(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Work with the task list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	addTaskAdd(cmd)
	addTaskDone(cmd)
	addTaskRemove(cmd)
	addTaskClear(cmd)
	addTaskList(cmd)

	topLevel.AddCommand(cmd)
}

func addTaskAdd(topLevel *cobra.Command) {
	var text string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		Example: `
haven task add buy groceries
`,
		Args: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if len(args) < 1 {
				return errors.New("requires a task")
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

			_, trimmed, err := e.tasks.Add(text)
			if err != nil {
				return err
			}

			pp := printers.PrettyPrint{}
			pp.Removals(trimmed...)
			pp.NewLine()
			pp.Title("Tasks")
			pp.Tasks(e.tasks.List()...)
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}

func addTaskDone(topLevel *cobra.Command) {
	var id string

	cmd := &cobra.Command{
		Use:     "done",
		Aliases: []string{"complete", "toggle"},
		Short:   "Toggle a task's completion",
		Example: `
haven task done <task id>
`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires a task id")
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

			task, err := e.tasks.Toggle(id)
			if err != nil {
				return err
			}

			if task.Completed {
				newly, err := e.milestones.Evaluate(e.tasks.Lifetime())
				if err != nil {
					return err
				}
				for _, def := range newly {
					fmt.Printf("Milestone achieved: %s %s\n", def.Title, def.Icon)
				}
			}

			pp := printers.PrettyPrint{}
			pp.NewLine()
			pp.Title("Tasks")
			pp.Tasks(e.tasks.List()...)
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}

func addTaskRemove(topLevel *cobra.Command) {
	var id string

	cmd := &cobra.Command{
		Use:     "rm",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a task",
		Example: `
haven task rm <task id>
`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires a task id")
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
			return e.tasks.Delete(id)
		},
	}

	topLevel.AddCommand(cmd)
}

func addTaskClear(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every completed task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := newEnv()
			if err != nil {
				return err
			}

			n, err := e.tasks.ClearCompleted()
			if err != nil {
				return err
			}
			switch n {
			case 1:
				fmt.Println("Cleared 1 completed task.")
			default:
				fmt.Printf("Cleared %d completed tasks.\n", n)
			}
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}

func addTaskList(topLevel *cobra.Command) {
	showID := false
	activeOnly := false

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := newEnv()
			if err != nil {
				return err
			}

			all := e.tasks.List()
			if activeOnly {
				all = e.tasks.Active()
			}

			pp := printers.PrettyPrint{ShowID: showID}
			pp.NewLine()
			pp.TitleWithCount("Tasks", len(all))
			pp.Tasks(all...)
			fmt.Printf("%d completed lifetime\n", e.tasks.Lifetime())
			return nil
		},
	}

	cmd.Flags().BoolVar(&showID, "show-ids", false, "Show task ids.")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Show only active tasks.")

	topLevel.AddCommand(cmd)
}
