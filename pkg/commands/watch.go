package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/havenapp/haven/pkg/bus"
	"github.com/havenapp/haven/pkg/printers"
	"github.com/havenapp/haven/pkg/resync"
	"github.com/havenapp/haven/pkg/timeutil"
)

func addWatch(topLevel *cobra.Command) {
	every := timeutil.DefaultEvery

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch for state changes from other processes",
		Long: "Watch subscribes to the notification bus, observes the on-disk store " +
			"for writes made by other processes, and re-reads state on a fixed " +
			"cadence as a backstop. Changes are printed as they arrive.",
		Example: `
haven watch
haven watch --every 5s
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := newEnv()
			if err != nil {
				return err
			}

			interval, label, err := timeutil.ParseEvery(every)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events, err := e.kv.Watch(ctx)
			if err != nil {
				return err
			}
			e.bus.AttachWatcher(ctx, events, e.kv)

			pp := printers.PrettyPrint{}
			cancel := e.bus.SubscribeAll(func(c bus.Change) {
				pp.Change(c)
			})
			defer cancel()

			loop := resync.New(interval, e.log)
			loop.Register(func() {
				if _, err := e.milestones.Evaluate(e.tasks.Lifetime()); err != nil {
					e.log.Warn("milestone evaluation failed during resync", zap.Error(err))
				}
			})

			fmt.Printf("Watching %s (resync every %s). Ctrl-C to stop.\n", e.cfg.BasePath(), label)
			loop.Run(ctx)
			return nil
		},
	}

	cmd.Flags().StringVar(&every, "every", timeutil.DefaultEvery,
		"Resync cadence, for example 2s or 1m.")

	topLevel.AddCommand(cmd)
}
