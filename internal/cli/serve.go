package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the recurring league, streak and review tasks until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			a.scheduler.Start(ctx)
			a.log.Info("scheduler started", "tasks", a.scheduler.Tasks(), "timezone", a.cfg.Schedule.Timezone)

			<-ctx.Done()
			a.log.Info("shutting down scheduler...")
			a.scheduler.Stop()
			return nil
		},
	}
}
