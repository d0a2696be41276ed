package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "run <task>",
		Short:     "Run one recurring task now",
		Long:      "Run one recurring task now. Tasks: league-rotation, streaks, lesson-review.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{taskLeagueRotation, taskStreaks, taskLessonReview},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.scheduler.Trigger(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task %s finished\n", args[0])
			return nil
		},
	}
}
