package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func parseUserID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return id, nil
}

func newProfileCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <user-id>",
		Short: "Show a user's level history and daily experience",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			user, err := a.store.Users.GetByID(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to get user %d: %w", userID, err)
			}
			history, err := a.engine.History(cmd.Context(), userID)
			if err != nil {
				return err
			}

			loc := a.now().Location()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: level %d, %d XP, %d coins, streak %d\n",
				user.Username, user.Level, user.ExperiencePoints, user.Coins, user.Streak)
			fmt.Fprintf(out, "This week: %d XP\n", history.ThisWeek)
			for _, l := range history.Levels {
				fmt.Fprintf(out, "level %d reached %s\n", l.Level, l.AchievedAt.In(loc).Format(time.DateOnly))
			}
			for _, d := range history.Daily {
				fmt.Fprintf(out, "%s %d XP\n", d.Date.In(loc).Format(time.DateOnly), d.Points)
			}
			return nil
		},
	}
}
