package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newInboxCmd(configPath *string) *cobra.Command {
	var (
		unread  bool
		readID  int64
		readAll bool
	)
	cmd := &cobra.Command{
		Use:   "inbox <user-id>",
		Short: "List a user's notifications or mark them read",
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

			ctx := cmd.Context()
			switch {
			case readAll:
				if err := a.inbox.MarkAllRead(ctx, userID); err != nil {
					return err
				}
			case readID > 0:
				if err := a.inbox.MarkRead(ctx, userID, readID); err != nil {
					return fmt.Errorf("failed to mark notification %d read: %w", readID, err)
				}
			}

			notes, err := a.inbox.List(ctx, userID, unread)
			if err != nil {
				return err
			}
			loc := a.now().Location()
			out := cmd.OutOrStdout()
			for _, n := range notes {
				mark := " "
				if !n.Read {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %d %s [%s] %s\n", mark, n.ID, n.CreatedAt.In(loc).Format(time.DateTime), n.Importance, n.Message)
			}
			fmt.Fprintf(out, "%d notifications\n", len(notes))
			return nil
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "list unread notifications only")
	cmd.Flags().Int64Var(&readID, "read", 0, "mark one notification read before listing")
	cmd.Flags().BoolVar(&readAll, "read-all", false, "mark every notification read before listing")
	cmd.MarkFlagsMutuallyExclusive("read", "read-all")
	return cmd
}
