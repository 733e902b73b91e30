package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent channel messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, nil)
			if err != nil {
				return err
			}
			defer ctx.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			msgs, err := ctx.Client.Messages(context.Background(), ctx.Channel, limit)
			if err != nil {
				// Server unreachable: fall back to the local cache.
				if ctx.Cache == nil {
					return err
				}
				cached, cacheErr := ctx.Cache.Messages(ctx.Channel, limit)
				if cacheErr != nil || len(cached) == 0 {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "server unreachable, showing cached messages: %v\n", err)
				msgs = cached
			}
			if jsonMode(cmd) {
				return writeJSON(cmd, msgs)
			}
			for _, m := range msgs {
				stamp := m.CreatedAt.Local().Format("2006-01-02 15:04")
				thread := ""
				if m.ParentID != nil && *m.ParentID != "" {
					thread = " ↳" + shortID(*m.ParentID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s%s [%s]\n%s\n\n", stamp, m.Sender, thread, shortID(m.ID), m.Content)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 50, "number of messages to fetch")
	return cmd
}
