package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewKillSwitchCmd creates the kill-switch command.
func NewKillSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill-switch",
		Short: "Drop the channel to SAFE autonomy and ask-mode permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetContext(cmd, nil)
			if err != nil {
				return err
			}
			defer cc.Close()

			if err := cc.Client.KillSwitch(cmd.Context(), cc.Channel); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kill switch engaged for #%s\n", cc.Channel)
			return nil
		},
	}
}
