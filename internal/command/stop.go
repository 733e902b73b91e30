package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStopCmd creates the stop command.
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the active conversation in the channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetContext(cmd, nil)
			if err != nil {
				return err
			}
			defer cc.Close()

			if err := cc.Client.StopConversation(cmd.Context(), cc.Channel); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stopped conversation in #%s\n", cc.Channel)
			return nil
		},
	}
}
