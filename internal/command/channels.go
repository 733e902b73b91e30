package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewChannelsCmd creates the channels command.
func NewChannelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List known channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetContext(cmd, nil)
			if err != nil {
				return err
			}
			defer cc.Close()

			channels, err := cc.Client.Channels(cmd.Context())
			if err != nil {
				return err
			}
			if jsonMode(cmd) {
				return writeJSON(cmd, channels)
			}
			for _, ch := range channels {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ch.ID, ch.Name)
			}
			return nil
		},
	}
}
