package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamavenir/office/internal/chat"
)

// NewChatCmd creates the chat command.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [channel]",
		Short: "Interactive chat mode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonMode(cmd) {
				return fmt.Errorf("--json not supported for interactive chat")
			}
			ctx, err := GetContext(cmd, chat.NotifyApproval)
			if err != nil {
				return err
			}
			defer ctx.Close()

			channelID := ctx.Channel
			if len(args) > 0 {
				channelID = args[0]
			}
			return chat.Run(chat.Options{
				Manager: ctx.Manager,
				Channel: channelID,
			})
		},
	}
	return cmd
}
