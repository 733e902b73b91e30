package command

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamavenir/office/internal/types"
)

type channelStatus struct {
	Channel      string                   `json:"channel"`
	Conversation types.ConversationStatus `json:"conversation"`
	Project      types.ActiveProject      `json:"project"`
	Autonomy     types.AutonomyMode       `json:"autonomy"`
	Permissions  types.PermissionPolicy   `json:"permissions"`
	Processes    types.ProcessState       `json:"processes"`
	Collab       types.CollabMode         `json:"collab"`
}

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show channel status: conversation, project, autonomy, permissions, processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetContext(cmd, nil)
			if err != nil {
				return err
			}
			defer cc.Close()

			ctx := cmd.Context()
			status := channelStatus{Channel: cc.Channel}

			if status.Conversation, err = cc.Client.Conversation(ctx, cc.Channel); err != nil {
				return err
			}
			if status.Project, err = cc.Client.ActiveProject(ctx, cc.Channel); err != nil {
				return err
			}
			if status.Project.Project != "" {
				if status.Autonomy, err = cc.Client.AutonomyMode(ctx, status.Project.Project); err != nil {
					return err
				}
			}
			if status.Permissions, err = cc.Client.Permissions(ctx, cc.Channel); err != nil {
				return err
			}
			if status.Processes, err = cc.Client.Processes(ctx, cc.Channel); err != nil {
				return err
			}
			if status.Collab, err = cc.Client.CollabMode(ctx, cc.Channel); err != nil {
				return err
			}

			if jsonMode(cmd) {
				return writeJSON(cmd, status)
			}
			printStatus(cmd, status)
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, status channelStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "channel      #%s\n", status.Channel)

	active := "idle"
	if status.Conversation.Active {
		active = "active"
	}
	fmt.Fprintf(out, "conversation %s (%d messages)\n", active, status.Conversation.MessageCount)

	if status.Project.Project != "" {
		fmt.Fprintf(out, "project      %s@%s (%s)\n", status.Project.Project, status.Project.Branch, status.Project.Path)
		fmt.Fprintf(out, "autonomy     %s\n", status.Autonomy)
	}

	mode := status.Permissions.Effective(time.Now())
	if mode == types.PermissionAuto && status.Permissions.ExpiresAt != nil {
		fmt.Fprintf(out, "permissions  auto until %s\n", status.Permissions.ExpiresAt.Local().Format("15:04"))
	} else {
		fmt.Fprintf(out, "permissions  %s\n", mode)
	}

	fmt.Fprintf(out, "processes    %d running / %d total\n", status.Processes.Running, status.Processes.Total)
	for _, proc := range status.Processes.Processes {
		fmt.Fprintf(out, "             %s %s (%s)\n", proc.Status, proc.Name, proc.Command)
	}

	if status.Collab.Active {
		fmt.Fprintf(out, "collab       %s %s\n", status.Collab.Mode, status.Collab.Goal)
	}
}
