package command

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adamavenir/office/internal/channel"
	"github.com/adamavenir/office/internal/types"
)

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Send a message to a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, nil)
			if err != nil {
				return err
			}
			defer ctx.Close()

			parent, _ := cmd.Flags().GetString("parent")
			msgType, _ := cmd.Flags().GetString("type")
			paths, _ := cmd.Flags().GetStringArray("attach")

			opts := channel.SendOptions{MsgType: types.MsgType(msgType)}
			if parent != "" {
				opts.ParentID = &parent
			}

			var files []*os.File
			defer func() {
				for _, f := range files {
					f.Close()
				}
			}()
			for _, path := range paths {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				files = append(files, f)
				name := filepath.Base(path)
				contentType := mime.TypeByExtension(filepath.Ext(path))
				if contentType == "" {
					contentType = "application/octet-stream"
				}
				opts.Attachments = append(opts.Attachments, channel.Attachment{
					Name:        name,
					ContentType: contentType,
					Reader:      f,
				})
			}

			session := ctx.Manager.Session(ctx.Channel)
			session.Acquire()
			if err := session.Send(context.Background(), args[0], opts); err != nil {
				return err
			}
			// Shutdown drains the outbound queue before closing the
			// socket, so the frame is on the wire when we return.
			fmt.Fprintf(cmd.OutOrStdout(), "sent to #%s\n", ctx.Channel)
			return nil
		},
	}
	cmd.Flags().String("parent", "", "reply to a message id")
	cmd.Flags().String("type", "", "message type (default message)")
	cmd.Flags().StringArray("attach", nil, "attach a file (repeatable, max 8)")
	return cmd
}
