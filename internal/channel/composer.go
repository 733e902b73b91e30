package channel

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/adamavenir/office/internal/api"
	"github.com/adamavenir/office/internal/types"
)

// MaxAttachments caps attachments per message.
const MaxAttachments = 8

// Attachment is one file to upload alongside a message.
type Attachment struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// SendOptions adjust an outgoing message.
type SendOptions struct {
	MsgType     types.MsgType
	ParentID    *string
	Attachments []Attachment
}

// Send uploads attachments sequentially, composes the final content,
// and queues the chat frame on the wire. An upload failure aborts the
// send before anything reaches the channel, so the caller can fix the
// file and retry with the text intact. Frames queue while the socket is
// down and flush in order on reconnect.
func (s *Session) Send(ctx context.Context, text string, opts SendOptions) error {
	text = strings.TrimSpace(text)
	if text == "" && len(opts.Attachments) == 0 {
		return ErrEmptyMessage
	}
	if len(opts.Attachments) > MaxAttachments {
		return ErrTooManyAttachments
	}

	var uploaded []api.UploadedFile
	for _, att := range opts.Attachments {
		f, err := s.api.UploadFile(ctx, att.Name, att.ContentType, att.Reader)
		if err != nil {
			return &UploadError{Name: att.Name, Err: err}
		}
		uploaded = append(uploaded, f)
	}

	msgType := opts.MsgType
	if msgType == "" {
		msgType = types.MsgTypeMessage
	}
	frame := types.ChatFrame{
		Type:     types.EventChat,
		Channel:  s.channel,
		Content:  composeContent(text, uploaded),
		MsgType:  msgType,
		ParentID: opts.ParentID,
	}

	s.mu.Lock()
	wire := s.wire
	s.mu.Unlock()
	if wire == nil {
		return ErrInactive
	}
	return wire.Send(frame)
}

// composeContent appends an attachment section to the message text.
// Images embed as markdown images; other files link with their size.
func composeContent(text string, files []api.UploadedFile) string {
	if len(files) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	if text != "" {
		b.WriteString("\n\n")
	}
	b.WriteString("Attachments:")
	for _, f := range files {
		name := f.OriginalName
		if name == "" {
			name = f.FileName
		}
		b.WriteString("\n")
		if strings.HasPrefix(f.ContentType, "image/") {
			fmt.Fprintf(&b, "![%s](%s)", name, f.URL)
		} else {
			fmt.Fprintf(&b, "[%s](%s) (%s)", name, f.URL, humanize.Bytes(uint64(f.Size)))
		}
	}
	return b.String()
}
