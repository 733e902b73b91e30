package chat

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/adamavenir/office/internal/types"
)

// NotifyApproval raises a desktop notification for a new approval
// request. Failures are ignored; the in-app panel is the source of
// truth.
func NotifyApproval(req types.ApprovalRequest) {
	title := "Approval needed"
	body := fmt.Sprintf("%s wants to run %s", req.AgentID, req.ToolType)
	if req.Command != "" {
		body = fmt.Sprintf("%s: %s", req.AgentID, req.Command)
	}
	_ = beeep.Notify(title, body, "")
}
