package types

// Inbound frame types handled by the event reducer. Unknown types are
// logged and ignored so newer servers stay compatible.
const (
	EventChat             = "chat"
	EventSystem           = "system"
	EventTyping           = "typing"
	EventReactionUpdate   = "reaction_update"
	EventProjectSwitched  = "project_switched"
	EventKillSwitch       = "kill_switch"
	EventApprovalRequest  = "approval_request"
	EventApprovalResolved = "approval_resolved"
	EventApprovalExpired  = "approval_expired"
)

// ChatFrame is the outbound chat frame shape.
type ChatFrame struct {
	Type     string  `json:"type"`
	Channel  string  `json:"channel"`
	Content  string  `json:"content"`
	MsgType  MsgType `json:"msg_type"`
	ParentID *string `json:"parent_id"`
}

// SystemEvent carries a server-side notice to synthesize locally.
type SystemEvent struct {
	Content string `json:"content"`
}

// TypingEvent signals an agent is composing.
type TypingEvent struct {
	AgentID     string `json:"agent_id"`
	DisplayName string `json:"display_name"`
}

// ReactionUpdateEvent replaces one message's reaction summary.
type ReactionUpdateEvent struct {
	MessageID string          `json:"message_id"`
	Summary   ReactionSummary `json:"summary"`
}

// KillSwitchEvent demotes autonomy and permissions to safe defaults.
type KillSwitchEvent struct {
	AutonomyMode   AutonomyMode   `json:"autonomy_mode"`
	PermissionMode PermissionMode `json:"permission_mode"`
}

// ApprovalResolvedEvent removes a request from the approval queue.
type ApprovalResolvedEvent struct {
	ID       string `json:"id"`
	Approved *bool  `json:"approved,omitempty"`
}
