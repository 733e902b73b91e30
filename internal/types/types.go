package types

import "time"

// MsgType categorizes a message.
type MsgType string

const (
	MsgTypeMessage    MsgType = "message"
	MsgTypeSystem     MsgType = "system"
	MsgTypeReview     MsgType = "review"
	MsgTypeDecision   MsgType = "decision"
	MsgTypeToolResult MsgType = "tool_result"
)

// SenderUser and SenderSystem are the reserved sender ids. Any other
// sender id names an agent.
const (
	SenderUser   = "user"
	SenderSystem = "system"
)

// ChannelMain is the shared room. Direct channels use "dm:<agent-id>".
const ChannelMain = "main"

// Message is a single channel message. The id is server-assigned and
// opaque; once observed it never changes position in the channel.
type Message struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel,omitempty"`
	Sender    string    `json:"sender"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	MsgType   MsgType   `json:"msg_type"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionDetail holds per-emoji reaction data.
type ReactionDetail struct {
	Count  int      `json:"count"`
	Actors []string `json:"actors"`
}

// ReactionSummary maps emoji to reaction detail for one message.
// Summaries are replaced whole on every update, never merged.
type ReactionSummary map[string]ReactionDetail

// TypingAgent records that an agent is composing. Entries expire 30
// seconds after the last typing event from that agent.
type TypingAgent struct {
	AgentID     string    `json:"agent_id"`
	DisplayName string    `json:"display_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ApprovalRequest asks the user to permit a tool invocation.
type ApprovalRequest struct {
	ID           string         `json:"id"`
	ToolType     string         `json:"tool_type"`
	AgentID      string         `json:"agent_id"`
	Command      string         `json:"command"`
	Args         map[string]any `json:"args,omitempty"`
	Preview      string         `json:"preview,omitempty"`
	MissingScope string         `json:"missing_scope,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
}

// PermissionMode is either ask or auto.
type PermissionMode string

const (
	PermissionAsk  PermissionMode = "ask"
	PermissionAuto PermissionMode = "auto"
)

// PermissionPolicy controls whether tool calls need per-call approval.
// Auto with a past expiry behaves as ask.
type PermissionPolicy struct {
	Mode      PermissionMode `json:"mode"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}

// Effective returns the mode after applying expiry.
func (p PermissionPolicy) Effective(now time.Time) PermissionMode {
	if p.Mode == PermissionAuto && p.ExpiresAt != nil && !now.Before(*p.ExpiresAt) {
		return PermissionAsk
	}
	if p.Mode == "" {
		return PermissionAsk
	}
	return p.Mode
}

// AutonomyMode is an opaque label; only SAFE has client-side meaning.
type AutonomyMode string

const AutonomySafe AutonomyMode = "SAFE"

// ActiveProject is the project a channel currently operates on.
type ActiveProject struct {
	Project string `json:"project"`
	Branch  string `json:"branch"`
	Path    string `json:"path"`
}

// ProcessStatus is running or exited.
type ProcessStatus string

const (
	ProcessRunning ProcessStatus = "running"
	ProcessExited  ProcessStatus = "exited"
)

// ProcessInfo describes one managed process.
type ProcessInfo struct {
	ID      string        `json:"id"`
	PID     *int          `json:"pid,omitempty"`
	Port    *int          `json:"port,omitempty"`
	Name    string        `json:"name"`
	Command string        `json:"command"`
	Status  ProcessStatus `json:"status"`
}

// ProcessState summarizes the channel's managed processes.
type ProcessState struct {
	Running   int           `json:"running"`
	Total     int           `json:"total"`
	Processes []ProcessInfo `json:"processes"`
}

// Recount refreshes Running/Total from the process list.
func (p *ProcessState) Recount() {
	p.Total = len(p.Processes)
	p.Running = 0
	for _, proc := range p.Processes {
		if proc.Status == ProcessRunning {
			p.Running++
		}
	}
}

// CollabMode describes the channel's collaboration mode.
type CollabMode struct {
	Mode      string     `json:"mode"`
	Active    bool       `json:"active"`
	Goal      string     `json:"goal,omitempty"`
	Topic     string     `json:"topic,omitempty"`
	Issue     string     `json:"issue,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
}

// ConversationStatus reports whether the channel conversation is active.
type ConversationStatus struct {
	Active       bool `json:"active"`
	MessageCount int  `json:"message_count"`
}

// ChannelInfo identifies a channel in listings.
type ChannelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
