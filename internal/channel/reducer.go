package channel

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/adamavenir/office/internal/types"
)

// reduce applies one inbound frame to the store. It is the only event
// path into channel state; frames arrive in order on the transport's
// read goroutine. Unknown event types are logged and skipped so newer
// servers stay compatible.
func (s *Session) reduce(eventType string, payload json.RawMessage) {
	now := s.clock.Now()
	handled := true
	switch eventType {
	case types.EventChat:
		s.applyChat(payload, now)
	case types.EventSystem:
		s.applySystem(payload, now)
	case types.EventTyping:
		s.applyTyping(payload, now)
	case types.EventReactionUpdate:
		s.applyReactionUpdate(payload)
	case types.EventProjectSwitched:
		s.applyProjectSwitched(payload)
	case types.EventKillSwitch:
		s.applyKillSwitch(payload)
	case types.EventApprovalRequest:
		s.applyApprovalRequest(payload)
	case types.EventApprovalResolved, types.EventApprovalExpired:
		s.applyApprovalRemoved(payload, now)
	default:
		handled = false
		s.logf("ignoring event type %q", eventType)
	}
	if handled {
		s.store.NoteEvent(eventType, now)
		s.notify()
	}
}

func (s *Session) applyChat(payload json.RawMessage, now time.Time) {
	var msg types.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.logf("bad chat frame: %v", err)
		return
	}
	if msg.ID == "" {
		msg.ID = "local-" + uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if !s.store.AppendMessage(msg) {
		return
	}
	// A message from an agent clears its typing indicator at once.
	if msg.Sender != types.SenderUser && msg.Sender != types.SenderSystem {
		s.store.ClearTyping(msg.Sender)
	}
	s.cachePut(msg)
}

// applySystem synthesizes a local system message from a server notice.
// Synthesized messages get local ids and are not cached.
func (s *Session) applySystem(payload json.RawMessage, now time.Time) {
	var ev types.SystemEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.Content == "" {
		s.logf("bad system frame: %v", err)
		return
	}
	s.store.AppendMessage(types.Message{
		ID:        "local-" + uuid.NewString(),
		Channel:   s.channel,
		Sender:    types.SenderSystem,
		Content:   ev.Content,
		MsgType:   types.MsgTypeSystem,
		CreatedAt: now,
	})
}

func (s *Session) applyTyping(payload json.RawMessage, now time.Time) {
	var ev types.TypingEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.AgentID == "" {
		return
	}
	name := ev.DisplayName
	if name == "" {
		name = ev.AgentID
	}
	s.store.UpsertTyping(ev.AgentID, name, now)
}

// applyReactionUpdate replaces the summary whole and marks the message
// loaded, superseding any fetch in flight for it.
func (s *Session) applyReactionUpdate(payload json.RawMessage) {
	var ev types.ReactionUpdateEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.MessageID == "" {
		return
	}
	s.applyReactionSummary(ev.MessageID, ev.Summary)
}

// applyProjectSwitched updates the active project and refreshes the
// autonomy mode for the new project in the background.
func (s *Session) applyProjectSwitched(payload json.RawMessage) {
	var p types.ActiveProject
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	if !s.store.SetProject(p) {
		return
	}
	s.mu.Lock()
	ctx, gen, active := s.loadCtx, s.gen, s.active
	s.mu.Unlock()
	if !active || ctx == nil {
		return
	}
	go func() {
		if err := s.refreshAutonomy(ctx, gen, p.Project); err != nil && !errors.Is(err, context.Canceled) {
			s.logf("autonomy %s: %v", p.Project, err)
		}
		s.notify()
	}()
}

// applyKillSwitch demotes autonomy and permissions. Missing fields fall
// back to the safe defaults.
func (s *Session) applyKillSwitch(payload json.RawMessage) {
	var ev types.KillSwitchEvent
	_ = json.Unmarshal(payload, &ev)
	mode := ev.AutonomyMode
	if mode == "" {
		mode = types.AutonomySafe
	}
	pm := ev.PermissionMode
	if pm == "" {
		pm = types.PermissionAsk
	}
	s.store.SetAutonomy(mode)
	s.store.SetPolicy(types.PermissionPolicy{Mode: pm})
}

func (s *Session) applyApprovalRequest(payload json.RawMessage) {
	var req types.ApprovalRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.ID == "" {
		s.logf("bad approval frame: %v", err)
		return
	}
	if !s.store.InsertApproval(req) {
		return
	}
	if s.onApproval != nil {
		go s.onApproval(req)
	}
}

// applyApprovalRemoved drops a request on approval_resolved or
// approval_expired. Requests already resolved or expired locally are
// gone by now, which makes the event a no-op.
func (s *Session) applyApprovalRemoved(payload json.RawMessage, now time.Time) {
	var ev types.ApprovalResolvedEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.ID == "" {
		return
	}
	s.store.RemoveApproval(ev.ID, now)
}
