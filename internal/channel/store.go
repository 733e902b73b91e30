// Package channel holds the live state of one channel: message timeline,
// typing indicators, reaction summaries, approval queue, and channel
// status. A Session wires the store to the transport, the REST client,
// and the poll loop; the store itself is a plain mutex-guarded value.
package channel

import (
	"sort"
	"sync"
	"time"

	"github.com/adamavenir/office/internal/transport"
	"github.com/adamavenir/office/internal/types"
)

const (
	typingTTL = 30 * time.Second

	// Recently resolved approval ids are skipped during poll
	// reconciliation so a stale server list cannot resurrect them.
	approvalTombstoneTTL = 30 * time.Second
)

// scopeGrant is a permission scope granted locally during this session.
type scopeGrant struct {
	Pattern   string
	ExpiresAt time.Time
}

// Store is the mutable state of one channel. All access is through
// methods; writes happen from the reducer, the poll loop, and user
// actions, reads through Snapshot.
type Store struct {
	mu      sync.RWMutex
	channel string

	messages []types.Message
	byID     map[string]int

	reactions map[string]types.ReactionSummary
	typing    map[string]types.TypingAgent

	approvals []types.ApprovalRequest
	focused   string
	removed   map[string]time.Time

	grants []scopeGrant

	policy       types.PermissionPolicy
	autonomy     types.AutonomyMode
	project      types.ActiveProject
	processes    types.ProcessState
	collab       types.CollabMode
	conversation types.ConversationStatus

	lastEventType string
	lastEventAt   time.Time
}

// NewStore returns an empty store for the given channel.
func NewStore(channel string) *Store {
	return &Store{
		channel:   channel,
		byID:      make(map[string]int),
		reactions: make(map[string]types.ReactionSummary),
		typing:    make(map[string]types.TypingAgent),
		removed:   make(map[string]time.Time),
	}
}

// Channel returns the channel id this store tracks.
func (s *Store) Channel() string { return s.channel }

// AppendMessage adds a message to the timeline. Messages already seen
// (same id) are dropped, which makes replayed chat events idempotent.
func (s *Store) AppendMessage(msg types.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[msg.ID]; ok {
		return false
	}
	s.byID[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
	return true
}

// ReplaceMessages swaps the whole timeline, deduping by id and keeping
// the first occurrence. Used by the history loader.
func (s *Store) ReplaceMessages(msgs []types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = s.messages[:0]
	s.byID = make(map[string]int, len(msgs))
	for _, m := range msgs {
		if _, ok := s.byID[m.ID]; ok {
			continue
		}
		s.byID[m.ID] = len(s.messages)
		s.messages = append(s.messages, m)
	}
}

// ClearMessages empties the timeline and reaction summaries.
func (s *Store) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.byID = make(map[string]int)
	s.reactions = make(map[string]types.ReactionSummary)
}

// Message looks up one message by id.
func (s *Store) Message(id string) (types.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return types.Message{}, false
	}
	return s.messages[i], true
}

// SetReaction replaces one message's reaction summary whole.
func (s *Store) SetReaction(messageID string, summary types.ReactionSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reactions[messageID] = summary
}

// Reaction returns the known summary for a message, if any.
func (s *Store) Reaction(messageID string) (types.ReactionSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.reactions[messageID]
	return sum, ok
}

// UpsertTyping records a typing signal; the entry expires typingTTL
// after the most recent signal from that agent.
func (s *Store) UpsertTyping(agentID, displayName string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing[agentID] = types.TypingAgent{
		AgentID:     agentID,
		DisplayName: displayName,
		ExpiresAt:   now.Add(typingTTL),
	}
}

// ClearTyping drops the typing entry for one agent. A chat message from
// an agent clears its indicator immediately.
func (s *Store) ClearTyping(agentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.typing[agentID]; !ok {
		return false
	}
	delete(s.typing, agentID)
	return true
}

// PruneTyping removes expired typing entries. Returns true if anything
// was removed.
func (s *Store) PruneTyping(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for id, t := range s.typing {
		if !now.Before(t.ExpiresAt) {
			delete(s.typing, id)
			changed = true
		}
	}
	return changed
}

// InsertApproval adds a request to the queue in (created_at, id) order.
// Duplicate ids are ignored.
func (s *Store) InsertApproval(req types.ApprovalRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertApprovalLocked(req)
}

func (s *Store) insertApprovalLocked(req types.ApprovalRequest) bool {
	for _, have := range s.approvals {
		if have.ID == req.ID {
			return false
		}
	}
	s.approvals = append(s.approvals, req)
	sortApprovals(s.approvals)
	return true
}

func sortApprovals(reqs []types.ApprovalRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if !reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
		}
		return reqs[i].ID < reqs[j].ID
	})
}

// RemoveApproval drops a request from the queue and remembers the id
// briefly so poll reconciliation cannot bring it back. Clearing the
// focused request falls selection back to the queue head.
func (s *Store) RemoveApproval(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, req := range s.approvals {
		if req.ID != id {
			continue
		}
		s.approvals = append(s.approvals[:i], s.approvals[i+1:]...)
		s.removed[id] = now
		if s.focused == id {
			s.focused = ""
		}
		return true
	}
	return false
}

// ReconcileApprovals merges the server's pending list with the local
// queue. The server list is authoritative for request contents; local
// entries not yet visible server-side are kept.
func (s *Store) ReconcileApprovals(server []types.ApprovalRequest, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, at := range s.removed {
		if now.Sub(at) > approvalTombstoneTTL {
			delete(s.removed, id)
		}
	}

	merged := make([]types.ApprovalRequest, 0, len(server)+len(s.approvals))
	seen := make(map[string]bool, len(server))
	for _, req := range server {
		if _, tomb := s.removed[req.ID]; tomb {
			continue
		}
		merged = append(merged, req)
		seen[req.ID] = true
	}
	for _, req := range s.approvals {
		if !seen[req.ID] {
			merged = append(merged, req)
			seen[req.ID] = true
		}
	}
	sortApprovals(merged)

	changed := len(merged) != len(s.approvals)
	if !changed {
		for i := range merged {
			if merged[i].ID != s.approvals[i].ID {
				changed = true
				break
			}
		}
	}
	s.approvals = merged
	if s.focused != "" && !seen[s.focused] {
		s.focused = ""
		changed = true
	}
	return changed
}

// FocusApproval pins the active request to a specific queued id.
func (s *Store) FocusApproval(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.approvals {
		if req.ID == id {
			s.focused = id
			return nil
		}
	}
	return ErrUnknownApproval
}

// ExpireActiveApproval drops the active request once its deadline has
// passed. The expiry is local; no server call is made, and a later
// resolved or expired event for the same id is a no-op.
func (s *Store) ExpireActiveApproval(now time.Time) (types.ApprovalRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.activeApprovalLocked()
	if !ok || req.ExpiresAt.IsZero() || now.Before(req.ExpiresAt) {
		return types.ApprovalRequest{}, false
	}
	for i := range s.approvals {
		if s.approvals[i].ID == req.ID {
			s.approvals = append(s.approvals[:i], s.approvals[i+1:]...)
			break
		}
	}
	s.removed[req.ID] = now
	if s.focused == req.ID {
		s.focused = ""
	}
	return req, true
}

// Approval looks up one queued request by id.
func (s *Store) Approval(id string) (types.ApprovalRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, req := range s.approvals {
		if req.ID == id {
			return req, true
		}
	}
	return types.ApprovalRequest{}, false
}

func (s *Store) activeApprovalLocked() (types.ApprovalRequest, bool) {
	if s.focused != "" {
		for _, req := range s.approvals {
			if req.ID == s.focused {
				return req, true
			}
		}
	}
	if len(s.approvals) > 0 {
		return s.approvals[0], true
	}
	return types.ApprovalRequest{}, false
}

// AddGrant records a locally granted scope pattern.
func (s *Store) AddGrant(pattern string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants = append(s.grants, scopeGrant{Pattern: pattern, ExpiresAt: expiresAt})
}

// ScopeCovered reports whether a scope is covered by an unexpired grant.
func (s *Store) ScopeCovered(scope string, now time.Time) bool {
	if scope == "" {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scopeCovered(s.grants, scope, now)
}

// SetPolicy replaces the permission policy.
func (s *Store) SetPolicy(p types.PermissionPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = p
}

// SetAutonomy replaces the autonomy mode label.
func (s *Store) SetAutonomy(mode types.AutonomyMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autonomy = mode
}

// SetProject replaces the active project. Returns true when the project
// name changed, which triggers an autonomy refresh.
func (s *Store) SetProject(p types.ActiveProject) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.project.Project != p.Project
	s.project = p
	return changed
}

// Project returns the active project.
func (s *Store) Project() types.ActiveProject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project
}

// SetProcesses replaces the managed process summary.
func (s *Store) SetProcesses(p types.ProcessState) {
	p.Recount()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processes = p
}

// SetCollab replaces the collaboration mode.
func (s *Store) SetCollab(c types.CollabMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collab = c
}

// SetConversation replaces the conversation status.
func (s *Store) SetConversation(c types.ConversationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversation = c
}

// NoteEvent records the most recent handled event for diagnostics.
func (s *Store) NoteEvent(eventType string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEventType = eventType
	s.lastEventAt = at
}

// ApprovalView is a queued request annotated for display.
type ApprovalView struct {
	types.ApprovalRequest
	Active       bool
	Remaining    time.Duration
	ScopeCovered bool
}

// ApprovalCount reports how many requests are queued.
func (s *Store) ApprovalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.approvals)
}

// Snapshot is an immutable copy of channel state for rendering.
// ConnState is filled in by the session, not the store.
type Snapshot struct {
	Channel   string
	ConnState transport.State
	Messages  []types.Message
	Typing    []types.TypingAgent

	Reactions map[string]types.ReactionSummary

	Approvals      []ApprovalView
	ActiveApproval *ApprovalView

	Policy        types.PermissionPolicy
	EffectiveMode types.PermissionMode
	Autonomy      types.AutonomyMode
	Project       types.ActiveProject
	Processes     types.ProcessState
	Collab        types.CollabMode
	Conversation  types.ConversationStatus

	LastEventType string
	LastEventAt   time.Time
}

// Snapshot copies the current state. Typing entries already past expiry
// are omitted even if the prune tick has not fired yet.
func (s *Store) Snapshot(now time.Time) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Channel:       s.channel,
		Messages:      append([]types.Message(nil), s.messages...),
		Policy:        s.policy,
		EffectiveMode: s.policy.Effective(now),
		Autonomy:      s.autonomy,
		Project:       s.project,
		Processes:     s.processes,
		Collab:        s.collab,
		Conversation:  s.conversation,
		LastEventType: s.lastEventType,
		LastEventAt:   s.lastEventAt,
	}

	snap.Reactions = make(map[string]types.ReactionSummary, len(s.reactions))
	for id, sum := range s.reactions {
		snap.Reactions[id] = sum
	}

	for _, t := range s.typing {
		if now.Before(t.ExpiresAt) {
			snap.Typing = append(snap.Typing, t)
		}
	}
	sort.Slice(snap.Typing, func(i, j int) bool {
		return snap.Typing[i].AgentID < snap.Typing[j].AgentID
	})

	active, hasActive := s.activeApprovalLocked()
	for _, req := range s.approvals {
		view := ApprovalView{
			ApprovalRequest: req,
			Active:          hasActive && req.ID == active.ID,
			ScopeCovered:    req.MissingScope == "" || scopeCovered(s.grants, req.MissingScope, now),
		}
		if !req.ExpiresAt.IsZero() {
			view.Remaining = req.ExpiresAt.Sub(now)
			if view.Remaining < 0 {
				view.Remaining = 0
			}
		}
		snap.Approvals = append(snap.Approvals, view)
		if view.Active {
			v := view
			snap.ActiveApproval = &v
		}
	}
	return snap
}
