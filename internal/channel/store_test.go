package channel

import (
	"testing"
	"time"

	"github.com/adamavenir/office/internal/types"
)

func msg(id, sender, content string, at time.Time) types.Message {
	return types.Message{ID: id, Sender: sender, Content: content, MsgType: types.MsgTypeMessage, CreatedAt: at}
}

func reply(id, parent, sender string, at time.Time) types.Message {
	m := msg(id, sender, "re", at)
	m.ParentID = &parent
	return m
}

func TestAppendMessageIsIdempotent(t *testing.T) {
	s := NewStore("main")
	t0 := time.Unix(1000, 0)
	if !s.AppendMessage(msg("m1", "user", "hi", t0)) {
		t.Fatal("first append rejected")
	}
	if s.AppendMessage(msg("m1", "user", "hi again", t0)) {
		t.Error("duplicate id accepted")
	}
	snap := s.Snapshot(t0)
	if len(snap.Messages) != 1 || snap.Messages[0].Content != "hi" {
		t.Errorf("messages = %+v", snap.Messages)
	}
}

func TestReplaceMessagesDedupes(t *testing.T) {
	s := NewStore("main")
	t0 := time.Unix(1000, 0)
	s.ReplaceMessages([]types.Message{
		msg("a", "user", "1", t0),
		msg("b", "user", "2", t0),
		msg("a", "user", "dup", t0),
	})
	snap := s.Snapshot(t0)
	if len(snap.Messages) != 2 {
		t.Fatalf("len = %d, want 2", len(snap.Messages))
	}
	if snap.Messages[0].Content != "1" {
		t.Error("first occurrence should win")
	}
}

func TestTypingExpiry(t *testing.T) {
	s := NewStore("main")
	t0 := time.Unix(1000, 0)
	s.UpsertTyping("builder", "Builder", t0)
	s.UpsertTyping("scout", "Scout", t0.Add(10*time.Second))

	if got := len(s.Snapshot(t0.Add(29 * time.Second)).Typing); got != 2 {
		t.Fatalf("typing at 29s = %d, want 2", got)
	}
	// builder's 30s are up, scout's are not
	if snap := s.Snapshot(t0.Add(31 * time.Second)); len(snap.Typing) != 1 || snap.Typing[0].AgentID != "scout" {
		t.Fatalf("typing at 31s = %+v", snap.Typing)
	}

	if !s.PruneTyping(t0.Add(31 * time.Second)) {
		t.Error("prune should remove builder")
	}
	// fresh signal resets the window
	s.UpsertTyping("scout", "Scout", t0.Add(35*time.Second))
	if got := len(s.Snapshot(t0.Add(60 * time.Second)).Typing); got != 1 {
		t.Errorf("typing after refresh = %d, want 1", got)
	}
}

func TestApprovalQueueOrder(t *testing.T) {
	s := NewStore("main")
	t0 := time.Unix(1000, 0)
	s.InsertApproval(types.ApprovalRequest{ID: "b", CreatedAt: t0.Add(time.Second)})
	s.InsertApproval(types.ApprovalRequest{ID: "c", CreatedAt: t0})
	s.InsertApproval(types.ApprovalRequest{ID: "a", CreatedAt: t0})

	snap := s.Snapshot(t0)
	ids := []string{}
	for _, v := range snap.Approvals {
		ids = append(ids, v.ID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "c" || ids[2] != "b" {
		t.Fatalf("order = %v, want [a c b] (created_at, then id)", ids)
	}
	if snap.ActiveApproval == nil || snap.ActiveApproval.ID != "a" {
		t.Error("head should be active by default")
	}
}

func TestFocusedApprovalFallsBackToHead(t *testing.T) {
	s := NewStore("main")
	t0 := time.Unix(1000, 0)
	s.InsertApproval(types.ApprovalRequest{ID: "a", CreatedAt: t0})
	s.InsertApproval(types.ApprovalRequest{ID: "b", CreatedAt: t0.Add(time.Second)})

	if err := s.FocusApproval("b"); err != nil {
		t.Fatal(err)
	}
	if snap := s.Snapshot(t0); snap.ActiveApproval == nil || snap.ActiveApproval.ID != "b" {
		t.Fatal("focused request should be active")
	}
	if err := s.FocusApproval("nope"); err != ErrUnknownApproval {
		t.Errorf("focus unknown = %v, want ErrUnknownApproval", err)
	}

	s.RemoveApproval("b", t0)
	if snap := s.Snapshot(t0); snap.ActiveApproval == nil || snap.ActiveApproval.ID != "a" {
		t.Error("selection should fall back to head after focused request resolves")
	}
}

func TestReconcileKeepsLocalAndSkipsTombstones(t *testing.T) {
	s := NewStore("main")
	t0 := time.Unix(1000, 0)
	s.InsertApproval(types.ApprovalRequest{ID: "local", CreatedAt: t0.Add(2 * time.Second)})
	s.InsertApproval(types.ApprovalRequest{ID: "done", CreatedAt: t0})
	s.RemoveApproval("done", t0)

	server := []types.ApprovalRequest{
		{ID: "srv", CreatedAt: t0.Add(time.Second)},
		{ID: "done", CreatedAt: t0}, // stale, resolved locally moments ago
	}
	s.ReconcileApprovals(server, t0.Add(time.Second))

	snap := s.Snapshot(t0)
	ids := []string{}
	for _, v := range snap.Approvals {
		ids = append(ids, v.ID)
	}
	if len(ids) != 2 || ids[0] != "srv" || ids[1] != "local" {
		t.Fatalf("merged = %v, want [srv local]", ids)
	}
}

func TestExpireActiveApproval(t *testing.T) {
	s := NewStore("main")
	t0 := time.Unix(1000, 0)
	s.InsertApproval(types.ApprovalRequest{ID: "a", CreatedAt: t0, ExpiresAt: t0.Add(10 * time.Second)})
	s.InsertApproval(types.ApprovalRequest{ID: "b", CreatedAt: t0.Add(time.Second), ExpiresAt: t0.Add(time.Hour)})

	if _, ok := s.ExpireActiveApproval(t0.Add(9 * time.Second)); ok {
		t.Fatal("expired too early")
	}
	req, ok := s.ExpireActiveApproval(t0.Add(10 * time.Second))
	if !ok || req.ID != "a" {
		t.Fatalf("expired = %+v ok=%v", req, ok)
	}
	if snap := s.Snapshot(t0); snap.ActiveApproval == nil || snap.ActiveApproval.ID != "b" {
		t.Error("next request should become active")
	}
}

func TestScopeCoverage(t *testing.T) {
	now := time.Unix(1000, 0)
	grants := []scopeGrant{
		{Pattern: "fs:write:*", ExpiresAt: now.Add(time.Hour)},
		{Pattern: "net:fetch", ExpiresAt: now.Add(-time.Minute)}, // expired
	}
	cases := []struct {
		scope string
		want  bool
	}{
		{"fs:write:main.go", true},
		{"fs:write:deep", true},
		{"fs:read:main.go", false},
		{"net:fetch", false},
	}
	for _, tc := range cases {
		if got := scopeCovered(grants, tc.scope, now); got != tc.want {
			t.Errorf("scopeCovered(%q) = %v, want %v", tc.scope, got, tc.want)
		}
	}
}

func TestThreadRootStopsAtMissingParent(t *testing.T) {
	s := NewStore("main")
	t0 := time.Unix(1000, 0)
	s.AppendMessage(msg("root", "user", "q", t0))
	s.AppendMessage(reply("r1", "root", "builder", t0.Add(time.Second)))
	s.AppendMessage(reply("r2", "r1", "user", t0.Add(2*time.Second)))
	s.AppendMessage(reply("orphan", "gone", "builder", t0.Add(3*time.Second)))

	if root, trunc := s.ThreadRoot("r2"); root != "root" || trunc {
		t.Errorf("ThreadRoot(r2) = %q trunc=%v", root, trunc)
	}
	if root, trunc := s.ThreadRoot("orphan"); root != "orphan" || !trunc {
		t.Errorf("ThreadRoot(orphan) = %q trunc=%v, want orphan true", root, trunc)
	}

	thread := s.Thread("root")
	if len(thread) != 3 || thread[0].ID != "root" || thread[2].ID != "r2" {
		t.Errorf("Thread(root) ids = %v", threadIDs(thread))
	}
}

func TestThreadCycleDoesNotLoop(t *testing.T) {
	s := NewStore("main")
	t0 := time.Unix(1000, 0)
	// bad server data: a <-> b
	s.AppendMessage(reply("a", "b", "x", t0))
	s.AppendMessage(reply("b", "a", "y", t0.Add(time.Second)))

	if _, trunc := s.ThreadRoot("a"); !trunc {
		t.Error("cycle should report truncation")
	}
	if got := s.Thread("a"); len(got) != 2 {
		t.Errorf("Thread in cycle = %v", threadIDs(got))
	}
}

func threadIDs(msgs []types.Message) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}
