package types

import (
	"testing"
	"time"
)

func TestPermissionPolicyEffective(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	cases := []struct {
		name   string
		policy PermissionPolicy
		want   PermissionMode
	}{
		{"ask stays ask", PermissionPolicy{Mode: PermissionAsk}, PermissionAsk},
		{"auto without expiry", PermissionPolicy{Mode: PermissionAuto}, PermissionAuto},
		{"auto before expiry", PermissionPolicy{Mode: PermissionAuto, ExpiresAt: &future}, PermissionAuto},
		{"auto past expiry reads as ask", PermissionPolicy{Mode: PermissionAuto, ExpiresAt: &past}, PermissionAsk},
		{"zero value reads as ask", PermissionPolicy{}, PermissionAsk},
	}

	for _, tc := range cases {
		if got := tc.policy.Effective(now); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestProcessStateRecount(t *testing.T) {
	state := ProcessState{Processes: []ProcessInfo{
		{ID: "p1", Status: ProcessRunning},
		{ID: "p2", Status: ProcessExited},
		{ID: "p3", Status: ProcessRunning},
	}}
	state.Recount()
	if state.Total != 3 {
		t.Errorf("total = %d, want 3", state.Total)
	}
	if state.Running != 2 {
		t.Errorf("running = %d, want 2", state.Running)
	}
}
