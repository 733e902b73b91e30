package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/adamavenir/office/internal/types"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		name string
		args int
	}{
		{"/approve", "approve", 0},
		{"/channel dm:builder", "channel", 1},
		{"/trust 30", "trust", 1},
		{"/", "", 0},
	}
	for _, tc := range cases {
		name, args := parseCommand(tc.in)
		if name != tc.name || len(args) != tc.args {
			t.Errorf("parseCommand(%q) = %q %v", tc.in, name, args)
		}
	}
}

func TestFormatCountdown(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0s"},
		{0, "0s"},
		{42 * time.Second, "42s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Minute, "2m00s"},
	}
	for _, tc := range cases {
		if got := formatCountdown(tc.d); got != tc.want {
			t.Errorf("formatCountdown(%s) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestFormatReactionsIsStable(t *testing.T) {
	summary := types.ReactionSummary{
		"👍": {Count: 2, Actors: []string{"user", "builder"}},
		"🎉": {Count: 1, Actors: []string{"scout"}},
	}
	first := formatReactions(summary)
	for i := 0; i < 10; i++ {
		if got := formatReactions(summary); got != first {
			t.Fatal("reaction order should be stable")
		}
	}
	if !strings.Contains(first, "👍 2") || !strings.Contains(first, "🎉 1") {
		t.Errorf("formatted = %q", first)
	}
}

func TestRenderTypingVerbAgreement(t *testing.T) {
	one := renderTyping([]types.TypingAgent{{AgentID: "builder", DisplayName: "Builder"}})
	if !strings.Contains(one, "Builder is typing") {
		t.Errorf("one = %q", one)
	}
	two := renderTyping([]types.TypingAgent{
		{AgentID: "builder", DisplayName: "Builder"},
		{AgentID: "scout", DisplayName: "Scout"},
	})
	if !strings.Contains(two, "Builder, Scout are typing") {
		t.Errorf("two = %q", two)
	}
}

func TestClampLines(t *testing.T) {
	text := "a\nb\nc\nd"
	if got := clampLines(text, 6); got != text {
		t.Errorf("short text changed: %q", got)
	}
	got := clampLines(text, 2)
	if got != "a\nb\n…" {
		t.Errorf("clamped = %q", got)
	}
}

func TestSnippetTruncates(t *testing.T) {
	if got := snippet("one\ntwo", 40); got != "one…" {
		t.Errorf("multiline snippet = %q", got)
	}
	long := strings.Repeat("x", 50)
	if got := snippet(long, 40); len(got) <= 40 && !strings.HasSuffix(got, "…") {
		t.Errorf("long snippet = %q", got)
	}
}

func TestHighlightFencesRespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	body := "before\n```go\npackage main\n```\nafter"
	if got := highlightFences(body); got != body {
		t.Errorf("NO_COLOR body changed: %q", got)
	}
	if got := highlightPreview("rm -rf /tmp/x", "bash"); got != "rm -rf /tmp/x" {
		t.Errorf("NO_COLOR preview changed: %q", got)
	}
}
