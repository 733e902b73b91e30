package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/adamavenir/office/internal/types"
)

func openTest(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "office", "messages.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func cached(id, channel, content string, at time.Time) types.Message {
	return types.Message{ID: id, Channel: channel, Sender: "user", Content: content, MsgType: types.MsgTypeMessage, CreatedAt: at}
}

func TestPutAndMessagesRoundTrip(t *testing.T) {
	c := openTest(t)
	t0 := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	parent := "m1"
	msgs := []types.Message{
		cached("m1", "main", "first", t0),
		{ID: "m2", Channel: "main", Sender: "builder", ParentID: &parent, Content: "reply", MsgType: types.MsgTypeMessage, CreatedAt: t0.Add(time.Second)},
	}
	for _, m := range msgs {
		if err := c.Put("main", m); err != nil {
			t.Fatal(err)
		}
	}
	// duplicate put is ignored
	if err := c.Put("main", cached("m1", "main", "changed", t0)); err != nil {
		t.Fatal(err)
	}

	got, err := c.Messages("main", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "m1" || got[0].Content != "first" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].ParentID == nil || *got[1].ParentID != "m1" {
		t.Errorf("parent not preserved: %+v", got[1])
	}
	if !got[0].CreatedAt.Equal(t0) {
		t.Errorf("created_at = %s, want %s", got[0].CreatedAt, t0)
	}
}

func TestMessagesLimitKeepsNewest(t *testing.T) {
	c := openTest(t)
	t0 := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		m := cached(string(rune('a'+i)), "main", "x", t0.Add(time.Duration(i)*time.Second))
		if err := c.Put("main", m); err != nil {
			t.Fatal(err)
		}
	}
	got, err := c.Messages("main", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "c" || got[2].ID != "e" {
		ids := make([]string, len(got))
		for i, m := range got {
			ids[i] = m.ID
		}
		t.Errorf("ids = %v, want [c d e]", ids)
	}
}

func TestReplaceIsPerChannel(t *testing.T) {
	c := openTest(t)
	t0 := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	if err := c.Put("main", cached("m1", "main", "old", t0)); err != nil {
		t.Fatal(err)
	}
	if err := c.Put("dm:builder", cached("d1", "dm:builder", "dm", t0)); err != nil {
		t.Fatal(err)
	}

	if err := c.Replace("main", []types.Message{cached("m2", "main", "new", t0.Add(time.Minute))}); err != nil {
		t.Fatal(err)
	}

	got, err := c.Messages("main", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "m2" {
		t.Errorf("main after replace = %+v", got)
	}
	dm, err := c.Messages("dm:builder", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(dm) != 1 {
		t.Error("replace touched another channel")
	}
}

func TestClear(t *testing.T) {
	c := openTest(t)
	t0 := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	if err := c.Put("main", cached("m1", "main", "x", t0)); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear("main"); err != nil {
		t.Fatal(err)
	}
	got, err := c.Messages("main", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("messages after clear = %d", len(got))
	}
}
