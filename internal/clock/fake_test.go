package clock

import (
	"testing"
	"time"
)

func TestFakeAfterFuncFiresInOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	fake := NewFake(base)

	var fired []string
	fake.AfterFunc(3*time.Second, func() { fired = append(fired, "b") })
	fake.AfterFunc(1*time.Second, func() { fired = append(fired, "a") })

	fake.Advance(5 * time.Second)

	if len(fired) != 2 || fired[0] != "a" || fired[1] != "b" {
		t.Fatalf("fired = %v, want [a b]", fired)
	}
	if got := fake.Now(); !got.Equal(base.Add(5 * time.Second)) {
		t.Errorf("now = %v", got)
	}
}

func TestFakeTimerStopPreventsFire(t *testing.T) {
	fake := NewFake(time.Unix(0, 0))
	fired := false
	timer := fake.AfterFunc(time.Second, func() { fired = true })
	if !timer.Stop() {
		t.Fatal("first Stop should report true")
	}
	if timer.Stop() {
		t.Fatal("second Stop should report false")
	}
	fake.Advance(2 * time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
}

func TestFakeTickerTicks(t *testing.T) {
	fake := NewFake(time.Unix(0, 0))
	ticker := fake.NewTicker(time.Second)
	defer ticker.Stop()

	fake.Advance(3 * time.Second)

	count := 0
	for {
		select {
		case <-ticker.C():
			count++
			continue
		default:
		}
		break
	}
	if count != 3 {
		t.Fatalf("ticks = %d, want 3", count)
	}
}
