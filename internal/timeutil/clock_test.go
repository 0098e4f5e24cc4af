package timeutil

import (
	"testing"
	"time"
)

func TestMockClockAfter(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	ch := c.After(2 * time.Second)
	c.Advance(time.Second)
	select {
	case <-ch:
		t.Fatal("After fired early")
	default:
	}
	if c.Waiters() != 1 {
		t.Fatalf("Waiters() = %d, want 1", c.Waiters())
	}

	c.Advance(time.Second)
	select {
	case got := <-ch:
		if !got.Equal(start.Add(2 * time.Second)) {
			t.Errorf("After delivered %v", got)
		}
	default:
		t.Fatal("After did not fire at deadline")
	}
	if c.Waiters() != 0 {
		t.Errorf("Waiters() = %d after firing", c.Waiters())
	}
}

func TestMockClockTicker(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	tk := c.NewTicker(100 * time.Millisecond)

	c.Advance(50 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticker fired before period")
	default:
	}

	c.Advance(300 * time.Millisecond)
	select {
	case <-tk.C():
	default:
		t.Fatal("ticker did not fire")
	}

	tk.Stop()
	c.Advance(time.Second)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestMockClockSince(t *testing.T) {
	start := time.Unix(100, 0)
	c := NewMockClock(start)
	c.Advance(6 * time.Second)
	if got := c.Since(start); got != 6*time.Second {
		t.Errorf("Since = %v, want 6s", got)
	}
	c.Set(start)
	if got := c.Since(start); got != 0 {
		t.Errorf("Since after Set = %v, want 0", got)
	}
}
