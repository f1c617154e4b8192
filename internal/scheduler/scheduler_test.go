package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTicker_FiresUntilCancelled(t *testing.T) {
	var ticks atomic.Int32
	fired := make(chan struct{}, 16)

	s := NewTicker()
	h := s.Every(5*time.Millisecond, func(*Handle) {
		ticks.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	for i := 0; i < 3; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d did not fire", i)
		}
	}

	s.Cancel(h)
	if !h.Cancelled() {
		t.Fatal("handle should report cancelled")
	}

	// Allow a tick already in flight to land, then make sure the count settles.
	time.Sleep(20 * time.Millisecond)
	settled := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if got := ticks.Load(); got != settled {
		t.Errorf("ticks kept firing after cancel: %d -> %d", settled, got)
	}
}

func TestTicker_CancelNilIsSafe(t *testing.T) {
	NewTicker().Cancel(nil)
}

func TestHandle_UniqueIDs(t *testing.T) {
	s := NewManual()
	a := s.Every(100*time.Millisecond, func(*Handle) {})
	b := s.Every(100*time.Millisecond, func(*Handle) {})
	if a.ID() == b.ID() {
		t.Errorf("handles share id %d", a.ID())
	}
	if a.Interval() != 100*time.Millisecond {
		t.Errorf("Interval() = %v", a.Interval())
	}
}

func TestManual_TickAndCancel(t *testing.T) {
	s := NewManual()
	count := 0
	h := s.Every(100*time.Millisecond, func(*Handle) { count++ })

	s.Tick(4)
	if count != 4 {
		t.Fatalf("count = %d, want 4", count)
	}
	if s.Active() != 1 {
		t.Fatalf("Active() = %d, want 1", s.Active())
	}

	s.Cancel(h)
	s.Tick(3)
	if count != 4 {
		t.Errorf("cancelled task fired: count = %d", count)
	}
	if s.Active() != 0 {
		t.Errorf("Active() = %d, want 0", s.Active())
	}
}

func TestManual_FireCancelled(t *testing.T) {
	s := NewManual()
	var seen *Handle
	h := s.Every(time.Second, func(got *Handle) { seen = got })
	s.Cancel(h)

	s.Fire(h)
	if seen != h {
		t.Fatal("Fire should deliver the late tick with its own handle")
	}
	if !seen.Cancelled() {
		t.Error("late tick handle should be cancelled")
	}
}

func TestManual_CancelledTasksAreReleased(t *testing.T) {
	s := NewManual()
	calls := 0
	h := s.Every(time.Second, func(*Handle) { calls++ })
	s.Cancel(h)

	s.Fire(h)
	s.Fire(h)
	if calls != 1 {
		t.Errorf("calls = %d, want a single late tick", calls)
	}
	if len(s.late) != 0 {
		t.Errorf("late = %d, want the fired task released", len(s.late))
	}

	for i := 0; i < 3*maxLate; i++ {
		s.Cancel(s.Every(time.Second, func(*Handle) {}))
	}
	if len(s.late) > maxLate {
		t.Errorf("late = %d, want at most %d", len(s.late), maxLate)
	}
}
