// Package scheduler provides the periodic pulse that drives playback progress.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"
)

var handleSeq atomic.Uint64

// Handle references one periodic task. A nil *Handle means no task is running.
type Handle struct {
	id       uint64
	interval time.Duration
	done     chan struct{}
	once     sync.Once
}

func newHandle(interval time.Duration) *Handle {
	return &Handle{
		id:       handleSeq.Add(1),
		interval: interval,
		done:     make(chan struct{}),
	}
}

// ID returns a process-unique identifier, useful in logs.
func (h *Handle) ID() uint64 { return h.id }

// Interval returns the period the task was scheduled with.
func (h *Handle) Interval() time.Duration { return h.interval }

// Cancelled reports whether the task has been cancelled.
func (h *Handle) Cancelled() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Handle) cancel() {
	h.once.Do(func() { close(h.done) })
}

// Scheduler starts and cancels periodic tasks. fn receives the handle of the
// task that fired so callers can discard ticks from a task they no longer own.
type Scheduler interface {
	Every(interval time.Duration, fn func(*Handle)) *Handle
	Cancel(h *Handle)
}

// Ticker runs each task on its own goroutine backed by a time.Ticker.
type Ticker struct{}

// NewTicker returns the wall-clock scheduler.
func NewTicker() *Ticker {
	return &Ticker{}
}

// Every starts fn every interval until the returned handle is cancelled.
func (t *Ticker) Every(interval time.Duration, fn func(*Handle)) *Handle {
	h := newHandle(interval)
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				if h.Cancelled() {
					return
				}
				fn(h)
			}
		}
	}()

	return h
}

// Cancel stops the task. It does not wait for a tick already in flight; fn
// must tolerate being called once more with a cancelled handle.
func (t *Ticker) Cancel(h *Handle) {
	if h != nil {
		h.cancel()
	}
}
