// Package store serializes session transitions and owns the playback timer.
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/audiolibrelab/readaloud/internal/audio"
	"github.com/audiolibrelab/readaloud/internal/scheduler"
	"github.com/audiolibrelab/readaloud/internal/session"
)

// DefaultTickInterval is the playback timer period.
const DefaultTickInterval = 100 * time.Millisecond

// Tick is the transition applied on every playback timer tick.
type Tick func(session.Session) session.Session

// Store holds the single authoritative Session. All transitions run under
// one lock, so chunk callbacks, timer ticks and user actions never
// interleave.
type Store struct {
	mu          sync.Mutex
	state       session.Session
	scheduler   scheduler.Scheduler
	interval    time.Duration
	subscribers map[int]chan session.Session
	nextSub     int
	closed      bool
}

// Option configures a Store.
type Option func(*Store)

// WithTickInterval sets the playback timer period.
func WithTickInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(sched scheduler.Scheduler) Option {
	return func(s *Store) {
		s.scheduler = sched
	}
}

// New creates a store in the initial state.
func New(opts ...Option) *Store {
	s := &Store{
		state:       session.Initial(),
		scheduler:   scheduler.NewTicker(),
		interval:    DefaultTickInterval,
		subscribers: make(map[int]chan session.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// apply runs fn on the current state and publishes the result. The caller
// holds s.mu.
func (s *Store) apply(name string, fn func(session.Session) session.Session) session.Session {
	if s.closed {
		return s.state
	}

	next := fn(s.state)
	if err := next.Validate(); err != nil {
		slog.Error("Rejected session transition", "transition", name, "error", err)
		return s.state
	}

	changed := next.State() != s.state.State()
	s.state = next
	if changed {
		slog.Debug("Session state changed", "transition", name, "state", next.State(), "active", next.Active)
	}
	s.publish()
	return next
}

// Update applies an arbitrary transition under the store lock.
func (s *Store) Update(name string, fn func(session.Session) session.Session) session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(name, fn)
}

// StartRecording begins a take under id, or a generated id when empty, and
// returns the id that became active. It returns "" when the store is busy.
func (s *Store) StartRecording(id session.ID, capture audio.Capture) session.ID {
	if id == "" {
		id = session.NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.CanRecord() {
		return ""
	}
	next := s.apply("startRecording", func(st session.Session) session.Session {
		return session.StartRecording(st, id, capture)
	})
	if !next.IsRecording {
		return ""
	}
	return next.Active
}

// AppendChunk records one chunk for id.
func (s *Store) AppendChunk(id session.ID, chunk []byte) {
	s.Update("updateRecording", func(st session.Session) session.Session {
		return session.AppendChunk(st, chunk, id)
	})
}

// StopRecording commits the current take.
func (s *Store) StopRecording() {
	s.Update("stopRecording", session.StopRecording)
}

// StartPlaying starts the playback timer, applying tick on every period.
// It reports whether playback started.
func (s *Store) StartPlaying(tick Tick) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.state.CanPlay() {
		return false
	}

	handle := s.scheduler.Every(s.interval, func(h *scheduler.Handle) {
		s.onTick(h, tick)
	})
	next := s.apply("startPlaying", func(st session.Session) session.Session {
		return session.StartPlaying(st, handle)
	})
	if next.Timer != handle {
		s.scheduler.Cancel(handle)
		return false
	}
	return true
}

// onTick applies tick only while h is still the running timer, so a tick
// that was in flight when playback paused or stopped is dropped.
func (s *Store) onTick(h *scheduler.Handle, tick Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Timer != h || h.Cancelled() {
		return
	}
	s.apply("increaseProgress", tick)
}

// PausePlaying cancels the timer and keeps the position.
func (s *Store) PausePlaying() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduler.Cancel(s.state.Timer)
	s.apply("pausePlaying", session.PausePlaying)
}

// StopPlaying cancels the timer and rewinds.
func (s *Store) StopPlaying() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduler.Cancel(s.state.Timer)
	s.apply("stopPlaying", session.StopPlaying)
}

// IncreaseProgress advances playback by one tick outside the timer.
func (s *Store) IncreaseProgress() {
	s.Update("increaseProgress", session.IncreaseProgress)
}

// Subscribe returns a channel that receives the latest state after every
// transition. Slow readers only see the most recent state. The returned
// function unsubscribes.
func (s *Store) Subscribe() (<-chan session.Session, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan session.Session, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
}

// publish hands the current state to every subscriber without blocking.
// The caller holds s.mu.
func (s *Store) publish() {
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- s.state
	}
}

// Close cancels the playback timer, stops an in-flight capture and closes
// all subscriptions. Later transitions are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if s.state.Timer != nil {
		s.scheduler.Cancel(s.state.Timer)
		s.apply("pausePlaying", session.PausePlaying)
	}
	if s.state.IsRecording {
		if r, ok := s.state.Current(); ok && r.Capture != nil {
			if err := r.Capture.Stop(); err != nil {
				slog.Debug("Failed to stop capture on close", "error", err)
			}
		}
	}

	s.closed = true
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}
