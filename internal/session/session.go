// Package session holds the recorder state and the pure transitions over it.
//
// Every transition takes a Session by value and returns the next one. The
// input is never mutated: the recordings map and chunk lists are copied on
// write, so earlier snapshots stay valid after later transitions.
package session

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/audiolibrelab/readaloud/internal/audio"
	"github.com/audiolibrelab/readaloud/internal/number"
	"github.com/audiolibrelab/readaloud/internal/scheduler"
)

// TickStep is the playback progress added by each timer tick, in seconds.
const TickStep = 0.1

var (
	nextChunk    = number.Increase(1)
	nextProgress = number.Increase(TickStep)
)

// ID identifies a recording. The zero value means "none".
type ID string

// NewID returns a time-ordered unique recording id.
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		return ID(uuid.NewString())
	}
	return ID(id.String())
}

// Recording is one captured take.
type Recording struct {
	Capture audio.Capture
	Chunks  [][]byte
	// Duration counts received chunks, one per capture interval.
	Duration int
}

// State is the coarse phase of the recorder
type State string

const (
	StateEmpty     State = "EMPTY"
	StateRecording State = "RECORDING"
	StateRecorded  State = "RECORDED"
	StatePlaying   State = "PLAYING"
)

// Session is the full recorder state.
type Session struct {
	IsEmpty     bool
	IsRecording bool
	IsPlaying   bool
	Active      ID
	Recordings  map[ID]Recording
	// Progress is the playback position in seconds.
	Progress float64
	Timer    *scheduler.Handle
}

// Initial returns the state of a recorder that has never recorded.
func Initial() Session {
	return Session{
		IsEmpty:    true,
		Recordings: map[ID]Recording{},
	}
}

// State derives the current phase.
func (s Session) State() State {
	switch {
	case s.IsRecording:
		return StateRecording
	case s.IsPlaying:
		return StatePlaying
	case s.IsEmpty:
		return StateEmpty
	default:
		return StateRecorded
	}
}

// Current returns the active recording, if any.
func (s Session) Current() (Recording, bool) {
	if s.Active == "" {
		return Recording{}, false
	}
	r, ok := s.Recordings[s.Active]
	return r, ok
}

// HasRecordings reports whether at least one take exists.
func (s Session) HasRecordings() bool {
	return len(s.Recordings) > 0
}

// CanRecord reports whether StartRecording would take effect.
func (s Session) CanRecord() bool {
	return !s.IsRecording && !s.IsPlaying
}

// CanPlay reports whether StartPlaying would take effect.
func (s Session) CanPlay() bool {
	if s.IsEmpty || s.IsRecording || s.IsPlaying {
		return false
	}
	_, ok := s.Current()
	return ok
}

// withRecording returns s with recordings[id] replaced by r.
func (s Session) withRecording(id ID, r Recording) Session {
	recordings := make(map[ID]Recording, len(s.Recordings)+1)
	for k, v := range s.Recordings {
		recordings[k] = v
	}
	recordings[id] = r
	s.Recordings = recordings
	return s
}

// StartRecording begins a new take under id, generating one when id is
// empty. It has no effect while recording or playing.
func StartRecording(s Session, id ID, capture audio.Capture) Session {
	if !s.CanRecord() {
		return s
	}
	if id == "" {
		id = NewID()
	}

	s = s.withRecording(id, Recording{Capture: capture})
	s.Progress = 0
	s.IsRecording = true
	s.Active = id
	return s
}

// AppendChunk adds one chunk to recording id, or to the active recording
// when id is empty, and counts one more interval of duration. Chunks only
// reach the take that is currently being recorded.
func AppendChunk(s Session, chunk []byte, id ID) Session {
	if id == "" {
		id = s.Active
	}
	if !s.IsRecording || id != s.Active {
		return s
	}
	r, ok := s.Recordings[id]
	if !ok {
		return s
	}

	// The full slice expression forces a fresh backing array so snapshots
	// holding the previous chunk list never see the new element.
	r.Chunks = append(r.Chunks[:len(r.Chunks):len(r.Chunks)], chunk)
	r.Duration = nextChunk(r.Duration)
	return s.withRecording(id, r)
}

// StopRecording ends the current take. The active id is kept so the take
// can be played back.
func StopRecording(s Session) Session {
	if !s.IsRecording {
		return s
	}
	s.IsRecording = false
	s.IsEmpty = false
	return s
}

// StartPlaying marks playback as running, driven by timer.
func StartPlaying(s Session, timer *scheduler.Handle) Session {
	if !s.CanPlay() || timer == nil {
		return s
	}
	s.IsPlaying = true
	s.Timer = timer
	return s
}

// PausePlaying halts playback keeping the current position. The caller
// cancels the timer.
func PausePlaying(s Session) Session {
	if !s.IsPlaying {
		return s
	}
	s.IsPlaying = false
	s.Timer = nil
	return s
}

// StopPlaying halts playback and rewinds to the start. The caller cancels
// the timer.
func StopPlaying(s Session) Session {
	s.IsPlaying = false
	s.Progress = 0
	s.Timer = nil
	return s
}

// progressPrecision bounds float drift so ten ticks read as exactly one
// second.
const progressPrecision = 1e6

// IncreaseProgress advances playback by one tick.
func IncreaseProgress(s Session) Session {
	s.Progress = math.Round(nextProgress(s.Progress)*progressPrecision) / progressPrecision
	return s
}

// ErrInvalidState is wrapped by every Validate failure.
var ErrInvalidState = errors.New("invalid session state")

// Validate checks the structural invariants of s.
func (s Session) Validate() error {
	switch {
	case s.IsRecording && s.IsPlaying:
		return fmt.Errorf("%w: recording and playing at once", ErrInvalidState)
	case s.IsPlaying && s.Timer == nil:
		return fmt.Errorf("%w: playing without a timer", ErrInvalidState)
	case !s.IsPlaying && s.Timer != nil:
		return fmt.Errorf("%w: timer held while not playing", ErrInvalidState)
	case s.IsPlaying && s.IsEmpty:
		return fmt.Errorf("%w: playing with no recording", ErrInvalidState)
	case !s.IsEmpty && !s.IsRecording && !s.HasRecordings():
		return fmt.Errorf("%w: not empty but no recordings", ErrInvalidState)
	case s.Progress < 0:
		return fmt.Errorf("%w: negative progress %v", ErrInvalidState, s.Progress)
	}

	if s.IsRecording || s.IsPlaying {
		if _, ok := s.Current(); !ok {
			return fmt.Errorf("%w: active recording %q missing", ErrInvalidState, s.Active)
		}
	}
	for id, r := range s.Recordings {
		if r.Duration != len(r.Chunks) {
			return fmt.Errorf("%w: recording %q has %d chunks but duration %d", ErrInvalidState, id, len(r.Chunks), r.Duration)
		}
	}
	return nil
}
