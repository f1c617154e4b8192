package audio

import (
	"context"
	"errors"
)

var (
	// ErrDeviceUnavailable is returned when no capture device can be acquired.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrAlreadyStarted is returned by Start on a capture that already ran.
	ErrAlreadyStarted = errors.New("capture already started")
	// ErrNotStarted is returned by Stop on a capture that never started.
	ErrNotStarted = errors.New("capture not started")
)

// Constraints describe the stream requested from a device.
type Constraints struct {
	Source string
	Format Format
}

// Stream is an acquired audio input. It is obtained once per process and
// reused by every capture session.
type Stream struct {
	Backend BackendType
	Source  string
	Format  Format
}

// Callbacks receive the events of one capture session.
//
// OnData is called once per chunk interval with an opaque block of encoded
// audio. OnStop is called exactly once after the last OnData, so every
// chunk has been delivered by the time it runs. Both are invoked from the
// capture's own goroutine, never from Start or Stop.
type Callbacks struct {
	OnData func(chunk []byte)
	OnStop func()
}

// Capture is one recording session on an acquired stream.
type Capture interface {
	// Start begins emitting chunks. If it fails no callback will ever run.
	Start() error
	// Stop requests the end of the capture and returns without waiting.
	// The final chunks and OnStop follow asynchronously.
	Stop() error
}

// Device grants access to an input stream and creates capture sessions on it.
type Device interface {
	Acquire(ctx context.Context, c Constraints) (*Stream, error)
	CreateSession(stream *Stream, cb Callbacks) (Capture, error)
	ListSources() ([]string, error)
	GetType() BackendType
}

// withDefaults fills missing callbacks with no-ops.
func (cb Callbacks) withDefaults() Callbacks {
	if cb.OnData == nil {
		cb.OnData = func([]byte) {}
	}
	if cb.OnStop == nil {
		cb.OnStop = func() {}
	}
	return cb
}
