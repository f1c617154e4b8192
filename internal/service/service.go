package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/audiolibrelab/readaloud/internal/audio"
	"github.com/audiolibrelab/readaloud/internal/config"
	"github.com/audiolibrelab/readaloud/internal/play"
	"github.com/audiolibrelab/readaloud/internal/scheduler"
	"github.com/audiolibrelab/readaloud/internal/session"
	"github.com/audiolibrelab/readaloud/internal/store"
	"github.com/audiolibrelab/readaloud/internal/view"
)

// ErrDisabled is returned by every action once acquiring the capture
// device has failed.
var ErrDisabled = errors.New("recorder disabled")

// Service represents the core recorder interface used by the views
type Service interface {
	// Record toggles between starting and stopping a take
	Record() error
	// Play toggles between starting and pausing playback
	Play() error
	// Ended reports that an external renderer reached the end of the media
	Ended()

	Props() view.Props
	Snapshot() session.Session
	Subscribe() (<-chan session.Session, func())
	Source(id session.ID) (play.Source, bool)

	GetConfig() *config.Config
	GetLastError() string
	Close() error
}

// Option configures a RecorderService
type Option func(*RecorderService)

// WithScheduler replaces the wall-clock playback scheduler
func WithScheduler(sched scheduler.Scheduler) Option {
	return func(s *RecorderService) {
		s.scheduler = sched
	}
}

// WithResolver sets how takes are turned into source references
func WithResolver(r view.Resolver) Option {
	return func(s *RecorderService) {
		s.resolver = view.Cached(r)
	}
}

// RecorderService is the main service implementation
type RecorderService struct {
	cfg       *config.Config
	device    audio.Device
	player    play.Player
	scheduler scheduler.Scheduler
	resolver  view.Resolver
	store     *store.Store

	// stream is nil when the device could not be acquired
	stream       *audio.Stream
	acquireError string

	// mu serializes user actions and capture/playback completion
	mu         sync.Mutex
	stopping   bool
	run        play.Run
	generation uint64

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex
}

var _ Service = (*RecorderService)(nil)

// New acquires the capture device and creates the service. If acquisition
// fails the service stays usable in disabled mode.
func New(ctx context.Context, cfg *config.Config, device audio.Device, player play.Player, opts ...Option) *RecorderService {
	s := &RecorderService{
		cfg:       cfg,
		device:    device,
		player:    player,
		scheduler: scheduler.NewTicker(),
		resolver: view.Cached(view.ResolverFunc(func(id session.ID, r session.Recording) string {
			return fmt.Sprintf("recording:%s#%d", id, len(r.Chunks))
		})),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.store = store.New(
		store.WithScheduler(s.scheduler),
		store.WithTickInterval(cfg.Playback.TickInterval),
	)

	stream, err := device.Acquire(ctx, audio.Constraints{
		Source: cfg.Capture.Source,
		Format: audio.FormatFromConfig(cfg),
	})
	if err != nil {
		s.acquireError = err.Error()
		s.setLastError(s.acquireError)
		return s
	}

	s.stream = stream
	slog.Info("Capture device acquired", "backend", stream.Backend, "source", stream.Source,
		"sample_rate", stream.Format.SampleRate, "channels", stream.Format.Channels, "player", player.Name())
	return s
}

// Disabled reports whether the capture device is unavailable
func (s *RecorderService) Disabled() bool {
	return s.stream == nil
}

// Record starts a take, or requests the running one to stop. The take is
// committed once the device has delivered its last chunk.
func (s *RecorderService) Record() error {
	if s.Disabled() {
		return ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Snapshot()
	if snap.IsRecording {
		return s.requestStop(snap)
	}
	if snap.IsPlaying {
		s.haltPlayback()
		s.store.StopPlaying()
	}
	return s.startCapture()
}

func (s *RecorderService) requestStop(snap session.Session) error {
	if s.stopping {
		return nil
	}

	rec, ok := snap.Current()
	if !ok || rec.Capture == nil {
		s.store.StopRecording()
		return nil
	}

	s.stopping = true
	if err := rec.Capture.Stop(); err != nil {
		s.stopping = false
		s.setLastError(fmt.Sprintf("Failed to stop recording: %v", err))
		return fmt.Errorf("failed to stop recording: %w", err)
	}

	slog.Debug("Recording stop requested", "recording_id", snap.Active)
	return nil
}

func (s *RecorderService) startCapture() error {
	id := session.NewID()

	// Callbacks wait until the take exists in the store.
	ready := make(chan struct{})
	capture, err := s.device.CreateSession(s.stream, audio.Callbacks{
		OnData: func(chunk []byte) {
			<-ready
			s.store.AppendChunk(id, chunk)
		},
		OnStop: func() {
			<-ready
			s.captureStopped(id)
		},
	})
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to start recording: %v", err))
		return fmt.Errorf("failed to create capture session: %w", err)
	}

	if err := capture.Start(); err != nil {
		s.setLastError(fmt.Sprintf("Failed to start recording: %v", err))
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer close(ready)

	if s.store.StartRecording(id, capture) == "" {
		capture.Stop()
		return fmt.Errorf("recorder busy")
	}

	s.clearLastError()
	slog.Info("Recording started", "recording_id", id)
	return nil
}

// captureStopped commits the take after the device's final chunk
func (s *RecorderService) captureStopped(id session.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopping = false

	snap := s.store.Snapshot()
	if !snap.IsRecording || snap.Active != id {
		return
	}
	s.store.StopRecording()

	chunks := 0
	if rec, ok := snap.Recordings[id]; ok {
		chunks = rec.Duration
	}
	slog.Info("Recording stopped", "recording_id", id, "chunks", chunks)
}

// Play starts playback from the current position, or pauses it
func (s *RecorderService) Play() error {
	if s.Disabled() {
		return ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Snapshot()
	if snap.IsPlaying {
		s.haltPlayback()
		s.store.PausePlaying()
		slog.Debug("Playback paused", "progress", s.store.Snapshot().Progress)
		return nil
	}

	rec, ok := snap.Current()
	if !snap.CanPlay() || !ok {
		return nil
	}
	src := s.sourceOf(snap.Active, rec)

	if !s.store.StartPlaying(session.IncreaseProgress) {
		return nil
	}

	s.generation++
	generation := s.generation
	run, err := s.player.Play(src, snap.Progress, func() {
		s.ended(generation)
	})
	if err != nil {
		s.store.PausePlaying()
		s.setLastError(fmt.Sprintf("Failed to play recording: %v", err))
		return fmt.Errorf("failed to play recording: %w", err)
	}

	s.run = run
	s.clearLastError()
	slog.Debug("Playback started", "recording_id", snap.Active, "offset", snap.Progress, "source", src.Ref)
	return nil
}

// haltPlayback stops the running output and invalidates its end signal.
// The caller holds s.mu.
func (s *RecorderService) haltPlayback() {
	s.generation++
	if s.run != nil {
		s.run.Stop()
		s.run = nil
	}
}

// ended handles the end of the playback run started as generation
func (s *RecorderService) ended(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return
	}
	s.generation++
	s.run = nil
	s.store.StopPlaying()
	slog.Debug("Playback ended")
}

// Ended stops playback when the media is rendered elsewhere
func (s *RecorderService) Ended() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Snapshot().IsPlaying {
		return
	}
	s.haltPlayback()
	s.store.StopPlaying()
}

// Props projects the current state for views
func (s *RecorderService) Props() view.Props {
	p := view.Project(s.store.Snapshot(),
		view.Source(s.resolver),
		view.Failure(s.acquireError),
	)
	p.Record = s.Record
	p.Play = s.Play
	return p
}

// Snapshot returns the current session
func (s *RecorderService) Snapshot() session.Session {
	return s.store.Snapshot()
}

// Subscribe returns a channel of session updates
func (s *RecorderService) Subscribe() (<-chan session.Session, func()) {
	return s.store.Subscribe()
}

// Source returns the playable rendition of take id
func (s *RecorderService) Source(id session.ID) (play.Source, bool) {
	if s.Disabled() {
		return play.Source{}, false
	}
	rec, ok := s.store.Snapshot().Recordings[id]
	if !ok {
		return play.Source{}, false
	}
	return s.sourceOf(id, rec), true
}

func (s *RecorderService) sourceOf(id session.ID, rec session.Recording) play.Source {
	return play.Source{
		Ref:    s.resolver.Resolve(id, rec),
		Format: s.stream.Format,
		Chunks: rec.Chunks,
	}
}

// GetConfig returns the current configuration
func (s *RecorderService) GetConfig() *config.Config {
	return s.cfg
}

// Close halts playback, stops an in-flight capture and releases the timer
func (s *RecorderService) Close() error {
	s.mu.Lock()
	s.haltPlayback()
	s.mu.Unlock()

	s.store.Close()
	return nil
}

// GetLastError returns the last error message (thread-safe)
func (s *RecorderService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

// setLastError sets the last error message (thread-safe)
func (s *RecorderService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err

	slog.Error("Service error occurred", "error_message", err)
}

// clearLastError clears the last error message unless the device is gone
func (s *RecorderService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = s.acquireError
}
