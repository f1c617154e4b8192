// Package play renders a recording through an audio output and reports when
// it reaches the end.
package play

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/audiolibrelab/readaloud/internal/audio"
	"github.com/audiolibrelab/readaloud/internal/config"
)

// Source is a playable rendition of one recording.
type Source struct {
	// Ref is the locator handed to views, e.g. an HTTP path.
	Ref    string
	Format audio.Format
	Chunks [][]byte
}

// Size returns the PCM payload length in bytes.
func (s Source) Size() int {
	n := 0
	for _, c := range s.Chunks {
		n += len(c)
	}
	return n
}

// Duration returns the playable length of the PCM payload.
func (s Source) Duration() time.Duration {
	bps := s.Format.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(float64(s.Size()) / float64(bps) * float64(time.Second))
}

// WAV encodes the source from offset seconds onwards.
func (s Source) WAV(offset float64) []byte {
	return audio.EncodeWAV(s.Format, s.Chunks, s.Format.Offset(offset))
}

// Run is one playback in progress.
type Run interface {
	// Stop halts playback. onEnded is not called for a stopped run.
	Stop()
}

// Player starts playback of a source at an offset in seconds. onEnded runs
// at most once, from another goroutine, when the end of the media is
// reached.
type Player interface {
	Play(src Source, offset float64, onEnded func()) (Run, error)
	Name() string
}

// ErrNoPlayer is returned when no configured output is usable.
var ErrNoPlayer = errors.New("no suitable audio player found")

// preferred lists stdin-capable players in order of preference
var preferred = []string{"ffplay", "aplay", "paplay"}

// New creates the player selected by configuration
func New(cfg *config.Config) (Player, error) {
	name := strings.ToLower(cfg.Playback.Player)

	switch name {
	case "clock":
		return NewClock(), nil
	case "", "auto":
		found, err := findAudioPlayer()
		if err != nil {
			slog.Info("No audio player found, playback will be silent", "tried", strings.Join(preferred, ", "))
			return NewClock(), nil
		}
		return NewExec(found), nil
	default:
		if _, err := exec.LookPath(name); err != nil {
			return nil, fmt.Errorf("%w: %s not found in PATH", ErrNoPlayer, name)
		}
		return NewExec(name), nil
	}
}

func findAudioPlayer() (string, error) {
	for _, player := range preferred {
		if _, err := exec.LookPath(player); err == nil {
			return player, nil
		}
	}
	return "", fmt.Errorf("%w (tried: %s)", ErrNoPlayer, strings.Join(preferred, ", "))
}

// Exec plays WAV data piped to an external player
type Exec struct {
	name string
	args []string
}

// NewExec creates a player running the named binary
func NewExec(name string) *Exec {
	return &Exec{name: name, args: playerArgs(name)}
}

func (p *Exec) Name() string { return p.name }

func playerArgs(name string) []string {
	switch name {
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-i", "-"}
	case "aplay":
		return []string{"-q", "-"}
	default:
		return nil
	}
}

func (p *Exec) Play(src Source, offset float64, onEnded func()) (Run, error) {
	cmd := exec.Command(p.name, p.args...)
	cmd.Stdin = bytes.NewReader(src.WAV(offset))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("playback failed with %s: %w", p.name, err)
	}
	slog.Debug("Playback started", "player", p.name, "source", src.Ref, "offset", offset)

	run := &execRun{cmd: cmd}
	go func() {
		err := cmd.Wait()
		if run.stopped.Load() {
			return
		}
		if err != nil {
			slog.Warn("Player exited with error", "player", p.name, "error", err)
		}
		run.once.Do(onEnded)
	}()

	return run, nil
}

type execRun struct {
	cmd     *exec.Cmd
	stopped atomic.Bool
	once    sync.Once
}

func (r *execRun) Stop() {
	if r.stopped.Swap(true) {
		return
	}
	if r.cmd.Process != nil {
		r.cmd.Process.Kill()
	}
}

// Clock simulates an output device by ending after the remaining duration.
// It is used headless and when the audio is rendered elsewhere, such as a
// browser reading the HTTP stream.
type Clock struct{}

// NewClock creates a silent player
func NewClock() *Clock {
	return &Clock{}
}

func (c *Clock) Name() string { return "clock" }

func (c *Clock) Play(src Source, offset float64, onEnded func()) (Run, error) {
	remaining := src.Duration() - time.Duration(offset*float64(time.Second))
	if remaining < 0 {
		remaining = 0
	}
	return &clockRun{timer: time.AfterFunc(remaining, onEnded)}, nil
}

type clockRun struct {
	timer *time.Timer
}

func (r *clockRun) Stop() {
	r.timer.Stop()
}
