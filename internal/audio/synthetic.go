package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"
)

const syntheticSource = "synthetic:tone"

// SyntheticDevice generates a test tone instead of reading hardware. It
// stands in for a microphone on headless machines and in tests.
type SyntheticDevice struct {
	chunkInterval time.Duration
	frequency     float64
}

// NewSyntheticDevice creates a device emitting a 440 Hz tone every interval
func NewSyntheticDevice(chunkInterval time.Duration) *SyntheticDevice {
	return &SyntheticDevice{
		chunkInterval: chunkInterval,
		frequency:     440,
	}
}

func (d *SyntheticDevice) Acquire(ctx context.Context, c Constraints) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Format.SampleRate <= 0 || c.Format.Channels <= 0 {
		return nil, fmt.Errorf("%w: invalid format %d Hz / %d channels", ErrDeviceUnavailable, c.Format.SampleRate, c.Format.Channels)
	}

	return &Stream{
		Backend: BackendTypeSynthetic,
		Source:  syntheticSource,
		Format:  c.Format,
	}, nil
}

func (d *SyntheticDevice) CreateSession(stream *Stream, cb Callbacks) (Capture, error) {
	if stream == nil {
		return nil, fmt.Errorf("%w: no stream acquired", ErrDeviceUnavailable)
	}

	return &syntheticCapture{
		format:    stream.Format,
		interval:  d.chunkInterval,
		frequency: d.frequency,
		cb:        cb.withDefaults(),
		stop:      make(chan struct{}),
	}, nil
}

func (d *SyntheticDevice) ListSources() ([]string, error) {
	return []string{syntheticSource}, nil
}

func (d *SyntheticDevice) GetType() BackendType {
	return BackendTypeSynthetic
}

type syntheticCapture struct {
	format    Format
	interval  time.Duration
	frequency float64
	cb        Callbacks

	mutex    sync.Mutex
	started  bool
	stopping bool
	stop     chan struct{}
	frame    int
}

func (c *syntheticCapture) Start() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true
	go c.run()
	return nil
}

func (c *syntheticCapture) run() {
	defer c.cb.OnStop()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cb.OnData(c.nextChunk())
		}
	}
}

// nextChunk renders one interval of tone, keeping phase across chunks
func (c *syntheticCapture) nextChunk() []byte {
	size := c.format.ChunkSize(c.interval)
	frames := size / c.format.BlockAlign()
	chunk := make([]byte, size)

	for i := 0; i < frames; i++ {
		t := float64(c.frame+i) / float64(c.format.SampleRate)
		sample := int16(0.2 * math.MaxInt16 * math.Sin(2*math.Pi*c.frequency*t))
		for ch := 0; ch < c.format.Channels; ch++ {
			offset := (i*c.format.Channels + ch) * 2
			binary.LittleEndian.PutUint16(chunk[offset:], uint16(sample))
		}
	}
	c.frame += frames

	return chunk
}

func (c *syntheticCapture) Stop() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.started {
		return ErrNotStarted
	}
	if !c.stopping {
		c.stopping = true
		close(c.stop)
	}
	return nil
}
