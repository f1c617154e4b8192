package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

const pwRecordBinary = "pw-record"

// PipeWireDevice captures from a PipeWire node through pw-record
type PipeWireDevice struct {
	pipewire      *PipeWire
	chunkInterval time.Duration
}

// NewPipeWireDevice creates a PipeWire device emitting one chunk per interval
func NewPipeWireDevice(chunkInterval time.Duration) *PipeWireDevice {
	return &PipeWireDevice{
		pipewire:      NewPipeWire(),
		chunkInterval: chunkInterval,
	}
}

// Acquire checks that pw-record is installed and the requested source exists
func (d *PipeWireDevice) Acquire(ctx context.Context, c Constraints) (*Stream, error) {
	if _, err := exec.LookPath(pwRecordBinary); err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrDeviceUnavailable, pwRecordBinary)
	}
	if err := d.pipewire.ValidatePort(ctx, c.Source); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	return &Stream{
		Backend: BackendTypePipeWire,
		Source:  c.Source,
		Format:  c.Format,
	}, nil
}

// CreateSession prepares a pw-record process for the stream
func (d *PipeWireDevice) CreateSession(stream *Stream, cb Callbacks) (Capture, error) {
	if stream == nil {
		return nil, fmt.Errorf("%w: no stream acquired", ErrDeviceUnavailable)
	}

	args := pwRecordArgs(stream)
	newCmd := func() *exec.Cmd {
		return exec.Command(pwRecordBinary, args...)
	}
	return newProcessCapture(newCmd, stream.Format.ChunkSize(d.chunkInterval), cb), nil
}

// pwRecordArgs builds arguments writing raw s16le PCM to stdout
func pwRecordArgs(stream *Stream) []string {
	args := []string{
		"--rate", strconv.Itoa(stream.Format.SampleRate),
		"--channels", strconv.Itoa(stream.Format.Channels),
		"--format", "s16",
	}
	if stream.Source != "" && stream.Source != "default" {
		args = append(args, "--target", portNode(stream.Source))
	}
	return append(args, "-")
}

// ListSources returns available PipeWire output ports
func (d *PipeWireDevice) ListSources() ([]string, error) {
	return d.pipewire.ListPorts(context.Background())
}

// GetType returns the backend type
func (d *PipeWireDevice) GetType() BackendType {
	return BackendTypePipeWire
}
