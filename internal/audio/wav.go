package audio

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/audiolibrelab/readaloud/internal/config"
)

const bitsPerSample = 16

// Format is the PCM layout of captured chunks: signed 16-bit little endian
// samples, interleaved by channel.
type Format struct {
	SampleRate int
	Channels   int
}

// FormatFromConfig returns the capture format configured for the session.
func FormatFromConfig(cfg *config.Config) Format {
	return Format{
		SampleRate: cfg.Capture.SampleRate,
		Channels:   cfg.Capture.Channels,
	}
}

// BytesPerSecond returns the PCM data rate.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * bitsPerSample / 8
}

// BlockAlign returns the size of one frame.
func (f Format) BlockAlign() int {
	return f.Channels * bitsPerSample / 8
}

// ChunkSize returns the number of bytes captured per interval, rounded down
// to a whole frame.
func (f Format) ChunkSize(interval time.Duration) int {
	n := int(float64(f.BytesPerSecond()) * interval.Seconds())
	if align := f.BlockAlign(); align > 0 {
		n -= n % align
	}
	if n <= 0 {
		n = f.BlockAlign()
	}
	return n
}

// Offset converts a playback position in seconds to a frame-aligned byte
// offset into the PCM data.
func (f Format) Offset(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	n := int(seconds * float64(f.BytesPerSecond()))
	if align := f.BlockAlign(); align > 0 {
		n -= n % align
	}
	return n
}

// EncodeWAV assembles chunks into a WAV file, skipping the first skip bytes
// of PCM data.
func EncodeWAV(f Format, chunks [][]byte, skip int) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if skip > total {
		skip = total
	}
	if skip < 0 {
		skip = 0
	}
	dataSize := total - skip

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(f.Channels))
	binary.Write(buf, binary.LittleEndian, uint32(f.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(f.BytesPerSecond()))
	binary.Write(buf, binary.LittleEndian, uint16(f.BlockAlign()))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	// data chunk
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	for _, c := range chunks {
		if skip >= len(c) {
			skip -= len(c)
			continue
		}
		buf.Write(c[skip:])
		skip = 0
	}

	return buf.Bytes()
}
