package audio

import (
	"log/slog"
	"os/exec"
	"strings"

	"github.com/audiolibrelab/readaloud/internal/config"
)

// BackendType represents the type of capture backend
type BackendType string

const (
	BackendTypePipeWire  BackendType = "pipewire"
	BackendTypeSynthetic BackendType = "synthetic"
	BackendTypeAuto      BackendType = "auto"
)

// NewDevice creates a capture device using the backend selected by configuration
func NewDevice(cfg *config.Config) Device {
	switch determineBackend(cfg) {
	case BackendTypeSynthetic:
		return NewSyntheticDevice(cfg.Capture.ChunkInterval)
	default:
		return NewPipeWireDevice(cfg.Capture.ChunkInterval)
	}
}

// determineBackend resolves the configured backend. "auto" always means
// PipeWire: a host without pw-record must fail acquisition, not record a
// test tone. The synthetic device is only used when asked for by name.
func determineBackend(cfg *config.Config) BackendType {
	switch strings.ToLower(cfg.Capture.Backend) {
	case "synthetic":
		return BackendTypeSynthetic
	case "pipewire":
		return BackendTypePipeWire
	}

	if !pipeWireAvailable() {
		slog.Debug("pw-record not found, capture will be unavailable")
	}
	return BackendTypePipeWire
}

func pipeWireAvailable() bool {
	_, err := exec.LookPath(pwRecordBinary)
	return err == nil
}

// GetAvailableBackends returns the capture backends usable on this system.
// The synthetic test tone is not a capture backend and is never listed.
func GetAvailableBackends() []BackendType {
	backends := []BackendType{}
	if pipeWireAvailable() {
		backends = append(backends, BackendTypePipeWire)
	}
	return backends
}
