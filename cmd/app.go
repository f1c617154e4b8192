package cmd

import (
	"context"
	"fmt"

	"github.com/audiolibrelab/readaloud/internal/audio"
	"github.com/audiolibrelab/readaloud/internal/play"
	"github.com/audiolibrelab/readaloud/internal/service"
)

// buildService wires the configured capture device and player into a
// recorder service. The device is returned for commands that list sources.
func buildService(ctx context.Context, opts ...service.Option) (*service.RecorderService, audio.Device, error) {
	device := audio.NewDevice(cfg)

	player, err := play.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up playback: %w", err)
	}

	return service.New(ctx, cfg, device, player, opts...), device, nil
}
