package cmd

import (
	"fmt"
	"runtime"

	"github.com/audiolibrelab/readaloud/internal/audio"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available audio sources",
	Long:  `List the audio sources the configured capture backend can record from.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listAvailableSources(audio.NewDevice(cfg))
	},
}

// listAvailableSources prints the sources of device
func listAvailableSources(device audio.Device) error {
	fmt.Printf("🎙  Audio Sources (%s, %s backend)\n", runtime.GOOS, device.GetType())
	fmt.Printf("═══════════════════════════════════════\n\n")

	sources, err := device.ListSources()
	if err != nil {
		return fmt.Errorf("failed to get %s sources: %w", device.GetType(), err)
	}

	fmt.Printf("📋 SOURCES (%d found):\n", len(sources))
	for i, source := range sources {
		fmt.Printf("  %d. %s\n", i+1, source)
	}

	fmt.Printf("\n💡 Usage:\n")
	fmt.Printf("  • Leave capture.source empty to record from the default input\n")
	fmt.Printf("  • Example: \"Scarlett 2i2 USB: Audio (hw:1,0):0\"\n")
	fmt.Printf("  • Available capture backends: %v\n", audio.GetAvailableBackends())
	fmt.Printf("  • Set capture.backend: synthetic for a 440 Hz test tone without a microphone\n\n")

	return nil
}
