package cmd

import (
	"fmt"

	"github.com/audiolibrelab/readaloud/internal/config"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the resolved configuration",
	Long:  `Display the resolved configuration with inheritance indicators. Shows which values are inherited from default vs profile-specific.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("=== RESOLVED CONFIGURATION ===\n")
		fmt.Printf("file: %s\n", cfgFile)
		fmt.Printf("profile: %s\n", cfg.Profile)

		inh := cfg.Inheritance
		if inh == nil {
			fmt.Printf("\n(no config file, built-in defaults)\n")
			inh = &builtinInheritance
		}

		fmt.Printf("\n[Capture]\n")
		fmt.Printf("backend: %s %s\n", cfg.Capture.Backend, getInheritanceIndicator(inh.Capture.Backend))
		fmt.Printf("source: %q %s\n", cfg.Capture.Source, getInheritanceIndicator(inh.Capture.Source))
		fmt.Printf("sample_rate: %d %s\n", cfg.Capture.SampleRate, getInheritanceIndicator(inh.Capture.SampleRate))
		fmt.Printf("channels: %d %s\n", cfg.Capture.Channels, getInheritanceIndicator(inh.Capture.Channels))
		fmt.Printf("chunk_interval: %s %s\n", cfg.Capture.ChunkInterval, getInheritanceIndicator(inh.Capture.ChunkInterval))

		fmt.Printf("\n[Playback]\n")
		fmt.Printf("player: %s %s\n", cfg.Playback.Player, getInheritanceIndicator(inh.Playback.Player))
		fmt.Printf("tick_interval: %s %s\n", cfg.Playback.TickInterval, getInheritanceIndicator(inh.Playback.TickInterval))

		fmt.Printf("\n[Server]\n")
		fmt.Printf("port: %s %s\n", cfg.Server.Port, getInheritanceIndicator(inh.Server.Port))

		return nil
	},
}

var builtinInheritance config.InheritanceInfo

// getInheritanceIndicator returns a formatted indicator for inheritance status
func getInheritanceIndicator(status string) string {
	switch status {
	case "inherited":
		return "[inherited]"
	case "profile-specific":
		return "[profile-specific]"
	default:
		return "[built-in]"
	}
}
