package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/audiolibrelab/readaloud/internal/audio"
	"github.com/audiolibrelab/readaloud/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal recorder",
	Long: `Open the terminal recorder. Space records or stops, p plays or pauses,
q quits. Logs go to a file since the interface owns the terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logPath := logFile
		if logPath == "" {
			logPath = filepath.Join(os.TempDir(), "readaloud.log")
		}
		f, err := tea.LogToFile(logPath, "readaloud")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		redirectLogging(f)

		svc, _, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		p := tea.NewProgram(tui.New(svc), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("terminal interface failed: %w", err)
		}
		return nil
	},
}

// redirectLogging sends slog and capture process output to f, keeping the
// verbose level
func redirectLogging(f *os.File) {
	slogLevel := slog.LevelInfo
	if verboseLevel >= 1 {
		slogLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slogLevel})))
	if verboseLevel >= 2 {
		audio.SetProcessOutput(f)
	}
}

var logFile string

func init() {
	for _, c := range []*cobra.Command{rootCmd, tuiCmd} {
		c.Flags().StringVar(&logFile, "log-file", "", "log file (default is readaloud.log in the temp directory)")
	}
}
