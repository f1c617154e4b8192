package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/audiolibrelab/readaloud/internal/service"
	"github.com/audiolibrelab/readaloud/internal/session"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one take without the terminal interface",
	Long: `Record a take from the configured source until Enter or Ctrl+C is pressed.
With --play the take is played back right away and the counter is printed
while it runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		playBack, _ := cmd.Flags().GetBool("play")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, _, err := buildService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		if svc.Disabled() {
			return fmt.Errorf("%w: %s", service.ErrDisabled, svc.GetLastError())
		}

		updates, unsubscribe := svc.Subscribe()
		defer unsubscribe()

		if err := svc.Record(); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		fmt.Println("Recording... press Enter to stop")

		enter := make(chan struct{})
		go func() {
			bufio.NewReader(os.Stdin).ReadString('\n')
			close(enter)
		}()

		if !waitRecording(ctx, updates, enter) {
			slog.Info("Stopping recording...")
			if err := svc.Record(); err != nil {
				return fmt.Errorf("failed to stop recording: %w", err)
			}
		}
		final := waitFor(context.Background(), updates, svc.Snapshot, func(s session.Session) bool {
			return !s.IsRecording
		})
		fmt.Printf("Recorded %s\n", svc.Props().CounterText)

		if !playBack || ctx.Err() != nil || !final.CanPlay() {
			return nil
		}

		if err := svc.Play(); err != nil {
			return fmt.Errorf("failed to play recording: %w", err)
		}
		waitFor(ctx, updates, svc.Snapshot, func(s session.Session) bool {
			if s.IsPlaying {
				fmt.Printf("\r%s", svc.Props().CounterText)
			}
			return !s.IsPlaying
		})
		fmt.Println()
		return nil
	},
}

// waitRecording reports whether the recording ended on its own before
// Enter was pressed or ctx was cancelled.
func waitRecording(ctx context.Context, updates <-chan session.Session, enter <-chan struct{}) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-enter:
			return false
		case s, ok := <-updates:
			if !ok || !s.IsRecording {
				return true
			}
		}
	}
}

// waitFor blocks until done accepts the current session or ctx ends
func waitFor(ctx context.Context, updates <-chan session.Session, current func() session.Session, done func(session.Session) bool) session.Session {
	s := current()
	for !done(s) {
		select {
		case <-ctx.Done():
			return s
		case next, ok := <-updates:
			if !ok {
				return current()
			}
			s = next
		case <-time.After(time.Second):
			s = current()
		}
	}
	return s
}

func init() {
	recordCmd.Flags().Bool("play", false, "play the take back after recording")
}
