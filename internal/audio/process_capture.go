package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const stopTimeout = 5 * time.Second

var (
	processOutputMu sync.RWMutex
	processOutput   io.Writer
)

// SetProcessOutput mirrors the stderr of capture processes to w. A nil w
// turns mirroring off.
func SetProcessOutput(w io.Writer) {
	processOutputMu.Lock()
	defer processOutputMu.Unlock()
	processOutput = w
}

// ProcessOutput returns the writer set by SetProcessOutput
func ProcessOutput() io.Writer {
	processOutputMu.RLock()
	defer processOutputMu.RUnlock()
	return processOutput
}

// processCapture reads fixed-size chunks of raw PCM from a child process
type processCapture struct {
	newCmd    func() *exec.Cmd
	chunkSize int
	cb        Callbacks

	mutex    sync.Mutex
	cmd      *exec.Cmd
	started  bool
	stopping bool
	done     chan struct{}
}

func newProcessCapture(newCmd func() *exec.Cmd, chunkSize int, cb Callbacks) *processCapture {
	return &processCapture{
		newCmd:    newCmd,
		chunkSize: chunkSize,
		cb:        cb.withDefaults(),
		done:      make(chan struct{}),
	}
}

// Start launches the process and the chunk reader
func (c *processCapture) Start() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}

	cmd := c.newCmd()
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if w := ProcessOutput(); w != nil {
		cmd.Stderr = io.MultiWriter(stderr, w)
	}

	slog.Debug("Starting capture process", "command", strings.Join(cmd.Args, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start capture process: %w", err)
	}

	c.cmd = cmd
	c.started = true
	go c.readChunks(stdout, stderr)

	return nil
}

// readChunks delivers chunks until the process closes stdout, then reaps it
// and signals the end of the capture
func (c *processCapture) readChunks(stdout io.Reader, stderr *bytes.Buffer) {
	defer close(c.done)
	defer c.cb.OnStop()

	chunks := 0
	for {
		buf := make([]byte, c.chunkSize)
		n, err := io.ReadFull(stdout, buf)
		if n > 0 {
			chunks++
			c.cb.OnData(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				slog.Warn("Capture read failed", "error", err)
			}
			break
		}
	}

	err := c.cmd.Wait()

	c.mutex.Lock()
	requested := c.stopping
	c.mutex.Unlock()

	switch {
	case err == nil:
		slog.Debug("Capture process exited", "chunks", chunks)
	case requested && interruptedExit(err):
		slog.Debug("Capture process exited after stop request", "chunks", chunks)
	default:
		slog.Warn("Capture process failed", "error", err, "stderr", strings.TrimSpace(stderr.String()))
	}
}

// interruptedExit reports whether err comes from a process we signalled
func interruptedExit(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	if exitErr.ExitCode() == 255 || exitErr.ExitCode() == 130 {
		return true
	}
	state := exitErr.ProcessState.String()
	return state == "signal: interrupt" || state == "signal: killed"
}

// Stop sends SIGINT and returns immediately. If the process has not exited
// after stopTimeout it is killed.
func (c *processCapture) Stop() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.started {
		return ErrNotStarted
	}
	if c.stopping {
		return nil
	}
	c.stopping = true

	process := c.cmd.Process
	if err := process.Signal(os.Interrupt); err != nil {
		slog.Debug("Failed to interrupt capture process, killing", "error", err)
		process.Kill()
		return nil
	}

	go func() {
		select {
		case <-c.done:
		case <-time.After(stopTimeout):
			slog.Warn("Capture process did not exit within timeout, force killing")
			process.Kill()
		}
	}()

	return nil
}
