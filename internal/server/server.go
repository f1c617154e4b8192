package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/audiolibrelab/readaloud/internal/audio"
	"github.com/audiolibrelab/readaloud/internal/service"
	"github.com/audiolibrelab/readaloud/internal/session"
	"github.com/audiolibrelab/readaloud/internal/view"
)

const recordingPath = "/api/recording/"

// Server exposes the recorder over HTTP
type Server struct {
	service service.Service
	device  audio.Device
	port    string
}

// StatusResponse represents the JSON response for status endpoint
type StatusResponse struct {
	State      string              `json:"state"`
	Progress   float64             `json:"progress"`
	Recordings int                 `json:"recordings"`
	ActiveID   string              `json:"active_id,omitempty"`
	Props      view.Props          `json:"props"`
	LastError  string              `json:"last_error,omitempty"`
	Config     *ResolvedConfigInfo `json:"resolved_config"`
}

// ResolvedConfigInfo contains configuration information for the UI
type ResolvedConfigInfo struct {
	ActiveProfile string `json:"active_profile"`
	Backend       string `json:"backend"`
	Source        string `json:"source"`
	SampleRate    int    `json:"sample_rate"`
	Channels      int    `json:"channels"`
	ChunkInterval string `json:"chunk_interval"`
	Player        string `json:"player"`
}

// SourceInfo contains information about an audio source
type SourceInfo struct {
	Name        string `json:"name"`
	Status      string `json:"status"` // "available", "duplicate"
	Selected    bool   `json:"selected"`
	LastChecked string `json:"last_checked"`
}

// SourcesResponse represents the JSON response for sources endpoint
type SourcesResponse struct {
	Backend string       `json:"backend"`
	Sources []SourceInfo `json:"sources"`
}

// GenericResponse represents a generic API response
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// New creates a new web server instance
func New(svc service.Service, device audio.Device, port string) *Server {
	return &Server{
		service: svc,
		device:  device,
		port:    port,
	}
}

// RecordingResolver points views at the WAV stream of a take. The chunk
// count in the query changes the URL whenever the take grows.
func RecordingResolver() view.Resolver {
	return view.ResolverFunc(func(id session.ID, r session.Recording) string {
		return fmt.Sprintf("%s%s?chunks=%d", recordingPath, url.PathEscape(string(id)), len(r.Chunks))
	})
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/record", s.handleRecord)
	mux.HandleFunc("/play", s.handlePlay)
	mux.HandleFunc("/ended", s.handleEnded)
	mux.HandleFunc("/sources", s.handleSources)
	mux.HandleFunc(recordingPath, s.handleRecordingStream)
	return mux
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	localIP := getLocalIP()
	slog.Info("Starting readaloud web server",
		"port", s.port,
		"local_url", fmt.Sprintf("http://%s:%s", localIP, s.port),
		"localhost_url", fmt.Sprintf("http://localhost:%s", s.port))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// handleIndex serves the main web UI
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(indexHTML))
}

// handleStatus returns the current session and derived view
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	snap := s.service.Snapshot()
	response := StatusResponse{
		State:      string(snap.State()),
		Progress:   snap.Progress,
		Recordings: len(snap.Recordings),
		ActiveID:   string(snap.Active),
		Props:      s.service.Props(),
		LastError:  s.service.GetLastError(),
		Config:     s.getResolvedConfigInfo(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) getResolvedConfigInfo() *ResolvedConfigInfo {
	cfg := s.service.GetConfig()
	if cfg == nil {
		return nil
	}
	return &ResolvedConfigInfo{
		ActiveProfile: cfg.Profile,
		Backend:       cfg.Capture.Backend,
		Source:        cfg.Capture.Source,
		SampleRate:    cfg.Capture.SampleRate,
		Channels:      cfg.Capture.Channels,
		ChunkInterval: cfg.Capture.ChunkInterval.String(),
		Player:        cfg.Playback.Player,
	}
}

// handleRecord toggles recording
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	s.handleAction(w, r, "record", s.service.Record)
}

// handlePlay toggles playback
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.handleAction(w, r, "play", s.service.Play)
}

// handleEnded is called by a browser player reaching the end of the stream
func (s *Server) handleEnded(w http.ResponseWriter, r *http.Request) {
	s.handleAction(w, r, "ended", func() error {
		s.service.Ended()
		return nil
	})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, operation string, action func() error) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	if err := action(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrDisabled) {
			status = http.StatusServiceUnavailable
		}
		s.sendErrorResponse(w, status, fmt.Sprintf("Failed to %s: %v", operation, err),
			"operation", operation)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GenericResponse{
		Success: true,
		Message: string(s.service.Snapshot().State()),
	})
}

// handleSources lists capture sources and flags duplicates
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	ports, err := s.device.ListSources()
	if err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list sources: %v", err), "operation", "list_sources")
		return
	}

	selected := ""
	if cfg := s.service.GetConfig(); cfg != nil {
		selected = cfg.Capture.Source
	}

	counts := make(map[string]int, len(ports))
	for _, p := range ports {
		counts[p]++
	}

	now := time.Now().Format(time.RFC3339)
	sources := make([]SourceInfo, 0, len(counts))
	seen := make(map[string]bool, len(counts))
	for _, p := range ports {
		if seen[p] {
			continue
		}
		seen[p] = true

		status := "available"
		if counts[p] > 1 {
			status = "duplicate"
		}
		sources = append(sources, SourceInfo{
			Name:        p,
			Status:      status,
			Selected:    p == selected,
			LastChecked: now,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SourcesResponse{
		Backend: string(s.device.GetType()),
		Sources: sources,
	})
}

// handleRecordingStream serves a take as WAV with range support
func (s *Server) handleRecordingStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, recordingPath)
	if raw == "" {
		http.Error(w, "Recording id required", http.StatusBadRequest)
		return
	}
	id, err := url.PathUnescape(raw)
	if err != nil {
		http.Error(w, "Invalid recording id encoding", http.StatusBadRequest)
		return
	}

	src, ok := s.service.Source(session.ID(id))
	if !ok {
		http.Error(w, "Recording not found", http.StatusNotFound)
		return
	}

	slog.Debug("Streaming recording", "recording_id", id, "bytes", src.Size())
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, id+".wav", time.Time{}, bytes.NewReader(src.WAV(0)))
}

func (s *Server) methodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	json.NewEncoder(w).Encode(GenericResponse{
		Success: false,
		Error:   "Method not allowed",
	})
}

// sendErrorResponse logs and sends a JSON error
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string, logContext ...any) {
	logFields := []any{"error_message", errorMsg, "status_code", statusCode}
	logFields = append(logFields, logContext...)
	slog.Error("Sending error response to client", logFields...)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(GenericResponse{
		Success: false,
		Error:   errorMsg,
	})
}

// getLocalIP returns the local IP address for network access
func getLocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
