package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "readaloud.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configFile
}

const profilesYAML = `
active_config: studio
configs:
  default:
    capture:
      backend: synthetic
      sample_rate: 44100
      chunk_interval: 500ms
    server:
      port: "9000"
  studio:
    capture:
      backend: pipewire
      source: "alsa_input.usb-mic:capture_MONO"
    playback:
      player: clock
  laptop:
    capture:
      channels: 2
`

func TestLoadWithProfile_MissingFileUsesDefaults(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error: %v", err)
	}
	if cfg.Capture.SampleRate != 48000 || cfg.Capture.Channels != 1 || cfg.Capture.ChunkInterval != time.Second {
		t.Errorf("Unexpected capture defaults: %+v", cfg.Capture)
	}
	if cfg.Playback.TickInterval != 100*time.Millisecond {
		t.Errorf("Expected 100ms tick interval, got %s", cfg.Playback.TickInterval)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}

	if _, err := LoadWithProfile(configFile, "studio"); err == nil {
		t.Error("Expected error when requesting a named profile without a config file")
	}
}

func TestLoadWithProfile_NoFileSpecified(t *testing.T) {
	if _, err := LoadWithProfile("", ""); err == nil {
		t.Error("Expected error for empty config path")
	}
}

func TestLoadWithProfile_ActiveProfileInheritsDefault(t *testing.T) {
	cfg, err := LoadWithProfile(writeConfig(t, profilesYAML), "")
	if err != nil {
		t.Fatalf("LoadWithProfile() error = %v", err)
	}

	if cfg.Profile != "studio" {
		t.Errorf("Expected profile studio, got %s", cfg.Profile)
	}
	if cfg.Capture.Backend != "pipewire" {
		t.Errorf("Expected profile backend, got %s", cfg.Capture.Backend)
	}
	if cfg.Capture.SampleRate != 44100 {
		t.Errorf("Expected sample rate from default profile, got %d", cfg.Capture.SampleRate)
	}
	if cfg.Capture.ChunkInterval != 500*time.Millisecond {
		t.Errorf("Expected 500ms chunk interval, got %s", cfg.Capture.ChunkInterval)
	}
	if cfg.Capture.Channels != 1 {
		t.Errorf("Expected built-in channel count, got %d", cfg.Capture.Channels)
	}
	if cfg.Playback.Player != "clock" {
		t.Errorf("Expected clock player, got %s", cfg.Playback.Player)
	}
	if cfg.Server.Port != "9000" {
		t.Errorf("Expected port from default profile, got %s", cfg.Server.Port)
	}

	if cfg.Inheritance == nil {
		t.Fatal("Expected inheritance info")
	}
	if cfg.Inheritance.Capture.Backend != "profile-specific" {
		t.Errorf("Backend should be profile-specific, got %s", cfg.Inheritance.Capture.Backend)
	}
	if cfg.Inheritance.Capture.SampleRate != "inherited" {
		t.Errorf("SampleRate should be inherited, got %s", cfg.Inheritance.Capture.SampleRate)
	}
}

func TestLoadWithProfile_ExplicitProfile(t *testing.T) {
	configFile := writeConfig(t, profilesYAML)

	cfg, err := LoadWithProfile(configFile, "laptop")
	if err != nil {
		t.Fatalf("LoadWithProfile() error = %v", err)
	}
	if cfg.Capture.Channels != 2 || cfg.Capture.Backend != "synthetic" {
		t.Errorf("Unexpected laptop capture: %+v", cfg.Capture)
	}

	cfg, err = LoadWithProfile(configFile, "default")
	if err != nil {
		t.Fatalf("LoadWithProfile(default) error = %v", err)
	}
	if cfg.Capture.SampleRate != 44100 || cfg.Playback.Player != "auto" {
		t.Errorf("Unexpected default profile: %+v", cfg)
	}

	if _, err := LoadWithProfile(configFile, "nonexistent"); err == nil {
		t.Error("Expected error for unknown profile")
	} else if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected 'not found' error, got: %v", err)
	}
}

func TestLoadWithProfile_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{"backend", "configs:\n  default:\n    capture:\n      backend: alsa\n", "capture.backend"},
		{"sample rate", "configs:\n  default:\n    capture:\n      sample_rate: 1000\n", "capture.sample_rate"},
		{"channels", "configs:\n  default:\n    capture:\n      channels: 6\n", "capture.channels"},
		{"chunk interval", "configs:\n  default:\n    capture:\n      chunk_interval: 1ms\n", "capture.chunk_interval"},
		{"source", "configs:\n  default:\n    capture:\n      source: \":capture_1\"\n", "capture.source"},
		{"player", "configs:\n  default:\n    playback:\n      player: vlc\n", "playback.player"},
		{"port", "configs:\n  default:\n    server:\n      port: \"http\"\n", "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithProfile(writeConfig(t, tt.config), "")
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadWithProfile_MalformedYAML(t *testing.T) {
	_, err := LoadWithProfile(writeConfig(t, "configs: [unclosed"), "")
	if err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestMergeConfigs_TracksInheritance(t *testing.T) {
	base := Default()
	profile := &Config{
		Capture:  CaptureConfig{Source: "Firefox:output_FL"},
		Playback: PlaybackConfig{TickInterval: 50 * time.Millisecond},
	}

	result := mergeConfigs(base, profile)

	if result.Capture.Source != "Firefox:output_FL" {
		t.Errorf("Expected overridden source, got %s", result.Capture.Source)
	}
	if result.Capture.SampleRate != 48000 {
		t.Errorf("Expected inherited sample rate, got %d", result.Capture.SampleRate)
	}
	if result.Playback.TickInterval != 50*time.Millisecond {
		t.Errorf("Expected 50ms tick, got %s", result.Playback.TickInterval)
	}
	if result.Inheritance.Capture.Source != "profile-specific" || result.Inheritance.Playback.TickInterval != "profile-specific" {
		t.Errorf("Expected profile-specific markers, got %+v", result.Inheritance)
	}
	if result.Inheritance.Server.Port != "inherited" {
		t.Errorf("Expected inherited port, got %s", result.Inheritance.Server.Port)
	}

	if got := mergeConfigs(base, nil); got.Capture != base.Capture {
		t.Errorf("nil profile should keep base, got %+v", got.Capture)
	}
}

func TestUpdateActiveConfig(t *testing.T) {
	configFile := writeConfig(t, profilesYAML)

	if err := UpdateActiveConfig(configFile, "laptop"); err != nil {
		t.Fatalf("UpdateActiveConfig() error = %v", err)
	}

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("LoadWithProfile() error = %v", err)
	}
	if cfg.Profile != "laptop" {
		t.Errorf("Expected active profile laptop, got %s", cfg.Profile)
	}

	if err := UpdateActiveConfig(configFile, "missing"); err == nil {
		t.Error("Expected error for unknown profile")
	}
	if err := UpdateActiveConfig("", "laptop"); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestIsValidAudioSource(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"", true},
		{"default", true},
		{"alsa_input.usb-mic:capture_MONO", true},
		{"Chrome:output_FL", true},
		{"bluez:card:capture_1", true},
		{"system:1", true},
		{":capture_1", false},
		{"system:", false},
		{"two words", false},
	}

	for _, tt := range tests {
		if got := isValidAudioSource(tt.source); got != tt.want {
			t.Errorf("isValidAudioSource(%q) = %v, want %v", tt.source, got, tt.want)
		}
	}
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Capture.Source = "Chrome:output_FL"

	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	if !strings.Contains(string(out), "chunk_interval") || !strings.Contains(string(out), "Chrome:output_FL") {
		t.Errorf("Unexpected YAML output:\n%s", out)
	}
}
