package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	inherited       = "inherited"
	profileSpecific = "profile-specific"
)

type RootConfig struct {
	ActiveConfig string                    `mapstructure:"active_config" yaml:"active_config"`
	Configs      map[string]*ConfigProfile `mapstructure:"configs" yaml:"configs"`
}

// ConfigProfile is one named section under configs. Zero values inherit
// from the default profile.
type ConfigProfile struct {
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Playback PlaybackConfig `mapstructure:"playback" yaml:"playback"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

type Config struct {
	Profile  string         `mapstructure:"-" yaml:"profile"`
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Playback PlaybackConfig `mapstructure:"playback" yaml:"playback"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`

	// Internal field to track inheritance information for info command
	Inheritance *InheritanceInfo `mapstructure:"-" yaml:"-"`
}

type InheritanceInfo struct {
	Capture struct {
		Backend       string // "inherited" or "profile-specific"
		Source        string
		SampleRate    string
		Channels      string
		ChunkInterval string
	}
	Playback struct {
		Player       string
		TickInterval string
	}
	Server struct {
		Port string
	}
}

type CaptureConfig struct {
	Backend       string        `mapstructure:"backend" yaml:"backend"` // "pipewire", "synthetic", "auto"
	Source        string        `mapstructure:"source" yaml:"source"`   // PipeWire port, empty for the default input
	SampleRate    int           `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels      int           `mapstructure:"channels" yaml:"channels"`
	ChunkInterval time.Duration `mapstructure:"chunk_interval" yaml:"chunk_interval"`
}

type PlaybackConfig struct {
	Player       string        `mapstructure:"player" yaml:"player"` // "auto", "ffplay", "aplay", "paplay", "clock"
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
}

var defaultConfig = Config{
	Profile: "default",
	Capture: CaptureConfig{
		Backend:       "auto",
		SampleRate:    48000,
		Channels:      1,
		ChunkInterval: time.Second,
	},
	Playback: PlaybackConfig{
		Player:       "auto",
		TickInterval: 100 * time.Millisecond,
	},
	Server: ServerConfig{
		Port: "8080",
	},
}

// Default returns a copy of the built-in configuration
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}

// DefaultConfigFile returns $HOME/.config/readaloud.yaml
func DefaultConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "readaloud.yaml"
	}
	return filepath.Join(home, ".config", "readaloud.yaml")
}

// LoadWithProfile loads configFile and resolves the named profile, or the
// active one when profile is empty. A missing file yields the built-in
// defaults.
func LoadWithProfile(configFile, profile string) (*Config, error) {
	if configFile == "" {
		return nil, fmt.Errorf("no config file specified, use --config flag")
	}

	if _, err := os.Stat(configFile); errors.Is(err, os.ErrNotExist) {
		slog.Debug("Config file not found, using defaults", "file", configFile)
		if profile != "" && profile != "default" {
			return nil, fmt.Errorf("configuration profile '%s' not found: %s does not exist", profile, configFile)
		}
		return Default(), nil
	}

	rootConfig, err := ValidateConfigurationFormat(configFile)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	// Determine which config to use
	configName := profile
	if configName == "" {
		configName = rootConfig.ActiveConfig
	}
	if configName == "" {
		configName = "default"
	}

	selectedProfile, exists := rootConfig.Configs[configName]
	if !exists {
		if configName != "default" {
			return nil, fmt.Errorf("configuration profile '%s' not found", configName)
		}
		selectedProfile = &ConfigProfile{}
	}

	// Built-in defaults, then the default profile, then the selected one
	base := Default()
	if configName != "default" {
		if defaultProfile, ok := rootConfig.Configs["default"]; ok {
			base = mergeConfigs(base, defaultProfile.toConfig())
		}
	}
	selectedConfig := mergeConfigs(base, selectedProfile.toConfig())
	selectedConfig.Profile = configName

	if err := validate(selectedConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return selectedConfig, nil
}

// UpdateActiveConfig updates the active_config field in the config file
func UpdateActiveConfig(configFile, newActiveConfig string) error {
	if configFile == "" {
		return fmt.Errorf("no config file specified")
	}

	rootConfig, err := ValidateConfigurationFormat(configFile)
	if err != nil {
		return err
	}
	if _, ok := rootConfig.Configs[newActiveConfig]; !ok && newActiveConfig != "default" {
		return fmt.Errorf("configuration profile '%s' not found", newActiveConfig)
	}

	// Create a new viper instance to avoid interfering with other readers
	v := viper.New()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	v.Set("active_config", newActiveConfig)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configFile, err)
	}

	return nil
}

func (p *ConfigProfile) toConfig() *Config {
	if p == nil {
		return &Config{}
	}
	return &Config{
		Capture:  p.Capture,
		Playback: p.Playback,
		Server:   p.Server,
	}
}

// mergeConfigs overlays the non-zero settings of profile onto base and
// records where each value came from
func mergeConfigs(base, profile *Config) *Config {
	result := &Config{Inheritance: &InheritanceInfo{}}

	if base != nil {
		result.Profile = base.Profile
		result.Capture = base.Capture
		result.Playback = base.Playback
		result.Server = base.Server
	}

	info := result.Inheritance
	info.Capture.Backend = inherited
	info.Capture.Source = inherited
	info.Capture.SampleRate = inherited
	info.Capture.Channels = inherited
	info.Capture.ChunkInterval = inherited
	info.Playback.Player = inherited
	info.Playback.TickInterval = inherited
	info.Server.Port = inherited

	if profile == nil {
		return result
	}

	if profile.Capture.Backend != "" {
		result.Capture.Backend = profile.Capture.Backend
		info.Capture.Backend = profileSpecific
	}
	if profile.Capture.Source != "" {
		result.Capture.Source = profile.Capture.Source
		info.Capture.Source = profileSpecific
	}
	if profile.Capture.SampleRate != 0 {
		result.Capture.SampleRate = profile.Capture.SampleRate
		info.Capture.SampleRate = profileSpecific
	}
	if profile.Capture.Channels != 0 {
		result.Capture.Channels = profile.Capture.Channels
		info.Capture.Channels = profileSpecific
	}
	if profile.Capture.ChunkInterval != 0 {
		result.Capture.ChunkInterval = profile.Capture.ChunkInterval
		info.Capture.ChunkInterval = profileSpecific
	}
	if profile.Playback.Player != "" {
		result.Playback.Player = profile.Playback.Player
		info.Playback.Player = profileSpecific
	}
	if profile.Playback.TickInterval != 0 {
		result.Playback.TickInterval = profile.Playback.TickInterval
		info.Playback.TickInterval = profileSpecific
	}
	if profile.Server.Port != "" {
		result.Server.Port = profile.Server.Port
		info.Server.Port = profileSpecific
	}

	return result
}

// isValidAudioSource checks if a source name is valid for PipeWire
func isValidAudioSource(source string) bool {
	source = strings.TrimSpace(source)

	if source == "" || source == "default" {
		return true
	}

	// PipeWire node names may contain colons, so split from the right
	if lastColonIndex := strings.LastIndex(source, ":"); lastColonIndex != -1 {
		deviceName := strings.TrimSpace(source[:lastColonIndex])
		port := strings.TrimSpace(source[lastColonIndex+1:])
		return deviceName != "" && port != ""
	}

	return !strings.ContainsAny(source, " \t")
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return true
		}
	}
	return false
}

// validate checks a resolved configuration
func validate(cfg *Config) error {
	c := cfg.Capture
	if !oneOf(c.Backend, "pipewire", "synthetic", "auto") {
		return fmt.Errorf("capture.backend must be 'pipewire', 'synthetic' or 'auto', got: %s", c.Backend)
	}
	if !isValidAudioSource(c.Source) {
		return fmt.Errorf("capture.source must be a valid PipeWire port (node:port), got: %s", c.Source)
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("capture.sample_rate must be between 8000 and 192000, got: %d", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("capture.channels must be 1 or 2, got: %d", c.Channels)
	}
	if c.ChunkInterval < 10*time.Millisecond {
		return fmt.Errorf("capture.chunk_interval must be at least 10ms, got: %s", c.ChunkInterval)
	}

	p := cfg.Playback
	if !oneOf(p.Player, "auto", "ffplay", "aplay", "paplay", "clock") {
		return fmt.Errorf("playback.player must be one of auto, ffplay, aplay, paplay, clock, got: %s", p.Player)
	}
	if p.TickInterval <= 0 {
		return fmt.Errorf("playback.tick_interval must be > 0, got: %s", p.TickInterval)
	}

	port, err := strconv.Atoi(cfg.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server.port must be a number between 1 and 65535, got: %s", cfg.Server.Port)
	}

	return nil
}

// ValidateConfigurationFormat reads the config file and returns the parsed root
func ValidateConfigurationFormat(configFile string) (*RootConfig, error) {
	v := viper.New()
	v.SetConfigFile(configFile)

	v.SetEnvPrefix("READALOUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var rootConfig RootConfig
	if err := v.Unmarshal(&rootConfig); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	for name, profile := range rootConfig.Configs {
		if profile == nil {
			return nil, fmt.Errorf("invalid config '%s': profile is empty", name)
		}
	}

	return &rootConfig, nil
}
