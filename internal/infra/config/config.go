// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	Storage      StorageConfig      `yaml:"storage"`
	Audio        AudioConfig        `yaml:"audio"`
	Artwork      ArtworkConfig      `yaml:"artwork"`
	Playback     PlaybackConfig     `yaml:"playback"`
	MediaSession MediaSessionConfig `yaml:"media_session"`
}

// ServerConfig represents the remote control server configuration.
type ServerConfig struct {
	Addr         string      `yaml:"addr" default:":8080"`
	ControlToken string      `yaml:"control_token"`
	Hooks        HooksConfig `yaml:"hooks"`
}

// HooksConfig represents shell commands run around the server lifetime.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// CatalogConfig represents the music library source.
type CatalogConfig struct {
	Path  string `yaml:"path" default:"config/library.yaml" validate:"required"`
	Watch bool   `yaml:"watch"` // Reload the library when the file changes
}

// StorageConfig represents the persistent key-value store.
// Settings are decoded by the selected driver.
type StorageConfig struct {
	Driver   string         `yaml:"driver" default:"sqlite" validate:"oneof=sqlite file"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// AudioConfig represents audio resource resolution.
type AudioConfig struct {
	BaseURL           string   `yaml:"base_url" validate:"required,url"`
	Formats           []string `yaml:"formats" default:"[\"mp3\",\"ogg\",\"m4a\"]" validate:"min=1,dive,alphanum"`
	RetryMax          int      `yaml:"retry_max" default:"1" validate:"gte=0,lte=10"`
	TimeoutSec        int      `yaml:"timeout_sec" default:"30" validate:"gte=1"`
	RequestsPerSecond float64  `yaml:"requests_per_second" default:"4" validate:"gt=0"`
	MaxBytes          int64    `yaml:"max_bytes" default:"67108864" validate:"gte=1024"`
	TimeUpdateMs      int      `yaml:"time_update_ms" default:"250" validate:"gte=50,lte=5000"`
}

// ArtworkConfig represents cover art resolution.
type ArtworkConfig struct {
	BaseURL    string `yaml:"base_url" validate:"required,url"`
	DefaultURL string `yaml:"default_url" validate:"omitempty,url"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	RestartThresholdSec float64 `yaml:"restart_threshold_sec" default:"3" validate:"gte=0"`
	SeekOffsetSec       float64 `yaml:"seek_offset_sec" default:"10" validate:"gt=0"`
	HistoryMax          int     `yaml:"history_max" default:"50" validate:"gte=1"`
	HistoryPersisted    int     `yaml:"history_persisted" default:"20" validate:"gte=0,ltefield=HistoryMax"`
}

// MediaSessionConfig represents the desktop now-playing integration.
type MediaSessionConfig struct {
	Disabled       bool   `yaml:"disabled"`
	BusName        string `yaml:"bus_name" default:"mybeats" validate:"required,alphanum"`
	PositionSyncMs int    `yaml:"position_sync_ms" default:"1000" validate:"gte=100"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("MYBEATS_CONTROL_TOKEN"); v != "" {
		c.Server.ControlToken = v
	}
	if v := os.Getenv("MYBEATS_AUDIO_BASE_URL"); v != "" {
		c.Audio.BaseURL = v
	}
	if v := os.Getenv("MYBEATS_ARTWORK_BASE_URL"); v != "" {
		c.Artwork.BaseURL = v
	}
	if v := os.Getenv("MYBEATS_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// AudioTimeout returns the per-request audio fetch timeout.
func (c *Config) AudioTimeout() time.Duration {
	return time.Duration(c.Audio.TimeoutSec) * time.Second
}

// TimeUpdateInterval returns the playback position tick interval.
func (c *Config) TimeUpdateInterval() time.Duration {
	return time.Duration(c.Audio.TimeUpdateMs) * time.Millisecond
}

// PositionSyncInterval returns the media session position sync interval.
func (c *Config) PositionSyncInterval() time.Duration {
	return time.Duration(c.MediaSession.PositionSyncMs) * time.Millisecond
}
