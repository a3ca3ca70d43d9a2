// Package config loads the reel.yaml file read by the reel CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/reel/internal/playback"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file name looked up in the working directory.
const DefaultFile = "reel.yaml"

// Version is the only supported config schema version.
const Version = 1

// Store kinds.
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is the contents of reel.yaml.
type Config struct {
	Version int `yaml:"version"`

	SettleTimeout    time.Duration `yaml:"settle_timeout"`
	RenderBatch      int           `yaml:"render_batch"`
	InitialWatermark int           `yaml:"initial_watermark"`
	HintDuration     time.Duration `yaml:"hint_duration"`
	CommitDelay      time.Duration `yaml:"commit_delay"`

	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
}

// StoreConfig selects the slide store backend.
type StoreConfig struct {
	Kind   string `yaml:"kind"`
	Path   string `yaml:"path"`
	Addr   string `yaml:"addr"`
	DSN    string `yaml:"dsn"`
	Prefix string `yaml:"prefix"`
}

// LogConfig sets the log level and an optional JSON log file.
type LogConfig struct {
	Level    string `yaml:"level"`
	JSONFile string `yaml:"json_file"`
}

// HTTPConfig is the listen address of the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MQTTConfig is disabled while Broker is empty.
type MQTTConfig struct {
	Broker string `yaml:"broker"`
	Topic  string `yaml:"topic"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	pb := playback.DefaultConfig()
	return &Config{
		Version:          Version,
		SettleTimeout:    pb.SettleTimeout,
		RenderBatch:      pb.RenderBatch,
		InitialWatermark: pb.InitialWatermark,
		HintDuration:     pb.HintDuration,
		CommitDelay:      300 * time.Millisecond,
		Store:            StoreConfig{Kind: StoreFile, Path: "reel.deck.yaml"},
		Log:              LogConfig{Level: "info"},
		HTTP:             HTTPConfig{Addr: ":8080"},
		Metrics:          MetricsConfig{Enabled: true},
		MQTT:             MQTTConfig{Topic: "reel"},
	}
}

// Load reads path and fills unset keys with defaults.
// A missing file yields the defaults when allowMissing is set.
func Load(path string, allowMissing bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes a config document.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Version == 0 {
		cfg.Version = Version
	}
	if cfg.Version != Version {
		return nil, fmt.Errorf("unsupported reel.yaml version: %d", cfg.Version)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = def.SettleTimeout
	}
	if c.RenderBatch <= 0 {
		c.RenderBatch = def.RenderBatch
	}
	if c.InitialWatermark <= 0 {
		c.InitialWatermark = def.InitialWatermark
	}
	if c.HintDuration <= 0 {
		c.HintDuration = def.HintDuration
	}
	if c.CommitDelay <= 0 {
		c.CommitDelay = def.CommitDelay
	}
	if c.Store.Kind == "" {
		c.Store.Kind = def.Store.Kind
	}
	if c.Store.Kind == StoreFile && c.Store.Path == "" {
		c.Store.Path = def.Store.Path
	}
	if c.Store.Kind == StoreSQLite && c.Store.Path == "" {
		c.Store.Path = "reel.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = def.HTTP.Addr
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}
}

// Validate checks the store settings required by the selected kind.
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case StoreFile, StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store %s requires path", c.Store.Kind)
		}
	case StoreRedis:
		if c.Store.Addr == "" {
			return fmt.Errorf("store redis requires addr")
		}
	case StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store postgres requires dsn")
		}
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	return nil
}

// Playback returns the controller tunables.
func (c *Config) Playback() playback.Config {
	return playback.Config{
		SettleTimeout:    c.SettleTimeout,
		RenderBatch:      c.RenderBatch,
		InitialWatermark: c.InitialWatermark,
		HintDuration:     c.HintDuration,
	}
}
