// Package config loads the application configuration: defaults, then
// config.yml, then config.local.yml, then environment overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	HTTPPort     int           `yaml:"http_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// StorageConfig configures the document store.
type StorageConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	// Channel is the notification channel name tagged onto change feed
	// messages and forwarded to clients as the event name.
	Channel string `yaml:"channel"`
}

// WatcherConfig configures the journal directory watch.
type WatcherConfig struct {
	// Dir is the single watched directory (non-recursive).
	Dir string `yaml:"dir"`
	// QueueSize bounds the ingestion queue. Producers block when full.
	QueueSize int `yaml:"queue_size"`
}

// RealtimeConfig configures the notification relay and client streams.
type RealtimeConfig struct {
	// AuthSecret enables the bearer token check when non-empty.
	AuthSecret string          `yaml:"auth_secret"`
	Reconnect  ReconnectConfig `yaml:"reconnect"`
	Mirror     MirrorConfig    `yaml:"mirror"`
}

// ReconnectConfig shapes the relay's upstream backoff policy.
type ReconnectConfig struct {
	Initial     time.Duration `yaml:"initial"`
	Max         time.Duration `yaml:"max"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// MirrorConfig configures the optional NATS notification mirror.
type MirrorConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
}

// Default returns the built-in configuration, before any file or
// environment overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "localhost",
			HTTPPort:     3030,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // streaming responses must not time out
			IdleTimeout:  120 * time.Second,
		},
		Storage: StorageConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "journal",
			Collection: "documents",
			Channel:    "documents",
		},
		Watcher: WatcherConfig{
			Dir:       "assets",
			QueueSize: 1024,
		},
		Realtime: RealtimeConfig{
			Reconnect: ReconnectConfig{
				Initial:     time.Second,
				Max:         30 * time.Second,
				MaxAttempts: 10,
			},
			Mirror: MirrorConfig{
				URL:     "nats://localhost:4222",
				Stream:  "JOURNAL",
				Subject: "journal.documents",
			},
		},
		Logging: DefaultLoggingConfig(),
	}
}

// Load reads configuration from dir, applying defaults, files, then
// environment overrides, and validates the result.
func Load(dir string) (*Config, error) {
	cfg := Default()
	loadFile(filepath.Join(dir, "config.yml"), cfg)
	loadFile(filepath.Join(dir, "config.local.yml"), cfg)
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(filename string, cfg *Config) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		log.Printf("Warning: Error reading %s: %v", filename, err)
		return
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("Warning: Error parsing %s: %v", filename, err)
	}
}

// applyEnvOverrides applies JOURNAL_* environment variables on top of the
// loaded configuration.
func (c *Config) applyEnvOverrides() {
	setString(&c.Storage.URI, "JOURNAL_STORAGE_URI")
	setString(&c.Storage.Database, "JOURNAL_STORAGE_DATABASE")
	setString(&c.Storage.Collection, "JOURNAL_STORAGE_COLLECTION")
	setString(&c.Storage.Channel, "JOURNAL_STORAGE_CHANNEL")
	setString(&c.Watcher.Dir, "JOURNAL_WATCH_DIR")
	setInt(&c.Watcher.QueueSize, "JOURNAL_QUEUE_SIZE")
	setString(&c.Server.Host, "JOURNAL_HTTP_HOST")
	setInt(&c.Server.HTTPPort, "JOURNAL_HTTP_PORT")
	setString(&c.Realtime.AuthSecret, "JOURNAL_AUTH_SECRET")
	setString(&c.Realtime.Mirror.URL, "JOURNAL_NATS_URL")
	setString(&c.Logging.Level, "JOURNAL_LOG_LEVEL")
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Watcher.Dir == "" {
		return fmt.Errorf("watcher.dir must be set")
	}
	if c.Watcher.QueueSize <= 0 {
		return fmt.Errorf("watcher.queue_size must be positive, got %d", c.Watcher.QueueSize)
	}
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port out of range: %d", c.Server.HTTPPort)
	}
	if c.Storage.URI == "" {
		return fmt.Errorf("storage.uri must be set")
	}
	if c.Storage.Channel == "" {
		return fmt.Errorf("storage.channel must be set")
	}
	if c.Realtime.Mirror.Enabled && c.Realtime.Mirror.URL == "" {
		return fmt.Errorf("realtime.mirror.url must be set when the mirror is enabled")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Warning: %s=%q is not an integer, ignored", key, v)
			return
		}
		*dst = n
	}
}
