package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Timeline   TimelineConfig   `yaml:"timeline"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Countdown  CountdownConfig  `yaml:"countdown"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
	// NotifyStatuses are the statuses that trigger a push to the customer.
	NotifyStatuses []string `yaml:"notify_statuses"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	// DSN is a Postgres DSN, or "sqlite:<path>" for a local SQLite file.
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// LogConfig selects the application log handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// TimelineConfig tunes event collection and ordering.
type TimelineConfig struct {
	SourcePriority       []string      `yaml:"source_priority"`
	SourceTimeoutSeconds int           `yaml:"source_timeout_seconds"`
	SourceTimeout        time.Duration `yaml:"-"`
	Timezone             string        `yaml:"timezone"`
}

// ResolverConfig tunes the user name cache.
type ResolverConfig struct {
	// TTLSeconds of zero keeps names until restart.
	TTLSeconds int           `yaml:"ttl_seconds"`
	TTL        time.Duration `yaml:"-"`
}

// CountdownConfig tunes the countdown stream.
type CountdownConfig struct {
	StreamBuffer int `yaml:"stream_buffer"`
}

// MonitorConfig holds the overdue monitor configuration.
type MonitorConfig struct {
	Enabled           bool          `yaml:"enabled"`
	IntervalSeconds   int           `yaml:"interval_seconds"`
	Interval          time.Duration `yaml:"-"`
	UrgentWithinHours int           `yaml:"urgent_within_hours"`
	UrgentWithin      time.Duration `yaml:"-"`
	NotifyOverdue     bool          `yaml:"notify_overdue"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes <= 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}

	if cfg.Timeline.SourceTimeoutSeconds <= 0 {
		cfg.Timeline.SourceTimeoutSeconds = 5
	}
	cfg.Timeline.SourceTimeout = time.Duration(cfg.Timeline.SourceTimeoutSeconds) * time.Second
	if cfg.Timeline.Timezone == "" {
		cfg.Timeline.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(cfg.Timeline.Timezone); err != nil {
		return fmt.Errorf("invalid timeline.timezone %q: %w", cfg.Timeline.Timezone, err)
	}

	if cfg.Resolver.TTLSeconds < 0 {
		return fmt.Errorf("resolver.ttl_seconds must not be negative")
	}
	cfg.Resolver.TTL = time.Duration(cfg.Resolver.TTLSeconds) * time.Second

	if cfg.Countdown.StreamBuffer <= 0 {
		cfg.Countdown.StreamBuffer = 4
	}

	if cfg.Monitor.IntervalSeconds <= 0 {
		cfg.Monitor.IntervalSeconds = 60
	}
	cfg.Monitor.Interval = time.Duration(cfg.Monitor.IntervalSeconds) * time.Second
	if cfg.Monitor.UrgentWithinHours <= 0 {
		cfg.Monitor.UrgentWithinHours = 24
	}
	cfg.Monitor.UrgentWithin = time.Duration(cfg.Monitor.UrgentWithinHours) * time.Hour

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.Push.NotifyStatuses == nil {
		cfg.Push.NotifyStatuses = []string{"ready-for-pickup", "done", "failed"}
	}

	if cfg.WorkerPool.Size <= 0 {
		slog.Warn("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 100
	}
	return nil
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
