// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Record  RecordConfig  `mapstructure:"record"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	Storage StorageConfig `mapstructure:"storage"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	DB      DBConfig      `mapstructure:"db"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RecordConfig governs the capture pipeline.
type RecordConfig struct {
	OutputDir       string `mapstructure:"output_dir"`
	Concurrency     int    `mapstructure:"concurrency"`
	Parallel        bool   `mapstructure:"parallel"`
	DurationSeconds int    `mapstructure:"duration_seconds"`
	Width           int    `mapstructure:"width"`
	Height          int    `mapstructure:"height"`
	Framerate       int    `mapstructure:"framerate"`
	UserAgent       string `mapstructure:"user_agent"`
	FFmpegPath      string `mapstructure:"ffmpeg_path"`
	Display         int    `mapstructure:"display"`
}

// ProbeConfig controls the pre-recording reachability check.
type ProbeConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// StorageConfig sets the destination for archived recordings.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for recording-complete notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port       int `mapstructure:"port"`
	QueueDepth int `mapstructure:"queue_depth"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBREEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("record.output_dir", "recordings")
	v.SetDefault("record.concurrency", 3)
	v.SetDefault("record.parallel", false)
	v.SetDefault("record.duration_seconds", 10)
	v.SetDefault("record.width", 1920)
	v.SetDefault("record.height", 1080)
	v.SetDefault("record.framerate", 30)
	v.SetDefault("record.user_agent", "webreel/0.1")
	v.SetDefault("record.ffmpeg_path", "ffmpeg")
	v.SetDefault("record.display", 99)
	v.SetDefault("probe.enabled", false)
	v.SetDefault("probe.timeout_seconds", 10)
	v.SetDefault("storage.prefix", "recordings")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.queue_depth", 16)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Record.Concurrency <= 0 {
		return fmt.Errorf("record.concurrency must be > 0")
	}
	if c.Record.DurationSeconds <= 0 {
		return fmt.Errorf("record.duration_seconds must be > 0")
	}
	if c.Record.Width <= 0 || c.Record.Height <= 0 {
		return fmt.Errorf("record.width and record.height must be > 0")
	}
	if c.Record.Framerate <= 0 {
		return fmt.Errorf("record.framerate must be > 0")
	}
	if c.Probe.Enabled && c.Probe.TimeoutSeconds <= 0 {
		return fmt.Errorf("probe.timeout_seconds must be > 0 when the probe is enabled")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.QueueDepth <= 0 {
		return fmt.Errorf("server.queue_depth must be > 0")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// CaptureDuration converts the configured recording length into a Duration.
func (c Config) CaptureDuration() time.Duration {
	return time.Duration(c.Record.DurationSeconds) * time.Second
}

// ProbeTimeout converts the probe timeout into a Duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}
