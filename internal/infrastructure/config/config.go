package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Wavecue Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Sounds    SoundsConfig    `yaml:"sounds"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig contains service identity information.
type ServiceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// SoundsConfig contains sound catalogue settings.
type SoundsConfig struct {
	// Dir is the root directory holding audio files, one subdirectory
	// per scope (plus the literal "global" scope).
	Dir string `yaml:"dir"`

	// AllowedExtensions limits which files the folder sync will register.
	AllowedExtensions []string `yaml:"allowed_extensions"`

	// Default per-scope limits, overridable via the scope_configs table.
	MaxDurationSeconds int `yaml:"max_duration_seconds"`
	MaxFileSizeMB      int `yaml:"max_file_size_mb"`
	MaxNameLength      int `yaml:"max_name_length"`
}

// PlaybackConfig contains voice playback settings.
type PlaybackConfig struct {
	// IdleTimeoutSeconds is how long a player stays connected with an
	// empty queue before disconnecting. 0 disables the idle disconnect.
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`

	// ConnectTimeoutSeconds bounds a single connect-or-move attempt.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`

	// Volume is the playback gain applied to every source (0.0-1.0).
	Volume float64 `yaml:"volume"`
}

// SchedulerConfig contains routine scheduler settings.
type SchedulerConfig struct {
	// TickSeconds is the timer-routine polling interval.
	TickSeconds int `yaml:"tick_seconds"`
}

// MQTTConfig contains MQTT broker connection settings for telemetry events.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for playback metrics.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the ops HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: WAVECUE_SECTION_KEY
// For example: WAVECUE_DATABASE_PATH, WAVECUE_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:   "wavecue-001",
			Name: "Wavecue",
		},
		Database: DatabaseConfig{
			Path:        "./data/wavecue.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Sounds: SoundsConfig{
			Dir:                "./sounds",
			AllowedExtensions:  []string{".mp3", ".wav", ".ogg", ".m4a", ".flac", ".webm"},
			MaxDurationSeconds: 30,
			MaxFileSizeMB:      5,
			MaxNameLength:      32,
		},
		Playback: PlaybackConfig{
			IdleTimeoutSeconds:    300,
			ConnectTimeoutSeconds: 10,
			Volume:                0.7,
		},
		Scheduler: SchedulerConfig{
			TickSeconds: 1,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "wavecue-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: WAVECUE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("WAVECUE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Sounds
	if v := os.Getenv("WAVECUE_SOUNDS_DIR"); v != "" {
		cfg.Sounds.Dir = v
	}

	// Playback
	if v := os.Getenv("WAVECUE_PLAYBACK_IDLE_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Playback.IdleTimeoutSeconds = n
		}
	}

	// MQTT
	if v := os.Getenv("WAVECUE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("WAVECUE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("WAVECUE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("WAVECUE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("WAVECUE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Service.ID == "" {
		errs = append(errs, "service.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Sounds.Dir == "" {
		errs = append(errs, "sounds.dir is required")
	}
	if c.Sounds.MaxDurationSeconds < 0 {
		errs = append(errs, "sounds.max_duration_seconds must not be negative")
	}
	if c.Sounds.MaxFileSizeMB < 0 {
		errs = append(errs, "sounds.max_file_size_mb must not be negative")
	}

	if c.Playback.IdleTimeoutSeconds < 0 {
		errs = append(errs, "playback.idle_timeout_seconds must not be negative")
	}
	if c.Playback.Volume < 0 || c.Playback.Volume > 1 {
		errs = append(errs, "playback.volume must be between 0.0 and 1.0")
	}

	if c.Scheduler.TickSeconds < 1 {
		errs = append(errs, "scheduler.tick_seconds must be at least 1")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IdleTimeout returns the playback idle disconnect delay as a Duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Playback.IdleTimeoutSeconds) * time.Second
}

// ConnectTimeout returns the voice connect timeout as a Duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Playback.ConnectTimeoutSeconds) * time.Second
}

// SchedulerTick returns the timer-routine polling interval as a Duration.
func (c *Config) SchedulerTick() time.Duration {
	return time.Duration(c.Scheduler.TickSeconds) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
