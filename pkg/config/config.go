package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Session    SessionConfig    `yaml:"session"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
}

// UpstreamConfig contains settings for the upstream match feed
type UpstreamConfig struct {
	URL               string        `yaml:"url"`
	ProfileID         int64         `yaml:"profile_id"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	MaxReconnectDelay time.Duration `yaml:"max_reconnect_delay"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
}

// SessionConfig contains streak session policy settings
type SessionConfig struct {
	// Gap is the maximum tolerated pause between the end of one match and
	// the start of the next before the streak is considered broken
	Gap time.Duration `yaml:"gap"`
	// StrictLiveGap, when set, zeroes the streak if the live match started
	// more than Gap after the last counted finish
	StrictLiveGap bool `yaml:"strict_live_gap"`
}

// WebSocketConfig contains overlay WebSocket settings
type WebSocketConfig struct {
	MaxConnections int           `yaml:"max_connections"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	MaxMessageSize int64         `yaml:"max_message_size"`
}

// DatabaseConfig contains match archive settings
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level"`
	ShowCaller bool   `yaml:"show_caller"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	Enabled         bool   `yaml:"enabled"`
	MetricsEndpoint string `yaml:"metrics_endpoint"`
	HealthEndpoint  string `yaml:"health_endpoint"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        5090,
			Environment: "development",
		},
		Upstream: UpstreamConfig{
			URL:               "wss://aoe2recs.com/dashboard/api/",
			ReconnectDelay:    5 * time.Second,
			MaxReconnectDelay: 60 * time.Second,
			HandshakeTimeout:  10 * time.Second,
		},
		Session: SessionConfig{
			Gap:           2 * time.Hour,
			StrictLiveGap: false,
		},
		WebSocket: WebSocketConfig{
			MaxConnections: 50,
			ReadTimeout:    60 * time.Second,
			WriteTimeout:   10 * time.Second,
			PingInterval:   25 * time.Second,
			MaxMessageSize: 8192,
		},
		Database: DatabaseConfig{
			Enabled: true,
			Path:    "./data/overlay.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Monitoring: MonitoringConfig{
			Enabled:         true,
			MetricsEndpoint: "/metrics",
			HealthEndpoint:  "/health",
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment-specific overrides
	cfg.applyEnvironmentOverrides()

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvironmentOverrides applies environment-specific settings
func (c *Config) applyEnvironmentOverrides() {
	// Override with environment variables if set
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Server.Port)
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		c.Server.Environment = env
	}

	if profile := os.Getenv("PROFILE_ID"); profile != "" {
		if id, err := strconv.ParseInt(profile, 10, 64); err == nil {
			c.Upstream.ProfileID = id
		}
	}

	if url := os.Getenv("UPSTREAM_URL"); url != "" {
		c.Upstream.URL = url
	}

	// Apply development overrides if in development mode
	if c.Server.Environment == "development" {
		c.Logging.Level = "debug"
	}
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", c.Server.Port)
	}

	if c.Upstream.URL == "" {
		return fmt.Errorf("upstream URL must be set")
	}

	if c.Session.Gap <= 0 {
		return fmt.Errorf("session gap must be positive")
	}

	if c.WebSocket.MaxConnections < 1 {
		return fmt.Errorf("max connections must be at least 1")
	}

	return nil
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
