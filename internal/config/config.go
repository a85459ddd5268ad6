package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Remote      RemoteConfig      `yaml:"remote" json:"remote"`
	Auth        AuthConfig        `yaml:"auth" json:"auth"`
	Preferences PreferencesConfig `yaml:"preferences" json:"preferences"`
	WebServer   WebServerConfig   `yaml:"web_server" json:"web_server"`
	Thumbnails  ThumbnailConfig   `yaml:"thumbnails" json:"thumbnails"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
}

// RemoteConfig contains the hosted record store connection settings
type RemoteConfig struct {
	BaseURL           string  `yaml:"base_url" json:"base_url"`                       // e.g., "https://gallery.example.com"
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"` // Outbound rate limit
	Burst             int     `yaml:"burst" json:"burst"`                             // Rate limiter burst size
}

// AuthConfig contains optional credentials for signing in at startup
type AuthConfig struct {
	Identity string `yaml:"identity" json:"identity"` // Email or username; empty means start signed out
	Password string `yaml:"password" json:"password"`
}

// PreferencesConfig contains local preference storage settings
type PreferencesConfig struct {
	Path string `yaml:"path" json:"path"` // Path to SQLite preferences file
}

// WebServerConfig contains web server settings
type WebServerConfig struct {
	Host string `yaml:"host" json:"host"` // Host to bind to (e.g., "localhost", "0.0.0.0")
	Port int    `yaml:"port" json:"port"` // Port to listen on
}

// ThumbnailConfig contains thumbnail generation settings
type ThumbnailConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`           // Enable local thumbnail generation
	MaxWidth    int    `yaml:"max_width" json:"max_width"`       // Maximum thumbnail width
	MaxHeight   int    `yaml:"max_height" json:"max_height"`     // Maximum thumbnail height
	Quality     int    `yaml:"quality" json:"quality"`           // JPEG quality (1-100)
	Directory   string `yaml:"directory" json:"directory"`       // Directory to store thumbnails
	VideoMethod string `yaml:"video_method" json:"video_method"` // Method for video thumbnails (ffmpeg, none)
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"` // debug, info, warn, error
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	if c.Remote.RequestsPerSecond <= 0 {
		return fmt.Errorf("remote.requests_per_second must be positive")
	}
	if c.Remote.Burst <= 0 {
		return fmt.Errorf("remote.burst must be positive")
	}
	if c.Preferences.Path == "" {
		return fmt.Errorf("preferences.path is required")
	}
	if c.Auth.Identity != "" && c.Auth.Password == "" {
		return fmt.Errorf("auth.password is required when auth.identity is set")
	}
	if c.Thumbnails.Quality < 1 || c.Thumbnails.Quality > 100 {
		return fmt.Errorf("thumbnails.quality must be between 1 and 100")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}

// SetDefaults sets default values for optional configuration fields
func (c *Config) SetDefaults() {
	if c.Remote.RequestsPerSecond == 0 {
		c.Remote.RequestsPerSecond = 10
	}
	if c.Remote.Burst == 0 {
		c.Remote.Burst = 20
	}

	if c.Preferences.Path == "" {
		c.Preferences.Path = "./picvault.sqlite"
	}

	if c.WebServer.Port == 0 {
		c.WebServer.Port = 8080
	}
	if c.WebServer.Host == "" {
		c.WebServer.Host = "localhost"
	}

	if c.Thumbnails.MaxWidth == 0 {
		c.Thumbnails.MaxWidth = 400
	}
	if c.Thumbnails.MaxHeight == 0 {
		c.Thumbnails.MaxHeight = 400
	}
	if c.Thumbnails.Quality == 0 {
		c.Thumbnails.Quality = 85
	}
	if c.Thumbnails.Directory == "" {
		c.Thumbnails.Directory = "./thumbnails"
	}
	if c.Thumbnails.VideoMethod == "" {
		c.Thumbnails.VideoMethod = "ffmpeg"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
