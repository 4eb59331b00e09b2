package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	// WebSocket limits.
	MaxMessageBytes int64    `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	EventBuffer     int      `mapstructure:"event_buffer" yaml:"event_buffer"`
	RateLimit       float64  `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst       int      `mapstructure:"rate_burst" yaml:"rate_burst"`
	AllowedOrigins  []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// RingTimeout bounds how long a call may stay unanswered.
	RingTimeout time.Duration `mapstructure:"ring_timeout" yaml:"ring_timeout"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTRequired bool   `mapstructure:"jwt_required" yaml:"jwt_required"`

	LiveKit LiveKitConfig `mapstructure:"livekit" yaml:"livekit"`
}

// LiveKitConfig configures the media-session provider credentials.
type LiveKitConfig struct {
	URL        string        `mapstructure:"url" yaml:"url"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	APISecret  string        `mapstructure:"api_secret" yaml:"api_secret"`
	RoomPrefix string        `mapstructure:"room_prefix" yaml:"room_prefix"`
	TokenTTL   time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// Enabled reports whether enough settings are present to mint tokens.
func (l LiveKitConfig) Enabled() bool {
	return l.URL != "" && l.APIKey != "" && l.APISecret != ""
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":5000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		MaxMessageBytes:   1 << 20,
		EventBuffer:       64,
		RateLimit:         20,
		RateBurst:         40,
		RingTimeout:       30 * time.Second,
		LiveKit: LiveKitConfig{
			RoomPrefix: "project",
			TokenTTL:   time.Hour,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.RingTimeout != 0 {
		c.RingTimeout = other.RingTimeout
	}
}
