package inference

import (
	"time"

	"github.com/okian/clutch/pkg/logger"
)

// Config configures the provider connection and call defaults.
type Config struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`

	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerMinute float64       `koanf:"requests_per_minute"`
	Burst             int           `koanf:"burst"`

	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`
	MaxLength   int     `koanf:"max_length"`
}

// DefaultConfig returns the stock inference configuration.
func DefaultConfig() Config {
	return Config{
		Model:             "gpt-4o-mini",
		Timeout:           20 * time.Second,
		RequestsPerMinute: 10,
		Burst:             2,
		MaxTokens:         120,
		Temperature:       0.7,
		MaxLength:         150,
	}
}

// CallConfig tunes a single call. Zero values fall back to the client config.
type CallConfig struct {
	MaxTokens   int
	Temperature float64
	MaxLength   int
}

// Option configures a Client.
type Option func(*Client)

// WithConfig replaces the default configuration. Zero values keep the default.
func WithConfig(c Config) Option {
	return func(cl *Client) {
		cl.cfg = merge(c)
	}
}

func merge(c Config) Config {
	def := DefaultConfig()
	def.BaseURL = c.BaseURL
	def.APIKey = c.APIKey
	if c.Model != "" {
		def.Model = c.Model
	}
	if c.Timeout > 0 {
		def.Timeout = c.Timeout
	}
	if c.RequestsPerMinute > 0 {
		def.RequestsPerMinute = c.RequestsPerMinute
	}
	if c.Burst > 0 {
		def.Burst = c.Burst
	}
	if c.MaxTokens > 0 {
		def.MaxTokens = c.MaxTokens
	}
	if c.Temperature > 0 {
		def.Temperature = c.Temperature
	}
	if c.MaxLength > 0 {
		def.MaxLength = c.MaxLength
	}
	return def
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}
