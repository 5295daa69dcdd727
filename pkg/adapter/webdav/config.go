package webdav

import (
	"fmt"
	"time"
)

// Config holds the configuration of the WebDAV front end.
//
// Default values (applied by New if zero):
//   - Port: 8080
//   - ReadTimeout: 30s
//   - WriteTimeout: 60s
//   - IdleTimeout: 2m
//   - ShutdownTimeout: 30s
//   - Title: "dandidav"
type Config struct {
	// Port is the TCP port to listen on. 0 selects the default; -1 an
	// ephemeral port.
	Port int `mapstructure:"port" validate:"min=-1,max=65535"`

	// ReadTimeout bounds reading a request, including its body.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing a response. Listings of large
	// dandisets are fetched before the first byte is written, so this
	// must cover the slowest upstream listing.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// IdleTimeout closes keep-alive connections idle for longer.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout is how long in-flight requests get to complete on
	// shutdown when Serve's context is cancelled.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`

	// Title heads the HTML collection listings.
	Title string `mapstructure:"title"`

	// RateLimit throttles all requests together.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// CORSOrigins lists origins allowed to read responses from browsers.
	// Empty disables CORS headers.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// RateLimitConfig configures request throttling.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. 0 disables limiting.
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// Burst is the number of requests admitted at once. 0 means
	// RequestsPerSecond.
	Burst uint `mapstructure:"burst"`
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.Title == "" {
		c.Title = "dandidav"
	}
}

func (c *Config) validate() error {
	if c.Port < -1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be -1-65535", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}
