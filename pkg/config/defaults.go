package config

import (
	"strings"
	"time"

	"github.com/mvandenburgh/dandidav/pkg/dandi/api"
)

// Default values for the archive endpoints.
const (
	DefaultAPIURL   = api.DefaultBaseURL
	DefaultS3Region = "us-east-2"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Booleans keep their value; their defaults come from Load
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyWebDAVDefaults(cfg)
	applyDandiDefaults(&cfg.Dandi)
	applyS3Defaults(&cfg.S3)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// applyWebDAVDefaults sets WebDAV listener defaults. The adapter applies
// the same defaults itself; they are filled in here so that generated
// config files and schema show them.
func applyWebDAVDefaults(cfg *Config) {
	w := &cfg.WebDAV
	if w.Port == 0 {
		w.Port = 8080
	}
	if w.ReadTimeout == 0 {
		w.ReadTimeout = 30 * time.Second
	}
	if w.WriteTimeout == 0 {
		w.WriteTimeout = 60 * time.Second
	}
	if w.IdleTimeout == 0 {
		w.IdleTimeout = 2 * time.Minute
	}
	if w.ShutdownTimeout == 0 {
		// In-flight requests get the same budget as the whole server.
		w.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}
	if w.Title == "" {
		w.Title = "dandidav"
	}
	if w.CORSOrigins == nil {
		w.CORSOrigins = []string{}
	}
}

// applyDandiDefaults sets metadata API defaults.
func applyDandiDefaults(cfg *DandiConfig) {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 200
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
}

// applyS3Defaults sets S3 defaults.
func applyS3Defaults(cfg *S3Config) {
	if cfg.Region == "" {
		cfg.Region = DefaultS3Region
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = time.Hour
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		S3: S3Config{Anonymous: true},
	}
	ApplyDefaults(cfg)
	return cfg
}
