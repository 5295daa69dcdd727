package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mvandenburgh/dandidav/pkg/adapter/webdav"
	"github.com/spf13/viper"
)

// Config represents the complete dandidav configuration.
//
// This structure captures all configurable aspects of the gateway:
//   - Logging configuration
//   - Server-wide settings (shutdown, metrics endpoint)
//   - The WebDAV front end
//   - The archive's metadata API
//   - The S3 bucket holding Zarr content
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DANDIDAV_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// WebDAV configures the WebDAV listener.
	// Uses the webdav.Config type directly to avoid duplication.
	WebDAV webdav.Config `mapstructure:"webdav"`

	// Dandi configures the archive's metadata API
	Dandi DandiConfig `mapstructure:"dandi"`

	// S3 configures access to the bucket holding Zarr assets
	S3 S3Config `mapstructure:"s3"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json, logfmt
	Format string `mapstructure:"format" validate:"required,oneof=text json logfmt"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig configures metrics collection and its HTTP endpoint.
type MetricsConfig struct {
	// Enabled turns on collection and the /metrics endpoint
	Enabled bool `mapstructure:"enabled"`

	// Port the metrics server listens on
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// DandiConfig configures the archive's metadata API client.
type DandiConfig struct {
	// APIURL is the API root, e.g. https://api.dandiarchive.org/api/
	APIURL string `mapstructure:"api_url" validate:"required,http_url"`

	// PageSize is requested for every paginated listing
	PageSize int `mapstructure:"page_size" validate:"gt=0,lte=1000"`

	// Timeout bounds each API request
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// S3Config configures the S3 client used to list Zarr assets.
//
// The public archive bucket allows anonymous listing, so by default no
// credentials are looked up. Setting Anonymous to false uses the static
// keys below when given, or else the default AWS credential chain.
type S3Config struct {
	// Region of the bucket
	Region string `mapstructure:"region" validate:"required"`

	// Endpoint overrides the S3 endpoint (MinIO, Localstack, ...).
	// Enables path-style addressing.
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,http_url"`

	// Anonymous sends unsigned requests
	Anonymous bool `mapstructure:"anonymous"`

	// AccessKeyID and SecretAccessKey are static credentials
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// MaxRetries is the maximum number of attempts per S3 request
	MaxRetries int `mapstructure:"max_retries" validate:"min=0,max=20"`

	// Presign makes Zarr entry download URLs presigned GETs instead of
	// public object URLs. Requires credentials.
	Presign bool `mapstructure:"presign"`

	// PresignExpiry is the lifetime of presigned URLs
	PresignExpiry time.Duration `mapstructure:"presign_expiry" validate:"gt=0,lte=168h"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DANDIDAV_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// decodeHook converts the string forms found in files and environment
// variables: durations ("30s") and comma-separated lists
// (DANDIDAV_WEBDAV_CORS_ORIGINS=a,b).
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: DANDIDAV_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DANDIDAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	// ApplyDefaults cannot tell an explicit false from an unset bool.
	v.SetDefault("s3.anonymous", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/dandidav/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindEnvKeys registers every config key with viper. AutomaticEnv only
// consults the environment for keys viper already knows, so without this
// an environment variable cannot supply a key missing from the file.
func bindEnvKeys(v *viper.Viper) {
	var keys map[string]any
	if err := mapstructure.Decode(GetDefaultConfig(), &keys); err != nil {
		return
	}
	for _, key := range flattenKeys("", keys) {
		_ = v.BindEnv(key)
	}
}

func flattenKeys(prefix string, m map[string]any) []string {
	var keys []string
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			keys = append(keys, flattenKeys(key, nested)...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicit path that does not exist is treated like a missing
		// default file.
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dandidav")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dandidav")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
