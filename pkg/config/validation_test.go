package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Fatalf("Expected valid config, got error: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "InvalidLogLevel",
			mutate:  func(c *Config) { c.Logging.Level = "TRACE" },
			wantErr: "Level",
		},
		{
			name:    "InvalidLogFormat",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "Format",
		},
		{
			name:    "ZeroShutdownTimeout",
			mutate:  func(c *Config) { c.Server.ShutdownTimeout = 0 },
			wantErr: "ShutdownTimeout",
		},
		{
			name:    "MetricsPortOutOfRange",
			mutate:  func(c *Config) { c.Server.Metrics.Port = 70000 },
			wantErr: "Port",
		},
		{
			name:    "APIURLNotHTTP",
			mutate:  func(c *Config) { c.Dandi.APIURL = "ftp://example.org/" },
			wantErr: "APIURL",
		},
		{
			name:    "PageSizeTooLarge",
			mutate:  func(c *Config) { c.Dandi.PageSize = 5000 },
			wantErr: "PageSize",
		},
		{
			name:    "NegativeAPITimeout",
			mutate:  func(c *Config) { c.Dandi.Timeout = -time.Second },
			wantErr: "Timeout",
		},
		{
			name:    "InvalidEndpoint",
			mutate:  func(c *Config) { c.S3.Endpoint = "not a url" },
			wantErr: "Endpoint",
		},
		{
			name:    "PresignExpiryTooLong",
			mutate:  func(c *Config) { c.S3.PresignExpiry = 30 * 24 * time.Hour },
			wantErr: "PresignExpiry",
		},
		{
			name: "AccessKeyWithoutSecret",
			mutate: func(c *Config) {
				c.S3.Anonymous = false
				c.S3.AccessKeyID = "AKIA"
			},
			wantErr: "set together",
		},
		{
			name: "AnonymousWithKeys",
			mutate: func(c *Config) {
				c.S3.AccessKeyID = "AKIA"
				c.S3.SecretAccessKey = "secret"
			},
			wantErr: "anonymous",
		},
		{
			name:    "PresignAnonymous",
			mutate:  func(c *Config) { c.S3.Presign = true },
			wantErr: "presign",
		},
		{
			name:    "EphemeralWebDAVPort",
			mutate:  func(c *Config) { c.WebDAV.Port = -1 },
			wantErr: "ephemeral",
		},
		{
			name:    "NegativeWebDAVTimeout",
			mutate:  func(c *Config) { c.WebDAV.IdleTimeout = -time.Second },
			wantErr: "IdleTimeout",
		},
		{
			name: "MetricsPortClash",
			mutate: func(c *Config) {
				c.Server.Metrics.Enabled = true
				c.Server.Metrics.Port = c.WebDAV.Port
			},
			wantErr: "already used",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_PresignWithCredentials(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.S3.Anonymous = false
	cfg.S3.AccessKeyID = "AKIA"
	cfg.S3.SecretAccessKey = "secret"
	cfg.S3.Presign = true

	if err := Validate(cfg); err != nil {
		t.Fatalf("Expected valid config, got error: %v", err)
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	for _, level := range []string{"debug", "Info", "WARN", "error"} {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level
		ApplyDefaults(cfg)

		if err := Validate(cfg); err != nil {
			t.Errorf("Level %q: unexpected error: %v", level, err)
		}
		if cfg.Logging.Level != strings.ToUpper(level) {
			t.Errorf("Level %q not normalized: %q", level, cfg.Logging.Level)
		}
	}
}
