package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "info"

webdav:
  port: 8081
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.WebDAV.Port != 8081 {
		t.Errorf("Expected webdav port 8081, got %d", cfg.WebDAV.Port)
	}
	if cfg.Dandi.APIURL != DefaultAPIURL {
		t.Errorf("Expected default API URL, got %q", cfg.Dandi.APIURL)
	}
	if !cfg.S3.Anonymous {
		t.Error("Expected anonymous S3 access by default")
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// An explicit path keeps the user's own config out of the test.
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if !reflect.DeepEqual(cfg, GetDefaultConfig()) {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
dandi:
  api_url: "ftp://example.org/"
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for non-HTTP API URL")
	}
}

func TestLoad_Durations(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
server:
  shutdown_timeout: 5s
webdav:
  write_timeout: 2m
dandi:
  timeout: 1m30s
s3:
  anonymous: false
  presign: true
  presign_expiry: 15m
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected 5s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.WebDAV.WriteTimeout != 2*time.Minute {
		t.Errorf("Expected 2m, got %v", cfg.WebDAV.WriteTimeout)
	}
	if cfg.WebDAV.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected webdav shutdown timeout to follow server, got %v", cfg.WebDAV.ShutdownTimeout)
	}
	if cfg.Dandi.Timeout != 90*time.Second {
		t.Errorf("Expected 1m30s, got %v", cfg.Dandi.Timeout)
	}
	if cfg.S3.Anonymous {
		t.Error("Expected explicit anonymous: false to be kept")
	}
	if cfg.S3.PresignExpiry != 15*time.Minute {
		t.Errorf("Expected 15m, got %v", cfg.S3.PresignExpiry)
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[webdav]
title = "DANDI Archive"

[webdav.rate_limit]
requests_per_second = 50
burst = 100
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.WebDAV.Title != "DANDI Archive" {
		t.Errorf("Expected title 'DANDI Archive', got %q", cfg.WebDAV.Title)
	}
	if cfg.WebDAV.RateLimit.RequestsPerSecond != 50 || cfg.WebDAV.RateLimit.Burst != 100 {
		t.Errorf("Expected rate limit 50/100, got %+v", cfg.WebDAV.RateLimit)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DANDIDAV_LOGGING_LEVEL", "ERROR")
	t.Setenv("DANDIDAV_WEBDAV_PORT", "9000")
	t.Setenv("DANDIDAV_DANDI_PAGE_SIZE", "50")
	t.Setenv("DANDIDAV_WEBDAV_CORS_ORIGINS", "https://a.example,https://b.example")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"
webdav:
  port: 8080
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.WebDAV.Port != 9000 {
		t.Errorf("Expected port 9000 from env var, got %d", cfg.WebDAV.Port)
	}
	// Not present in the file at all.
	if cfg.Dandi.PageSize != 50 {
		t.Errorf("Expected page size 50 from env var, got %d", cfg.Dandi.PageSize)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.WebDAV.CORSOrigins, want) {
		t.Errorf("Expected CORS origins %v, got %v", want, cfg.WebDAV.CORSOrigins)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	if got := GetDefaultConfigPath(); got != "/tmp/xdg/dandidav/config.yaml" {
		t.Errorf("Expected XDG config path, got %q", got)
	}
	if got := GetConfigDir(); filepath.Base(got) != "dandidav" {
		t.Errorf("Expected directory name 'dandidav', got %q", got)
	}
}

func TestConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if ConfigExists() {
		t.Fatal("Expected no config in an empty config home")
	}
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if !ConfigExists() {
		t.Error("Expected config to exist after InitConfig")
	}
}

func TestFlattenKeys(t *testing.T) {
	keys := flattenKeys("", map[string]any{
		"logging": map[string]any{"level": "INFO"},
		"webdav":  map[string]any{"rate_limit": map[string]any{"burst": 1}},
	})

	got := map[string]bool{}
	for _, k := range keys {
		got[k] = true
	}
	if len(keys) != 2 || !got["logging.level"] || !got["webdav.rate_limit.burst"] {
		t.Errorf("Unexpected keys: %v", keys)
	}
}
