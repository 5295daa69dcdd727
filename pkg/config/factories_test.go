package config

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/mvandenburgh/dandidav/pkg/metrics"
)

func TestNewAPIClient(t *testing.T) {
	cfg := GetDefaultConfig()

	client, err := NewAPIClient(&cfg.Dandi, nil, "dandidav/test")
	if err != nil {
		t.Fatalf("NewAPIClient failed: %v", err)
	}
	if client == nil {
		t.Fatal("Expected a client")
	}

	cfg.Dandi.APIURL = "::not-a-url"
	if _, err := NewAPIClient(&cfg.Dandi, nil, ""); err == nil {
		t.Error("Expected error for invalid API URL")
	}
}

func TestNewS3Client(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*S3Config)
	}{
		{"Anonymous", func(*S3Config) {}},
		{"StaticCredentials", func(c *S3Config) {
			c.Anonymous = false
			c.AccessKeyID = "AKIAEXAMPLE"
			c.SecretAccessKey = "secret"
			c.Presign = true
		}},
		{"CustomEndpoint", func(c *S3Config) { c.Endpoint = "http://localhost:9000" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig().S3
			tt.mutate(&cfg)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			client, err := NewS3Client(ctx, &cfg, nil)
			if err != nil {
				t.Fatalf("NewS3Client failed: %v", err)
			}
			if client == nil {
				t.Fatal("Expected a client")
			}
		})
	}
}

func TestLoadAWSConfig_Anonymous(t *testing.T) {
	cfg := GetDefaultConfig().S3

	awsCfg, err := loadAWSConfig(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("loadAWSConfig failed: %v", err)
	}
	if awsCfg.Region != DefaultS3Region {
		t.Errorf("Expected region %q, got %q", DefaultS3Region, awsCfg.Region)
	}

	if !aws.IsCredentialsProvider(awsCfg.Credentials, aws.AnonymousCredentials{}) {
		t.Errorf("Expected anonymous credentials, got %T", awsCfg.Credentials)
	}
	if got := awsCfg.Retryer().MaxAttempts(); got != cfg.MaxRetries {
		t.Errorf("Expected %d attempts, got %d", cfg.MaxRetries, got)
	}
}

func TestCreateAdapters(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.WebDAV.Port = 8181

	adapters := CreateAdapters(cfg, nil)
	if len(adapters) != 1 {
		t.Fatalf("Expected 1 adapter, got %d", len(adapters))
	}
	if adapters[0].Protocol() != "WebDAV" {
		t.Errorf("Expected WebDAV adapter, got %s", adapters[0].Protocol())
	}
	if adapters[0].Port() != 8181 {
		t.Errorf("Expected port 8181, got %d", adapters[0].Port())
	}
}

func TestInitializeMetrics(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		res := InitializeMetrics(GetDefaultConfig())
		if res.Server != nil {
			t.Error("Expected no metrics server")
		}
		if res.DAVMetrics == nil {
			t.Error("Expected no-op DAV metrics")
		}
		if res.Backend.API != nil || res.Backend.S3 != nil {
			t.Error("Expected no backend metrics")
		}
	})

	// Registers collectors in the process-wide registry; runs once.
	t.Run("Enabled", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Server.Metrics.Enabled = true
		cfg.Server.Metrics.Port = 9191

		res := InitializeMetrics(cfg)
		if !metrics.IsEnabled() {
			t.Fatal("Expected registry to be initialized")
		}
		if res.Server == nil || res.Server.Port() != 9191 {
			t.Error("Expected metrics server on port 9191")
		}
		if res.Backend.API == nil || res.Backend.S3 == nil {
			t.Error("Expected backend metrics")
		}
	})
}
