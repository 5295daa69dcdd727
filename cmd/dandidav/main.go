package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvandenburgh/dandidav/internal/logger"
	"github.com/mvandenburgh/dandidav/pkg/config"
	"github.com/mvandenburgh/dandidav/pkg/dandi"
	"github.com/mvandenburgh/dandidav/pkg/dav"
	"github.com/mvandenburgh/dandidav/pkg/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const usage = `dandidav - WebDAV gateway to the DANDI Archive

Usage:
  dandidav <command> [flags]

Commands:
  init      Write a default configuration file
  start     Start the WebDAV server (default)
  version   Print the version

Flags:
  --config string   Path to config file (default: $XDG_CONFIG_HOME/dandidav/config.yaml)
  --force           Overwrite an existing config file (init only)
`

func main() {
	args := os.Args[1:]
	command := "start"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	var err error
	switch command {
	case "init":
		err = runInit(args)
	case "start":
		err = runStart(args)
	case "version":
		fmt.Printf("dandidav %s\n", version)
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", command, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to write the config file (default: "+config.GetDefaultConfigPath()+")")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	_ = fs.Parse(args)

	path := *configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	return nil
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if err := configureLogging(cfg.Logging); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("dandidav %s starting", version)
	logger.Info("Log level: %s, format: %s", cfg.Logging.Level, cfg.Logging.Format)

	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	apiClient, err := config.NewAPIClient(&cfg.Dandi, metricsResult.Backend.API, "dandidav/"+version)
	if err != nil {
		return err
	}
	s3Client, err := config.NewS3Client(ctx, &cfg.S3, metricsResult.Backend.S3)
	if err != nil {
		return err
	}

	service := dav.NewService(dandi.NewResolver(apiClient, s3Client))

	srv := server.New(service, server.Config{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	for _, a := range config.CreateAdapters(cfg, metricsResult.DAVMetrics) {
		if err := srv.AddAdapter(a); err != nil {
			return fmt.Errorf("failed to add %s adapter: %w", a.Protocol(), err)
		}
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// configureLogging applies the logging section of the config.
func configureLogging(cfg config.LoggingConfig) error {
	logger.SetLevel(cfg.Level)
	if err := logger.SetFormat(cfg.Format); err != nil {
		return err
	}
	if err := logger.SetOutput(cfg.Output); err != nil {
		return fmt.Errorf("failed to configure log output: %w", err)
	}
	return nil
}
