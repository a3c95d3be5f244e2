// Package main implements the dirstore command line tool, a thin shell
// around the store engine for inspecting and editing collections of raw
// JSON documents from scripts and terminals.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/dirstore/dirstore/internal/adapter"
	"github.com/dirstore/dirstore/internal/config"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "dirstore"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	logger, logCloser, err := cfg.Logging.OpenLogger(os.Stderr)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer func() { _ = logCloser.Close() }()
	}
	slog.SetDefault(logger)

	if cliCfg.Validate {
		slog.Info("configuration is valid")
		return nil
	}

	if cliCfg.Command == "" {
		printDetailedHelp()
		return fmt.Errorf("no command given")
	}

	// Let Ctrl-C cancel in-flight gateway calls instead of killing the
	// process mid write.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := adapter.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := a.Stop(context.Background()); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	return runCommand(ctx, a.Store(), os.Stdin, os.Stdout, cliCfg.Command, cliCfg.Args)
}

// initializeConfiguration layers defaults, the optional config file, the
// environment, and finally the CLI overrides.
func initializeConfiguration(cliCfg *CLIConfig) (*config.Configuration, error) {
	cfg := config.NewDefault()

	if cliCfg.ConfigPath != "" {
		if err := cfg.LoadFromFile(cliCfg.ConfigPath); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if cliCfg.StoreURI != "" {
		if err := adapter.ApplyStorageURI(cfg, cliCfg.StoreURI); err != nil {
			return nil, fmt.Errorf("invalid store URI: %w", err)
		}
	}
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = strings.ToUpper(cliCfg.LogLevel)
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = strings.ToLower(cliCfg.LogFormat)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
