package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"visaflow/internal/config"
	"visaflow/internal/logging"
	"visaflow/internal/store"
)

// logLevel is resolved once in setupLogging and reused when the config adds
// a file sink.
var logLevel slog.Level

// setupLogging initializes the structured logger before any command runs.
// Logs always go to stderr; stdout stays clean for command output and the
// MCP stdio transport.
func setupLogging(cmd *cobra.Command, _ []string) error {
	level, err := parseLevel(rootFlags.logLevel)
	if err != nil {
		return err
	}
	logLevel = level
	logging.Init(level, rootFlags.logFormat)
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// loadConfig reads the --config file, or returns defaults when none is given.
// Commands that submit require a URL either way.
func loadConfig(requireURL bool) (*config.Config, error) {
	var cfg *config.Config
	if rootFlags.configPath == "" {
		cfg = config.Default()
	} else {
		var err error
		cfg, err = config.LoadFromPath(rootFlags.configPath)
		if err != nil {
			return nil, err
		}
	}
	if requireURL && cfg.URL == "" {
		return nil, fmt.Errorf("no form URL configured (set url in the config file)")
	}
	if cfg.Output.LogDir != "" {
		// The file handle lives for the process; stderr keeps a copy.
		if _, err := logging.InitWithFile(logLevel, rootFlags.logFormat, cfg.Output.LogDir, "visaflow"); err != nil {
			logging.New("cli").Warn("file logging unavailable", "error", err)
		}
	}
	return cfg, nil
}

// openHistory opens the submission history store, or returns nil when the
// store path is empty (recording disabled).
func openHistory(cfg *config.Config) (store.Store, error) {
	if cfg.StorePath == "" {
		return nil, nil
	}
	return store.Open(cfg.StorePath)
}
