package config

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/cliui"
	"github.com/papercomputeco/opencode-go/pkg/logger"
)

// Persistent flag names registered by the root command.
const (
	FlagConfigDir = "config-dir"
	FlagDebug     = "debug"
)

// ResolveCommand builds the effective Config for cmd. It reads config.toml
// from --config-dir (or the default dotdir), applies OCGO_ environment
// variables and binds the registered flags named by registryKeys on top.
// --debug forces log.debug on.
func ResolveCommand(cmd *cobra.Command, registryKeys []string) (*Config, error) {
	configDir, _ := cmd.Flags().GetString(FlagConfigDir)

	v, err := InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	BindRegisteredFlags(v, cmd, Flags, registryKeys)

	cfg := FromViper(v)
	if debug, err := cmd.Flags().GetBool(FlagDebug); err == nil && debug {
		cfg.Log.Debug = true
	}
	return cfg, nil
}

// NewLogger builds the logger described by cfg.Log: a console logger on
// console, plus a JSON logger appending to log.file when one is set. The
// returned func syncs the loggers and closes the file.
func NewLogger(cfg *Config, console io.Writer) (*zap.Logger, func(), error) {
	consoleLogger := logger.New(
		logger.WithDebug(cfg.Log.Debug),
		logger.WithWriter(console),
		logger.WithColor(cliui.IsTerminal(console)),
	)

	if cfg.Log.File == "" {
		return consoleLogger, func() { _ = consoleLogger.Sync() }, nil
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	fileLogger := logger.New(
		logger.WithDebug(cfg.Log.Debug),
		logger.WithWriter(f),
		logger.WithJSON(true),
	)

	combined := logger.Multi(consoleLogger, fileLogger)
	return combined, func() {
		_ = combined.Sync()
		_ = f.Close()
	}, nil
}
