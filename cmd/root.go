// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/ld2450/pkg/config"
	"github.com/Thermoquad/ld2450/pkg/ld2450"
	"github.com/Thermoquad/ld2450/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string

	// Loaded in PersistentPreRunE
	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ld2450",
	Short: "HLK-LD2450 mmWave radar tool",
	Long: `ld2450 - A CLI tool for tracking, configuring and diagnosing the HLK-LD2450
24 GHz mmWave radar over its serial protocol.

Provides commands for raw frame logging, live target tracking, link diagnostics,
capture and replay, MQTT publishing and module configuration.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 256000]
  WebSocket: --url ws://host/path [--username user]

Settings are read from ./ld2450.yaml (or --config), LD2450_* environment
variables and flags, in increasing order of precedence.

For WebSocket authentication, the password is read from the LD2450_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		logger, err := logging.New(loaded.Logging)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		cfg, log = loaded, logger
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./ld2450.yaml)")

	// Serial connection flags
	flags.StringP("port", "p", "", "Serial port device")
	flags.IntP("baud", "b", ld2450.DefaultBaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	flags.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	flags.String("username", "admin", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Logging flags
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console, json)")
	flags.String("log-file", "", "Also write logs to this file, with rotation")

	// Driver flags
	flags.Duration("power-up-delay", ld2450.DefaultPowerUpDelay, "Wait after opening the port before the first command")
	flags.Int("max-attempts", ld2450.DefaultMaxAttempts, "Command attempts before giving up (0 = unbounded)")
	flags.Int("max-waits", ld2450.DefaultMaxWaits, "Unproductive reads per attempt (0 = unbounded)")
	flags.String("decoding", ld2450.DecodingDocumented.String(), "Report coordinate decoding (documented, legacy-sum)")
	flags.Bool("zones-live", false, "Query the module for zone filtering instead of reporting the default")
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
