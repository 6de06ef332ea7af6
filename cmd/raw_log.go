// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rawLogShowTimeouts bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw frame log in human-readable format",
	Long: `Continuously decode and display LD2450 frames as they arrive.

Each frame is shown with its timestamp and kind. Tracking reports list the
occupied target slots, configuration acknowledgements show the command, status
and data, and malformed frames show the failure and the raw bytes read.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogShowTimeouts, "show-timeouts", false, "Print a line for every second without frames")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("LD2450 - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoding := s.client.Options().Decoding
	return readFrames(cmd.Context(), s, time.Second, func(f *ld2450.Frame) {
		if f.TimedOut && !rawLogShowTimeouts {
			return
		}
		fmt.Print(ld2450.FormatFrame(f, decoding))
	})
}

// readFrames passes every frame read from the session to fn until ctx is done
// or the connection closes.
func readFrames(ctx context.Context, s *session, timeout time.Duration, fn func(*ld2450.Frame)) error {
	reader := s.client.Reader()
	for ctx.Err() == nil {
		f, err := reader.ReadFrame(timeout)
		if f != nil {
			fn(f)
		}
		if err != nil {
			if errors.Is(err, ErrConnectionClosed) {
				log.Info("connection closed")
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
	}
	log.Debug("stopped reading", zap.Error(ctx.Err()))
	return nil
}
