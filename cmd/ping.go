// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
	"github.com/spf13/cobra"
)

var (
	pingTimeout int
	pingCount   int
)

const pingInterval = 500 * time.Millisecond

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test bidirectional communication with a config mode round trip",
	Long: `Enter and leave configuration mode repeatedly and time each round trip.

The enable_config acknowledgement proves the module receives commands, and the
first tracking report after disable_config proves it resumed. Unlike
frame_test, this checks both directions of the link.

A synthesized acknowledgement (the module stayed silent but the command is
treated as successful) is not distinguished from a real one; use --log-level
debug to see every frame.

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 5, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVarP(&pingCount, "count", "c", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("LD2450 - Ping\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Count: %d, Timeout: %d seconds\n\n", pingCount, pingTimeout)

	if err := s.powerUp(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Power up wait interrupted: %v\n", err)
		os.Exit(1)
	}

	sent, successful := 0, 0
	var total time.Duration
	for i := 1; i <= pingCount; i++ {
		sent++
		s.drain()
		rtt, err := pingOnce(ctx, s.client, time.Duration(pingTimeout)*time.Second)
		if err != nil {
			fmt.Printf("Ping %d: FAILED (%v)\n", i, err)
		} else {
			successful++
			total += rtt
			fmt.Printf("Ping %d: %v\n", i, rtt.Round(time.Microsecond))
		}
		if i == pingCount || !pause(ctx, pingInterval) {
			break
		}
	}

	fmt.Printf("\n--- Ping Statistics ---\n")
	fmt.Printf("%d sent, %d successful, %d failed\n", sent, successful, sent-successful)
	if successful > 0 {
		fmt.Printf("Average round trip: %v\n", (total / time.Duration(successful)).Round(time.Microsecond))
	}
	snap := s.stats.Snapshot()
	fmt.Printf("Retries: %d, discarded frames: %d\n", snap.Retries, snap.DiscardedFrames)

	if successful < pingCount {
		// Interrupted runs count as failed
		os.Exit(1)
	}
	return nil
}

// pause waits d and reports false when ctx ended first.
func pause(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// pingOnce runs one enable/disable config round trip.
func pingOnce(ctx context.Context, c *ld2450.Client, timeout time.Duration) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := c.EnterConfigMode(ctx); err != nil {
		return 0, fmt.Errorf("enter config mode: %w", err)
	}
	if err := c.ExitConfigMode(ctx); err != nil {
		return 0, fmt.Errorf("exit config mode: %w", err)
	}
	return time.Since(start), nil
}
