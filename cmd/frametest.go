// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
	"github.com/spf13/cobra"
)

var frameTestTimeout int

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test connection by waiting for a valid LD2450 frame",
	Long: `Wait for a valid LD2450 frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any complete
frame with intact preamble, length and postamble. Malformed frames are counted
and skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking wiring, baud rate and WebSocket bridges.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("LD2450 - Frame Test\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for valid LD2450 frame...\n\n")

	frameChan := make(chan *ld2450.Frame, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := s.client.Reader()
		malformed := 0
		for {
			f, err := reader.ReadFrame(100 * time.Millisecond)
			if err != nil {
				errChan <- err
				return
			}
			if f.TimedOut {
				continue
			}
			if f.Kind == ld2450.KindMalformed {
				malformed++
				continue
			}
			if malformed > 0 {
				fmt.Printf("(skipped %d malformed frames before sync)\n", malformed)
			}
			frameChan <- f
			return
		}
	}()

	select {
	case f := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Kind: %s\n", f.Kind)
		fmt.Printf("  Length: %d bytes\n", len(f.Payload))
		if op, ok := f.Opcode(); ok {
			fmt.Printf("  Command: %s (%s)\n", ld2450.FormatCommandName(op), ld2450.FormatOpcode(op))
		}
		if f.IsReport() {
			g, err := ld2450.DecodeFrame(f, s.client.Options().Decoding)
			if err == nil {
				fmt.Printf("  Targets: %d\n", g.Count())
			}
		}
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(frameTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", frameTestTimeout)
		os.Exit(1)

	case <-cmd.Context().Done():
		os.Exit(1)
	}

	return nil
}
