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

var (
	linkTestDuration int
	linkTestHexdump  bool
)

var linkTestCmd = &cobra.Command{
	Use:   "link_test",
	Short: "Test raw connection stability without decoding",
	Long: `Read the raw byte stream for a fixed time and report throughput.

This command does not decode frames or send commands. It is useful for debugging
serial wiring, baud rate mismatches and WebSocket bridges that drop the link.
A module streaming reports at its nominal rate shows roughly 300 bytes/s per
10 Hz of report rate.

Exit codes:
  0 - Test completed normally
  1 - Connection failed during the test
  2 - Connection error`,
	RunE: runLinkTest,
}

func init() {
	rootCmd.AddCommand(linkTestCmd)
	linkTestCmd.Flags().IntVar(&linkTestDuration, "duration", 30, "Test duration in seconds")
	linkTestCmd.Flags().BoolVar(&linkTestHexdump, "hexdump", false, "Print every chunk received")
}

func runLinkTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("LD2450 - Link Stability Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", linkTestDuration)

	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				readChan <- data
			}
		}
	}()

	start := time.Now()
	endTime := start.Add(time.Duration(linkTestDuration) * time.Second)
	bytesReceived := 0
	chunksReceived := 0
	startBytes := 0

	fmt.Printf("Listening for data...\n\n")

	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	for time.Now().Before(endTime) {
		select {
		case data := <-readChan:
			bytesReceived += len(data)
			chunksReceived++
			for _, b := range data {
				if b == ld2450.ReportStartByte || b == ld2450.ConfigStartByte {
					startBytes++
				}
			}
			if linkTestHexdump {
				fmt.Printf("[%s] Received %d bytes: % X\n",
					time.Now().Format("15:04:05.000"), len(data), data)
			}

		case err := <-errChan:
			fmt.Printf("\n[%s] Connection error: %v\n",
				time.Now().Format("15:04:05.000"), err)
			printLinkResults(time.Since(start), chunksReceived, bytesReceived, startBytes)
			fmt.Printf("Result: FAILED (connection error)\n")
			os.Exit(1)

		case <-heartbeat.C:
			remaining := time.Until(endTime).Seconds()
			fmt.Printf("[%s] Still connected... %d bytes (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), bytesReceived, remaining)

		case <-cmd.Context().Done():
			endTime = time.Now()
		}
	}

	printLinkResults(time.Since(start), chunksReceived, bytesReceived, startBytes)
	if bytesReceived == 0 {
		fmt.Printf("Result: FAILED (no data, check wiring and baud rate)\n")
		os.Exit(1)
	}
	fmt.Printf("Result: PASSED (connection stable)\n")
	return nil
}

func printLinkResults(elapsed time.Duration, chunks, bytes, startBytes int) {
	fmt.Printf("\n--- Test Results ---\n")
	fmt.Printf("Duration: %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Chunks received: %d\n", chunks)
	fmt.Printf("Bytes received: %d\n", bytes)
	if secs := elapsed.Seconds(); secs > 0 {
		fmt.Printf("Throughput: %.1f bytes/s\n", float64(bytes)/secs)
	}
	fmt.Printf("Frame start bytes seen: %d\n", startBytes)
}
