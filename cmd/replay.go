// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	replayRaw       bool
	replayRealtime  bool
	replayStatsOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture>",
	Short: "Replay a capture recorded by track --record",
	Long: `Read a CBOR capture file and print its frames.

Reports are decoded with the decoding recorded in the capture header unless
--decoding is given explicitly. A statistics summary is printed at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayRaw, "raw", false, "Print every frame as raw_log does")
	replayCmd.Flags().BoolVar(&replayRealtime, "realtime", false, "Sleep between frames to reproduce the original timing")
	replayCmd.Flags().BoolVar(&replayStatsOnly, "stats-only", false, "Only print the statistics summary")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer file.Close()

	cr, err := ld2450.NewCaptureReader(file)
	if err != nil {
		return err
	}

	decoding, err := ld2450.ParseCoordinateDecoding(cr.Header.Decoding)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("decoding") {
		decoding, _ = ld2450.ParseCoordinateDecoding(cfg.Driver.Decoding)
	}

	stats := ld2450.NewStatistics()
	stats.Decoding = decoding

	if !replayStatsOnly {
		fmt.Printf("LD2450 - Capture Replay\n")
		fmt.Printf("Session: %s\n", cr.Header.Session)
		fmt.Printf("Started: %s\n", time.UnixMicro(cr.Header.Started).Format(time.RFC3339))
		fmt.Printf("Decoding: %s\n\n", decoding)
	}

	var last time.Time
	for ctx.Err() == nil {
		rec, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		f := rec.Frame()
		stats.FrameReceived(f)

		if replayRealtime && !last.IsZero() {
			if gap := f.Timestamp.Sub(last); gap > 0 {
				time.Sleep(gap)
			}
		}
		last = f.Timestamp

		if replayStatsOnly {
			continue
		}
		if replayRaw || !f.IsReport() {
			fmt.Print(ld2450.FormatFrame(f, decoding))
			continue
		}
		g, err := ld2450.DecodeFrame(f, decoding)
		if err != nil {
			log.Warn("undecodable report", zap.Error(err))
			continue
		}
		if !g.IsEmpty() {
			printGroup(g)
		}
	}

	fmt.Println()
	fmt.Print(stats.String())
	return nil
}
