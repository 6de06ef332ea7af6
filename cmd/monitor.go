// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Detect and analyze malformed frames and anomalous targets",
	Long: `Track framing errors, resynchronizations and anomalous targets with statistics.

This command reads every frame and detects:
  - Malformed frames (bad preamble, length or postamble, truncation)
  - Resynchronizations where one frame kind interrupts the other
  - Anomalous targets (invalid pattern, out of range, high speed, duplicates)
  - Statistics and trends (frame rate, error rate)

By default, only errors are displayed. Use --show-all to display valid frames too.

Frames are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if useTUI {
		return runTUIMode(cmd.Context(), s)
	}
	return runTextMode(cmd.Context(), s)
}

// monitorEvent is one frame with everything the monitor derives from it.
type monitorEvent struct {
	frame     *ld2450.Frame
	decoding  ld2450.CoordinateDecoding
	group     *ld2450.TrackedObjectGroup
	anomalies []ld2450.ValidationError
}

// syncTracker drops framing errors until the first intact frame, since the
// port usually opens in the middle of a frame.
type syncTracker struct {
	synchronized bool
	skipped      int
}

// accept reports whether f should be shown and whether it completed the
// synchronization.
func (t *syncTracker) accept(f *ld2450.Frame) (show, synced bool) {
	if t.synchronized {
		return true, false
	}
	if f.Kind == ld2450.KindMalformed {
		t.skipped++
		return false, false
	}
	t.synchronized = true
	return true, true
}

func newMonitorEvent(f *ld2450.Frame, decoding ld2450.CoordinateDecoding) monitorEvent {
	ev := monitorEvent{frame: f, decoding: decoding}
	if f.IsReport() {
		if g, err := ld2450.DecodeFrame(f, decoding); err == nil {
			ev.group = g
			ev.anomalies = ld2450.ValidateGroup(g)
		}
	}
	return ev
}

// runTUIMode runs the monitor in TUI mode
func runTUIMode(ctx context.Context, s *session) error {
	m := initialModel(s.info, statsInterval, showAll, s.stats)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	go func() {
		var sync syncTracker
		decoding := s.client.Options().Decoding
		err := readFrames(ctx, s, 100*time.Millisecond, func(f *ld2450.Frame) {
			if f.TimedOut {
				return
			}
			show, synced := sync.accept(f)
			if synced {
				p.Send(syncMsg{skipped: sync.skipped})
			}
			if show {
				p.Send(frameMsg(newMonitorEvent(f, decoding)))
			}
		})
		p.Send(connectionLostMsg{err: err})
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs the monitor in text mode
func runTextMode(ctx context.Context, s *session) error {
	fmt.Printf("LD2450 - Frame Monitor\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	events := make(chan monitorEvent, 64)
	done := make(chan error, 1)
	go func() {
		decoding := s.client.Options().Decoding
		done <- readFrames(ctx, s, 100*time.Millisecond, func(f *ld2450.Frame) {
			if !f.TimedOut {
				events <- newMonitorEvent(f, decoding)
			}
		})
	}()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	var sync syncTracker
	for {
		select {
		case ev := <-events:
			show, synced := sync.accept(ev.frame)
			if synced {
				if sync.skipped > 0 {
					fmt.Printf("[SYNC] Synchronized after skipping %d malformed frames\n\n", sync.skipped)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}
			}
			if show {
				printMonitorEvent(ev)
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(s.stats.String())
			fmt.Println()

		case err := <-done:
			fmt.Println()
			fmt.Print(s.stats.String())
			return err
		}
	}
}

func printMonitorEvent(ev monitorEvent) {
	f := ev.frame
	timestamp := f.Timestamp.Format("15:04:05.000")

	switch {
	case f.Kind == ld2450.KindMalformed:
		fmt.Printf("[%s] \033[1;31mMALFORMED:\033[0m %s frame: %v\n", timestamp, f.Attempted, f.Err)
		if len(f.Raw) > 0 {
			fmt.Printf("  Raw: % X\n", f.Raw)
		}
		fmt.Printf("  >>> FRAME REJECTED <<<\n\n")

	case len(ev.anomalies) > 0:
		printValidationErrors(ev)

	case showAll:
		fmt.Print(ld2450.FormatFrame(f, ev.decoding))
	}
}

// printValidationErrors prints the anomalies found in a report
func printValidationErrors(ev monitorEvent) {
	timestamp := ev.frame.Timestamp.Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s\n", timestamp, ev.frame.Kind)

	for i, err := range ev.anomalies {
		switch err.Type {
		case ld2450.AnomalyInvalidPattern, ld2450.AnomalyDuplicateTarget:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
		default:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
		}
		if err.Slot >= 1 && err.Slot <= len(ev.group.Targets) {
			fmt.Printf("    %s\n", ld2450.FormatTarget(ev.group.Targets[err.Slot-1]))
		}
	}
	fmt.Printf("  >>> TARGET FLAGGED <<<\n\n")
}
