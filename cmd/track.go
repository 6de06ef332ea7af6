// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Thermoquad/ld2450/pkg/instrument"
	"github.com/Thermoquad/ld2450/pkg/ld2450"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	trackRecordFile string
	trackOpts       trackOptions
)

// trackOptions selects which groups trackGroups hands on.
type trackOptions struct {
	rate     float64 // groups per second, 0 = all
	validate bool
	empty    bool
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Print tracked targets as reports arrive",
	Long: `Decode tracking reports and print the occupied target slots.

Output is throttled to --rate groups per second; reports in between are still
decoded, counted and recorded. With --record every frame is appended to a
CBOR capture file that the replay command can read back.

With --metrics-addr a Prometheus endpoint is served while tracking.`,
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
	trackCmd.Flags().StringVar(&trackRecordFile, "record", "", "Record frames to a capture file")
	trackCmd.Flags().Float64Var(&trackOpts.rate, "rate", 10, "Maximum groups printed per second (0 = all)")
	trackCmd.Flags().BoolVar(&trackOpts.validate, "validate", true, "Warn about anomalous target values")
	trackCmd.Flags().BoolVar(&trackOpts.empty, "show-empty", false, "Print reports without targets")
	trackCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9450)")
}

func runTrack(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	observers, stopMetrics, err := startMetrics()
	if err != nil {
		return err
	}
	defer stopMetrics()

	sessionID := uuid.NewString()
	if trackRecordFile != "" {
		recorder, closeRecorder, err := openRecorder(trackRecordFile, sessionID)
		if err != nil {
			return err
		}
		defer closeRecorder()
		observers = append(observers, recorder)
	}

	s, err := openSession(observers...)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("LD2450 - Target Tracking\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Session: %s\n", sessionID)
	fmt.Printf("Decoding: %s\n", s.client.Options().Decoding)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	return trackGroups(ctx, s, trackOpts, func(g *ld2450.TrackedObjectGroup) error {
		printGroup(g)
		return nil
	})
}

// trackGroups reads tracking reports until ctx is done, passing at most
// opts.rate groups per second to fn. Anomalies are logged for every group.
func trackGroups(ctx context.Context, s *session, opts trackOptions, fn func(*ld2450.TrackedObjectGroup) error) error {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.rate), 1)
	}

	for ctx.Err() == nil {
		g, err := s.client.ReadTrackingGroup(time.Second)
		if err != nil {
			if errors.Is(err, ld2450.ErrTimeout) {
				continue
			}
			if errors.Is(err, ErrConnectionClosed) {
				log.Info("connection closed")
				return nil
			}
			return err
		}

		if opts.validate {
			for _, v := range ld2450.ValidateGroup(g) {
				log.Warn("anomalous target",
					zap.Stringer("type", v.Type),
					zap.Int("slot", v.Slot),
					zap.String("message", v.Message))
			}
		}

		if g.IsEmpty() && !opts.empty {
			continue
		}
		if !limiter.Allow() {
			continue
		}
		if err := fn(g); err != nil {
			return err
		}
	}
	return nil
}

func printGroup(g *ld2450.TrackedObjectGroup) {
	timestamp := g.Timestamp.Format("15:04:05.000")
	if g.IsEmpty() {
		fmt.Printf("[%s] (no targets)\n", timestamp)
		return
	}
	fmt.Printf("[%s] %d target(s)\n", timestamp, g.Count())
	fmt.Print(ld2450.FormatGroup(g))
}

// startMetrics registers a Prometheus observer and serves it when metrics are
// enabled. The returned function shuts the server down.
func startMetrics() ([]ld2450.Observer, func(), error) {
	if !cfg.Metrics.Enable && cfg.Metrics.Addr == "" {
		return nil, func() {}, nil
	}
	addr := cfg.Metrics.Addr
	if addr == "" {
		addr = ":9450"
	}

	reg := instrument.NewRegistry()
	prom := instrument.NewPromObserver(reg)

	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, instrument.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr), zap.String("path", cfg.Metrics.Path))

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return []ld2450.Observer{prom}, stop, nil
}

// captureObserver appends every received frame to a capture file.
type captureObserver struct {
	ld2450.NopObserver
	w *ld2450.CaptureWriter
}

func (c *captureObserver) FrameReceived(f *ld2450.Frame) {
	if err := c.w.WriteFrame(f); err != nil {
		log.Error("capture write failed", zap.Error(err))
	}
}

func openRecorder(path, sessionID string) (ld2450.Observer, func(), error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create capture: %w", err)
	}
	decoding, _ := ld2450.ParseCoordinateDecoding(cfg.Driver.Decoding)
	w, err := ld2450.NewCaptureWriter(file, sessionID, decoding)
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	log.Info("recording frames", zap.String("file", path), zap.String("session", sessionID))

	closeFn := func() {
		log.Info("capture closed", zap.String("file", path), zap.Int("frames", w.Frames()))
		if err := file.Close(); err != nil {
			log.Error("close capture", zap.Error(err))
		}
	}
	return &captureObserver{w: w}, closeFn, nil
}
