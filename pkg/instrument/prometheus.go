// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package instrument

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
)

const namespace = "ld2450"

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the metrics HTTP handler for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// PromObserver exports protocol events as Prometheus metrics.
type PromObserver struct {
	CommandsSent    *prometheus.CounterVec // labels: command
	FramesReceived  *prometheus.CounterVec // labels: kind
	Malformed       *prometheus.CounterVec // labels: reason
	Pivots          prometheus.Counter
	DiscardedFrames prometheus.Counter
	Retries         *prometheus.CounterVec // labels: command
	Timeouts        prometheus.Counter
	TargetsPresent  prometheus.Gauge
}

// NewPromObserver registers the metrics with reg.
func NewPromObserver(reg prometheus.Registerer) *PromObserver {
	p := &PromObserver{
		CommandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_sent_total",
			Help:      "Configuration command frames written.",
		}, []string{"command"}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames read from the sensor by kind.",
		}, []string{"kind"}),
		Malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "Malformed frames by decode failure.",
		}, []string{"reason"}),
		Pivots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pivots_total",
			Help:      "Decoder restarts as the other frame kind.",
		}),
		DiscardedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_frames_total",
			Help:      "Frames dropped while waiting for an acknowledgement.",
		}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_retries_total",
			Help:      "Commands re-sent after a failed attempt.",
		}, []string{"command"}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeouts_total",
			Help:      "Waits that expired without a frame.",
		}),
		TargetsPresent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "targets_present",
			Help:      "Targets in the most recent tracking report.",
		}),
	}
	reg.MustRegister(p.CommandsSent, p.FramesReceived, p.Malformed, p.Pivots, p.DiscardedFrames, p.Retries, p.Timeouts, p.TargetsPresent)
	return p
}

// FrameSent implements ld2450.Observer.
func (p *PromObserver) FrameSent(op ld2450.Opcode, _ []byte) {
	p.CommandsSent.WithLabelValues(commandLabel(op)).Inc()
}

// FrameReceived implements ld2450.Observer.
func (p *PromObserver) FrameReceived(f *ld2450.Frame) {
	if f.TimedOut {
		return
	}
	p.FramesReceived.WithLabelValues(f.Kind.String()).Inc()

	switch f.Kind {
	case ld2450.KindTrackingReport:
		if g, err := ld2450.DecodeReport(f.Payload, ld2450.DecodingDocumented); err == nil {
			p.TargetsPresent.Set(float64(g.Count()))
		}
	case ld2450.KindMalformed:
		p.Malformed.WithLabelValues(malformedReason(f.Err)).Inc()
	}
}

// Pivot implements ld2450.Observer.
func (p *PromObserver) Pivot(ld2450.FrameKind, ld2450.FrameKind, byte) { p.Pivots.Inc() }

// Discarded implements ld2450.Observer.
func (p *PromObserver) Discarded(*ld2450.Frame, error) { p.DiscardedFrames.Inc() }

// Retry implements ld2450.Observer.
func (p *PromObserver) Retry(command string, _ int, _ error) {
	p.Retries.WithLabelValues(command).Inc()
}

// Timeout implements ld2450.Observer.
func (p *PromObserver) Timeout(time.Duration) { p.Timeouts.Inc() }

func commandLabel(op ld2450.Opcode) string {
	return strings.ToLower(ld2450.FormatCommandName(op))
}

func malformedReason(err error) string {
	switch {
	case errors.Is(err, ld2450.ErrUnexpectedStart):
		return "unexpected_start"
	case errors.Is(err, ld2450.ErrBadPreamble):
		return "bad_preamble"
	case errors.Is(err, ld2450.ErrBadLength):
		return "bad_length"
	case errors.Is(err, ld2450.ErrBadPostamble):
		return "bad_postamble"
	case errors.Is(err, ld2450.ErrTruncated):
		return "truncated"
	default:
		return "other"
	}
}
