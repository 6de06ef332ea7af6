// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Statistics tracks frame statistics and error rates. It implements
// Observer and is safe to read from another goroutine through Snapshot.
type Statistics struct {
	mu sync.Mutex

	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames     uint64
	AckFrames       uint64
	ReportFrames    uint64
	EmptyReports    uint64
	TargetsSeen     uint64
	MalformedFrames uint64
	BadPreambles    uint64
	BadPostambles   uint64
	BadLengths      uint64
	Truncated       uint64
	Timeouts        uint64
	Pivots          uint64
	DiscardedFrames uint64
	CommandsSent    uint64
	Retries         uint64
	AnomalousValues uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec

	// Decoding selects how reports are decoded for target counts.
	Decoding CoordinateDecoding
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// FrameSent implements Observer.
func (s *Statistics) FrameSent(Opcode, []byte) {
	s.mu.Lock()
	s.CommandsSent++
	s.mu.Unlock()
}

// FrameReceived implements Observer.
func (s *Statistics) FrameReceived(f *Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.TimedOut {
		return
	}
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	switch f.Kind {
	case KindConfigAck:
		s.AckFrames++
	case KindTrackingReport:
		s.ReportFrames++
		g, err := DecodeReport(f.Payload, s.Decoding)
		if err != nil {
			return
		}
		if g.IsEmpty() {
			s.EmptyReports++
			return
		}
		s.TargetsSeen += uint64(g.Count())
		if anomalies := ValidateGroup(g); len(anomalies) > 0 {
			s.AnomalousValues += uint64(len(anomalies))
		}
	default:
		s.MalformedFrames++
		switch {
		case errors.Is(f.Err, ErrBadPreamble), errors.Is(f.Err, ErrUnexpectedStart):
			s.BadPreambles++
		case errors.Is(f.Err, ErrBadPostamble):
			s.BadPostambles++
		case errors.Is(f.Err, ErrBadLength):
			s.BadLengths++
		case errors.Is(f.Err, ErrTruncated):
			s.Truncated++
		}
	}
}

// Pivot implements Observer.
func (s *Statistics) Pivot(FrameKind, FrameKind, byte) {
	s.mu.Lock()
	s.Pivots++
	s.mu.Unlock()
}

// Discarded implements Observer.
func (s *Statistics) Discarded(*Frame, error) {
	s.mu.Lock()
	s.DiscardedFrames++
	s.mu.Unlock()
}

// Retry implements Observer.
func (s *Statistics) Retry(string, int, error) {
	s.mu.Lock()
	s.Retries++
	s.mu.Unlock()
}

// Timeout implements Observer.
func (s *Statistics) Timeout(time.Duration) {
	s.mu.Lock()
	s.Timeouts++
	s.mu.Unlock()
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
}

func (s *Statistics) calculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.MalformedFrames+s.AnomalousValues) / elapsed
	}
}

// Snapshot returns a copy of the counters with rates calculated.
func (s *Statistics) Snapshot() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
	return Statistics{
		StartTime:       s.StartTime,
		LastUpdateTime:  s.LastUpdateTime,
		TotalFrames:     s.TotalFrames,
		AckFrames:       s.AckFrames,
		ReportFrames:    s.ReportFrames,
		EmptyReports:    s.EmptyReports,
		TargetsSeen:     s.TargetsSeen,
		MalformedFrames: s.MalformedFrames,
		BadPreambles:    s.BadPreambles,
		BadPostambles:   s.BadPostambles,
		BadLengths:      s.BadLengths,
		Truncated:       s.Truncated,
		Timeouts:        s.Timeouts,
		Pivots:          s.Pivots,
		DiscardedFrames: s.DiscardedFrames,
		CommandsSent:    s.CommandsSent,
		Retries:         s.Retries,
		AnomalousValues: s.AnomalousValues,
		FrameRate:       s.FrameRate,
		ErrorRate:       s.ErrorRate,
		Decoding:        s.Decoding,
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	snap := s.Snapshot()

	var reportPercent, malformedPercent float64
	if snap.TotalFrames > 0 {
		reportPercent = float64(snap.ReportFrames) * 100.0 / float64(snap.TotalFrames)
		malformedPercent = float64(snap.MalformedFrames) * 100.0 / float64(snap.TotalFrames)
	}

	elapsed := time.Since(snap.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", snap.TotalFrames)
	result += fmt.Sprintf("Reports:         %8d (%.1f%%)\n", snap.ReportFrames, reportPercent)
	if snap.EmptyReports > 0 {
		result += fmt.Sprintf("  Empty:            %5d\n", snap.EmptyReports)
	}
	if snap.AckFrames > 0 {
		result += fmt.Sprintf("Acknowledgements:%8d\n", snap.AckFrames)
	}
	if snap.MalformedFrames > 0 {
		result += fmt.Sprintf("Malformed:       %8d (%.1f%%)\n", snap.MalformedFrames, malformedPercent)
		if snap.BadPreambles > 0 {
			result += fmt.Sprintf("  Bad Preamble:     %5d\n", snap.BadPreambles)
		}
		if snap.BadPostambles > 0 {
			result += fmt.Sprintf("  Bad Postamble:    %5d\n", snap.BadPostambles)
		}
		if snap.BadLengths > 0 {
			result += fmt.Sprintf("  Bad Length:       %5d\n", snap.BadLengths)
		}
		if snap.Truncated > 0 {
			result += fmt.Sprintf("  Truncated:        %5d\n", snap.Truncated)
		}
	}
	if snap.Pivots > 0 {
		result += fmt.Sprintf("Pivots:          %8d\n", snap.Pivots)
	}
	if snap.Timeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d\n", snap.Timeouts)
	}
	if snap.CommandsSent > 0 {
		result += fmt.Sprintf("Commands Sent:   %8d (retries %d, discarded %d)\n", snap.CommandsSent, snap.Retries, snap.DiscardedFrames)
	}
	if snap.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Values:%8d\n", snap.AnomalousValues)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", snap.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", snap.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalFrames = 0
	s.AckFrames = 0
	s.ReportFrames = 0
	s.EmptyReports = 0
	s.TargetsSeen = 0
	s.MalformedFrames = 0
	s.BadPreambles = 0
	s.BadPostambles = 0
	s.BadLengths = 0
	s.Truncated = 0
	s.Timeouts = 0
	s.Pivots = 0
	s.DiscardedFrames = 0
	s.CommandsSent = 0
	s.Retries = 0
	s.AnomalousValues = 0
	s.FrameRate = 0
	s.ErrorRate = 0
}
