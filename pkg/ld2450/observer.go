// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import "time"

// Observer receives protocol events from the Reader and Client.
// Implementations must be cheap; they run inline with frame decoding.
type Observer interface {
	// FrameSent is called after a command frame was written.
	FrameSent(op Opcode, raw []byte)
	// FrameReceived is called for every frame the Reader returns,
	// including Malformed and timed out ones.
	FrameReceived(f *Frame)
	// Pivot is called when the decoder restarts as another frame kind.
	Pivot(from, to FrameKind, b byte)
	// Discarded is called when the Client drops a frame while waiting for
	// an acknowledgement.
	Discarded(f *Frame, reason error)
	// Retry is called before a command is re-sent.
	Retry(command string, attempt int, cause error)
	// Timeout is called when a wait for a frame expired.
	Timeout(waited time.Duration)
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) FrameSent(Opcode, []byte) {}
func (NopObserver) FrameReceived(*Frame) {}
func (NopObserver) Pivot(FrameKind, FrameKind, byte) {}
func (NopObserver) Discarded(*Frame, error) {}
func (NopObserver) Retry(string, int, error) {}
func (NopObserver) Timeout(time.Duration) {}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) FrameSent(op Opcode, raw []byte) {
	for _, o := range m {
		o.FrameSent(op, raw)
	}
}

func (m MultiObserver) FrameReceived(f *Frame) {
	for _, o := range m {
		o.FrameReceived(f)
	}
}

func (m MultiObserver) Pivot(from, to FrameKind, b byte) {
	for _, o := range m {
		o.Pivot(from, to, b)
	}
}

func (m MultiObserver) Discarded(f *Frame, reason error) {
	for _, o := range m {
		o.Discarded(f, reason)
	}
}

func (m MultiObserver) Retry(command string, attempt int, cause error) {
	for _, o := range m {
		o.Retry(command, attempt, cause)
	}
}

func (m MultiObserver) Timeout(waited time.Duration) {
	for _, o := range m {
		o.Timeout(waited)
	}
}
