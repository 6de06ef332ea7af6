// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"
)

// ============================================================
// Test Transport
// ============================================================

// scriptTransport replays a fixed receive script and records writes.
// Reading past the end of the script behaves like a silent line.
type scriptTransport struct {
	rx       []byte
	consumed int
	written  bytes.Buffer
	writes   int

	// respond, when set, is called for every write and its result is
	// queued for reading.
	respond func(op Opcode, frame []byte) []byte
}

func newScriptTransport(rx ...[]byte) *scriptTransport {
	return &scriptTransport{rx: bytes.Join(rx, nil)}
}

func (s *scriptTransport) Available() int {
	return len(s.rx) - s.consumed
}

func (s *scriptTransport) ReadByte() (byte, error) {
	if s.consumed >= len(s.rx) {
		return 0, ErrTimeout
	}
	b := s.rx[s.consumed]
	s.consumed++
	return b, nil
}

func (s *scriptTransport) Write(p []byte) (int, error) {
	s.written.Write(p)
	s.writes++
	if s.respond != nil && len(p) >= 8 {
		op := Opcode(binary.LittleEndian.Uint16(p[6:8]))
		s.rx = append(s.rx, s.respond(op, p)...)
	}
	return len(p), nil
}

// ============================================================
// Recording Observer
// ============================================================

type recordingObserver struct {
	NopObserver
	sent      []Opcode
	received  []*Frame
	pivots    int
	discarded []error
	retries   int
	timeouts  int
}

func (r *recordingObserver) FrameSent(op Opcode, _ []byte)    { r.sent = append(r.sent, op) }
func (r *recordingObserver) FrameReceived(f *Frame)           { r.received = append(r.received, f) }
func (r *recordingObserver) Pivot(FrameKind, FrameKind, byte) { r.pivots++ }
func (r *recordingObserver) Discarded(_ *Frame, reason error) {
	r.discarded = append(r.discarded, reason)
}
func (r *recordingObserver) Retry(string, int, error) { r.retries++ }
func (r *recordingObserver) Timeout(time.Duration)    { r.timeouts++ }

// ============================================================
// Builders
// ============================================================

// newTestClient builds a client whose polling never sleeps.
func newTestClient(tr Transport, opts Options) *Client {
	c := NewClient(tr, opts)
	c.reader.sleep = func(time.Duration) {}
	return c
}

func mustEncodeAck(op Opcode, status uint16, data []byte) []byte {
	frame, err := EncodeAck(op, status, data)
	if err != nil {
		panic(err)
	}
	return frame
}

// reportWith builds a report payload from up to three 8 byte records.
func reportWith(records ...[]byte) [ReportPayloadSize]byte {
	var payload [ReportPayloadSize]byte
	for i, r := range records {
		copy(payload[i*TargetRecordSize:], r)
	}
	return payload
}

// sampleRecord is the documented example target: x=782 mm, y=1713 mm,
// speed=-16 cm/s, resolution=320 mm.
var sampleRecord = []byte{0x0E, 0x03, 0xB1, 0x86, 0xF0, 0xFF, 0x40, 0x01}

// ackResponder answers every command with a successful acknowledgement,
// using data[op] when present.
func ackResponder(data map[Opcode][]byte) func(Opcode, []byte) []byte {
	return func(op Opcode, _ []byte) []byte {
		return mustEncodeAck(op, 0, data[op])
	}
}

// testContext stands in for t.Context (Go 1.24+): it is canceled when the
// test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
