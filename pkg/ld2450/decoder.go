// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"fmt"
	"time"
)

// Decoder states (internal)
type decodeState int

const (
	stateStart     decodeState = iota // waiting for 0xFD or 0xAA
	statePreamble                     // verifying preamble[index] of kind
	stateLength                       // reading length byte index (ack only)
	statePayload                      // reading remaining payload bytes
	statePostamble                    // verifying postamble[index] of kind
)

// PivotFunc is called when the decoder abandons the frame it was decoding
// and restarts as another kind from the offending byte.
type PivotFunc func(from, to FrameKind, b byte)

// Decoder implements the frame decoder state machine.
//
// Unlike a free-running stream decoder it never skips bytes: a byte that does
// not fit the frame either starts a new frame of the other kind (a pivot) or
// fails the frame. Retrying is left to the caller.
type Decoder struct {
	state   decodeState
	kind    FrameKind
	index   int
	length  int
	payload []byte
	raw     []byte
	pivots  int

	// OnPivot is optional.
	OnPivot PivotFunc
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		payload: make([]byte, 0, MaxPayloadSize),
		raw:     make([]byte, 0, 2*MaxPayloadSize),
	}
}

// Reset drops any partially decoded frame.
func (d *Decoder) Reset() {
	d.state = stateStart
	d.kind = KindMalformed
	d.index = 0
	d.length = 0
	d.payload = d.payload[:0]
	d.raw = d.raw[:0]
}

// InProgress reports whether a frame has been started but not finished.
func (d *Decoder) InProgress() bool {
	return d.state != stateStart
}

// Pivots returns how many times the decoder restarted as another frame kind.
func (d *Decoder) Pivots() int {
	return d.pivots
}

// DecodeByte feeds one byte through the state machine.
//
// It returns (nil, nil) while a frame is incomplete and (frame, nil) once a
// ConfigAck or TrackingReport frame is complete. When the byte cannot belong
// to any frame it returns a Malformed frame holding the partial payload
// together with the reason; the decoder is reset either way.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	d.raw = append(d.raw, b)

	switch d.state {
	case stateStart:
		switch b {
		case ConfigStartByte:
			d.begin(KindConfigAck, b)
			return nil, nil
		case ReportStartByte:
			d.begin(KindTrackingReport, b)
			return nil, nil
		}
		return d.fail(fmt.Errorf("%w: 0x%02X", ErrUnexpectedStart, b))

	case statePreamble:
		pre := preamble(d.kind)
		if b != pre[d.index] {
			return d.mismatch(pre[d.index], b, ErrBadPreamble)
		}
		d.index++
		if d.index < len(pre) {
			return nil, nil
		}
		d.index = 0
		if d.kind == KindConfigAck {
			d.state = stateLength
		} else {
			d.length = ReportPayloadSize
			d.state = statePayload
		}
		return nil, nil

	case stateLength:
		if d.index == 0 {
			d.length = int(b)
			d.index++
			return nil, nil
		}
		d.length |= int(b) << 8
		d.index = 0
		if d.length < OpcodeSize || d.length > MaxPayloadSize {
			return d.fail(fmt.Errorf("%w: %d (want %d..%d)", ErrBadLength, d.length, OpcodeSize, MaxPayloadSize))
		}
		d.state = statePayload
		return nil, nil

	case statePayload:
		d.payload = append(d.payload, b)
		if len(d.payload) >= d.length {
			d.state = statePostamble
			d.index = 0
		}
		return nil, nil

	case statePostamble:
		post := postamble(d.kind)
		if b != post[d.index] {
			return d.mismatch(post[d.index], b, ErrBadPostamble)
		}
		d.index++
		if d.index < len(post) {
			return nil, nil
		}
		return d.complete(), nil

	default:
		return d.fail(fmt.Errorf("%w: invalid decoder state %d", ErrMalformed, d.state))
	}
}

// begin starts a frame of kind whose first byte b has already been consumed.
func (d *Decoder) begin(kind FrameKind, b byte) {
	d.kind = kind
	d.state = statePreamble
	d.index = 1
	d.length = 0
	d.payload = d.payload[:0]
	d.raw = append(d.raw[:0], b)
}

// mismatch applies the pivot rule to a byte that broke the framing.
func (d *Decoder) mismatch(expected, b byte, stage error) (*Frame, error) {
	switch b {
	case ConfigStartByte:
		d.pivot(KindConfigAck, b)
		return nil, nil
	case ReportStartByte:
		d.pivot(KindTrackingReport, b)
		return nil, nil
	}
	return d.fail(fmt.Errorf("%w: expected 0x%02X, got 0x%02X", stage, expected, b))
}

func (d *Decoder) pivot(to FrameKind, b byte) {
	from := d.kind
	d.begin(to, b)
	d.pivots++
	if d.OnPivot != nil {
		d.OnPivot(from, to, b)
	}
}

func (d *Decoder) complete() *Frame {
	f := &Frame{
		Kind:      d.kind,
		Attempted: d.kind,
		Payload:   append([]byte(nil), d.payload...),
		Raw:       append([]byte(nil), d.raw...),
		Timestamp: time.Now(),
	}
	d.Reset()
	return f
}

// fail produces the Malformed frame for err and resets the decoder.
func (d *Decoder) fail(err error) (*Frame, error) {
	f := &Frame{
		Kind:      KindMalformed,
		Attempted: d.kind,
		Err:       err,
		Raw:       append([]byte(nil), d.raw...),
		Timestamp: time.Now(),
	}
	if len(d.payload) > 0 {
		f.Payload = append([]byte(nil), d.payload...)
	}
	d.Reset()
	return f, err
}

func preamble(kind FrameKind) []byte {
	if kind == KindTrackingReport {
		return ReportPreamble[:]
	}
	return ConfigPreamble[:]
}

func postamble(kind FrameKind) []byte {
	if kind == KindTrackingReport {
		return ReportPostamble[:]
	}
	return ConfigPostamble[:]
}
