// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"encoding/binary"
	"time"
)

// FrameKind identifies what a decoded frame is.
type FrameKind int

// Frame kinds
const (
	KindMalformed FrameKind = iota
	KindConfigAck
	KindTrackingReport
)

// String returns the frame kind name.
func (k FrameKind) String() string {
	switch k {
	case KindConfigAck:
		return "CONFIG_ACK"
	case KindTrackingReport:
		return "TRACKING_REPORT"
	default:
		return "MALFORMED"
	}
}

// Frame is the unit produced by the Reader.
//
// TimedOut and a populated Payload are mutually exclusive. A Malformed frame
// keeps whatever payload bytes were read before decoding failed; they are for
// diagnostics only.
type Frame struct {
	Kind     FrameKind
	Payload  []byte
	TimedOut bool

	// Attempted is the kind being decoded when a Malformed frame was
	// produced. It is KindMalformed when the first byte was not a start byte.
	Attempted FrameKind
	// Err explains a Malformed frame.
	Err error
	// Raw holds every byte consumed for this frame, framing included.
	Raw       []byte
	Timestamp time.Time
}

// IsAck reports whether the frame is a well-formed acknowledgement.
func (f *Frame) IsAck() bool {
	return f.Kind == KindConfigAck
}

// IsReport reports whether the frame is a well-formed tracking report.
func (f *Frame) IsReport() bool {
	return f.Kind == KindTrackingReport
}

// Opcode returns the echoed opcode of an acknowledgement payload.
func (f *Frame) Opcode() (Opcode, bool) {
	return AckOpcode(f.Payload)
}

// Status returns the status word of an acknowledgement payload.
func (f *Frame) Status() (uint16, bool) {
	return AckStatus(f.Payload)
}

// AckOpcode extracts the echoed opcode from an acknowledgement payload.
func AckOpcode(payload []byte) (Opcode, bool) {
	if len(payload) < OpcodeSize {
		return 0, false
	}
	return Opcode(binary.LittleEndian.Uint16(payload)), true
}

// AckStatus extracts the status word that follows the echoed opcode.
func AckStatus(payload []byte) (uint16, bool) {
	if len(payload) < OpcodeSize+StatusSize {
		return 0, false
	}
	return binary.LittleEndian.Uint16(payload[OpcodeSize:]), true
}

// AckData returns the command specific bytes after the status word.
func AckData(payload []byte) []byte {
	if len(payload) <= OpcodeSize+StatusSize {
		return nil
	}
	return payload[OpcodeSize+StatusSize:]
}

func timedOutFrame() *Frame {
	return &Frame{Kind: KindMalformed, TimedOut: true, Timestamp: time.Now()}
}
