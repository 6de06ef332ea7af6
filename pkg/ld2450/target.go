// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// CoordinateDecoding selects how the byte pairs of a target record are
// combined.
type CoordinateDecoding int

const (
	// DecodingDocumented follows the module documentation: each field is a
	// little-endian 16-bit value, X and speed signed, Y offset by 32768, and
	// 0xFFFF marks a field the module could not resolve.
	DecodingDocumented CoordinateDecoding = iota
	// DecodingLegacySum reproduces the earlier Arduino driver, which adds
	// the two bytes of each field and multiplies by 256. It exists for
	// bit-compatibility with consumers built on that driver.
	DecodingLegacySum
)

// String returns the decoding name as accepted by ParseCoordinateDecoding.
func (c CoordinateDecoding) String() string {
	switch c {
	case DecodingLegacySum:
		return "legacy-sum"
	default:
		return "documented"
	}
}

// ParseCoordinateDecoding parses "documented" or "legacy-sum".
func ParseCoordinateDecoding(s string) (CoordinateDecoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "documented":
		return DecodingDocumented, nil
	case "legacy-sum", "legacy":
		return DecodingLegacySum, nil
	}
	return DecodingDocumented, fmt.Errorf("unknown coordinate decoding %q (use documented or legacy-sum)", s)
}

// TrackedObject is one target slot of a tracking report.
type TrackedObject struct {
	// X is the horizontal distance from the module center in mm.
	X int
	// Y is the distance away from the module face in mm.
	Y int
	// Speed in cm/s.
	Speed int
	// DistanceResolution is the distance gate size in mm.
	DistanceResolution int

	// Present is false for an all-zero record, which means the slot is
	// unused rather than a target at the origin.
	Present bool
	// Valid is false when a field carries the all-ones invalid pattern.
	Valid bool
}

// TrackedObjectGroup holds the three slots of one report. Slot order carries
// no priority.
type TrackedObjectGroup struct {
	Targets   [TargetSlots]TrackedObject
	Timestamp time.Time
}

// IsEmpty reports whether no slot holds a target.
func (g *TrackedObjectGroup) IsEmpty() bool {
	for _, t := range g.Targets {
		if t.Present {
			return false
		}
	}
	return true
}

// Count returns the number of occupied slots.
func (g *TrackedObjectGroup) Count() int {
	n := 0
	for _, t := range g.Targets {
		if t.Present {
			n++
		}
	}
	return n
}

// IsEmptyPayload reports whether every byte of a report payload is zero.
func IsEmptyPayload(payload []byte) bool {
	for _, b := range payload {
		if b != 0 {
			return false
		}
	}
	return true
}

// DecodeReport converts a 24 byte tracking report payload into a group.
func DecodeReport(payload []byte, decoding CoordinateDecoding) (*TrackedObjectGroup, error) {
	if len(payload) != ReportPayloadSize {
		return nil, fmt.Errorf("%w: report payload is %d bytes (want %d)", ErrBadLength, len(payload), ReportPayloadSize)
	}

	g := &TrackedObjectGroup{Timestamp: time.Now()}
	for i := range g.Targets {
		off := i * TargetRecordSize
		g.Targets[i] = DecodeTrackedObject(payload[off:off+TargetRecordSize], decoding)
	}
	return g, nil
}

// DecodeFrame decodes the group carried by a TrackingReport frame.
func DecodeFrame(f *Frame, decoding CoordinateDecoding) (*TrackedObjectGroup, error) {
	if !f.IsReport() {
		return nil, fmt.Errorf("%w: %s", ErrWrongFrameKind, f.Kind)
	}
	g, err := DecodeReport(f.Payload, decoding)
	if err != nil {
		return nil, err
	}
	g.Timestamp = f.Timestamp
	return g, nil
}

// DecodeTrackedObject decodes one 8 byte target record.
func DecodeTrackedObject(record []byte, decoding CoordinateDecoding) TrackedObject {
	if len(record) < TargetRecordSize || IsEmptyPayload(record[:TargetRecordSize]) {
		return TrackedObject{}
	}

	if decoding == DecodingLegacySum {
		return TrackedObject{
			X:                  (int(record[0]) + int(record[1])) * 256,
			Y:                  (int(record[2]) + int(record[3])) * 256,
			Speed:              (int(record[4]) + int(record[5])) * 256,
			DistanceResolution: (int(record[6]) + int(record[7])) * 256,
			Present:            true,
			Valid:              true,
		}
	}

	rawX := binary.LittleEndian.Uint16(record[0:])
	rawY := binary.LittleEndian.Uint16(record[2:])
	rawSpeed := binary.LittleEndian.Uint16(record[4:])
	rawRes := binary.LittleEndian.Uint16(record[6:])

	return TrackedObject{
		X:                  int(int16(rawX)),
		Y:                  int(rawY) - yOffset,
		Speed:              int(int16(rawSpeed)),
		DistanceResolution: int(rawRes),
		Present:            true,
		Valid:              rawX != invalidCoordinate && rawY != invalidCoordinate && rawSpeed != invalidCoordinate,
	}
}
