// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"fmt"
	"strings"
)

// FormatOpcode returns the opcode in wire order, e.g. "FF00".
func FormatOpcode(op Opcode) string {
	b := op.Bytes()
	return fmt.Sprintf("%02X%02X", b[0], b[1])
}

// FormatCommandName returns the catalog name for an opcode or its
// acknowledgement.
func FormatCommandName(op Opcode) string {
	switch op &^ ackFlag {
	case OpEnableConfig:
		return "ENABLE_CONFIG"
	case OpDisableConfig:
		return "DISABLE_CONFIG"
	case OpSingleTarget:
		return "SINGLE_TARGET"
	case OpMultiTarget:
		return "MULTI_TARGET"
	case OpReadTrackingMode:
		return "READ_TRACKING_MODE"
	case OpSetBaudRate:
		return "SET_BAUD_RATE"
	case OpFactoryReset:
		return "FACTORY_RESET"
	case OpRestart:
		return "RESTART"
	case OpSetBluetooth:
		return "SET_BLUETOOTH"
	case OpGetMAC:
		return "GET_MAC"
	case OpGetZoneFilter:
		return "GET_ZONE_FILTER"
	default:
		return "UNKNOWN"
	}
}

// FormatFrame formats a frame into a human-readable string. Tracking reports
// are decoded with decoding.
func FormatFrame(f *Frame, decoding CoordinateDecoding) string {
	timestamp := f.Timestamp.Format("15:04:05.000")

	switch {
	case f.TimedOut:
		return fmt.Sprintf("[%s] TIMEOUT\n", timestamp)

	case f.IsAck():
		op, _ := f.Opcode()
		result := fmt.Sprintf("[%s] %s %s (%s) len=%d\n", timestamp, f.Kind, FormatCommandName(op), FormatOpcode(op), len(f.Payload))
		if status, ok := f.Status(); ok {
			result += fmt.Sprintf("  Status: %s\n", formatStatus(status))
		}
		if data := AckData(f.Payload); len(data) > 0 {
			result += fmt.Sprintf("  Data: % X\n", data)
		}
		return result

	case f.IsReport():
		result := fmt.Sprintf("[%s] %s\n", timestamp, f.Kind)
		g, err := DecodeReport(f.Payload, decoding)
		if err != nil {
			return result + fmt.Sprintf("  (%v)\n", err)
		}
		if g.IsEmpty() {
			return result + "  (no targets)\n"
		}
		return result + FormatGroup(g)

	default:
		result := fmt.Sprintf("[%s] %s attempted=%s", timestamp, f.Kind, f.Attempted)
		if f.Err != nil {
			result += fmt.Sprintf(" err=%q", f.Err.Error())
		}
		result += "\n"
		if len(f.Raw) > 0 {
			result += fmt.Sprintf("  Raw: % X\n", f.Raw)
		}
		return result
	}
}

// FormatGroup formats the occupied slots of a group, one per line. An empty
// group formats as "".
func FormatGroup(g *TrackedObjectGroup) string {
	if g == nil || g.IsEmpty() {
		return ""
	}
	var sb strings.Builder
	for i, t := range g.Targets {
		if !t.Present {
			continue
		}
		fmt.Fprintf(&sb, "  Target %d: %s\n", i+1, FormatTarget(t))
	}
	return sb.String()
}

// FormatTarget formats a single target record.
func FormatTarget(t TrackedObject) string {
	if !t.Present {
		return "(none)"
	}
	s := fmt.Sprintf("X: %d mm, Y: %d mm, Speed: %d cm/s, Resolution: %d mm", t.X, t.Y, t.Speed, t.DistanceResolution)
	if !t.Valid {
		s += " (invalid)"
	}
	return s
}

func formatStatus(status uint16) string {
	if status == 0 {
		return "OK"
	}
	return fmt.Sprintf("FAILED (0x%04X)", status)
}
