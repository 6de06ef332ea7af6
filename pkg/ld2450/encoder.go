// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"encoding/binary"
	"fmt"
)

// EncodeCommand creates a complete wire-formatted configuration frame.
// The length field counts the opcode plus data. Nothing is produced when the
// frame would exceed MaxPayloadSize.
func EncodeCommand(op Opcode, data []byte) ([]byte, error) {
	if len(data) > MaxCommandData {
		return nil, fmt.Errorf("%w: %d data bytes (max %d)", ErrPayloadTooLarge, len(data), MaxCommandData)
	}

	length := OpcodeSize + len(data)
	frame := make([]byte, 0, len(ConfigPreamble)+2+length+len(ConfigPostamble))
	frame = append(frame, ConfigPreamble[:]...)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(length))
	frame = binary.LittleEndian.AppendUint16(frame, uint16(op))
	frame = append(frame, data...)
	frame = append(frame, ConfigPostamble[:]...)

	return frame, nil
}

// EncodeAck creates the acknowledgement the module sends for op.
// It is the inverse of what the Reader accepts and is mostly useful for
// simulators and tests.
func EncodeAck(op Opcode, status uint16, data []byte) ([]byte, error) {
	body := make([]byte, 0, StatusSize+len(data))
	body = binary.LittleEndian.AppendUint16(body, status)
	body = append(body, data...)
	return EncodeCommand(op.Ack(), body)
}

// EncodeReport creates a tracking report frame around a 24 byte payload.
func EncodeReport(payload [ReportPayloadSize]byte) []byte {
	frame := make([]byte, 0, len(ReportPreamble)+ReportPayloadSize+len(ReportPostamble))
	frame = append(frame, ReportPreamble[:]...)
	frame = append(frame, payload[:]...)
	frame = append(frame, ReportPostamble[:]...)
	return frame
}
