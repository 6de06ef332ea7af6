// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package ld2450 implements the serial protocol of the HLK-LD2450 24 GHz
// mmWave tracking radar.
//
// The sensor shares one UART between two unsynchronized frame kinds: solicited
// configuration acknowledgements and unsolicited tracking reports that stream
// whenever the module is not in configuration mode. This package provides the
// frame codec, a resynchronizing reader that pivots between the two kinds when
// frames interleave, a request/response correlator with bounded retries, the
// tracking report decoder and a declarative command catalog.
package ld2450

import "time"

// Configuration frame framing
var (
	ConfigPreamble  = [4]byte{0xFD, 0xFC, 0xFB, 0xFA}
	ConfigPostamble = [4]byte{0x04, 0x03, 0x02, 0x01}
)

// Tracking report framing
var (
	ReportPreamble  = [4]byte{0xAA, 0xFF, 0x03, 0x00}
	ReportPostamble = [2]byte{0x55, 0xCC}
)

// Frame start bytes used for resynchronization
const (
	ConfigStartByte = 0xFD
	ReportStartByte = 0xAA
)

// Frame size limits
const (
	MaxPayloadSize    = 32 // opcode + command data, mirrors the module's buffer
	MaxCommandData    = MaxPayloadSize - OpcodeSize
	OpcodeSize        = 2
	StatusSize        = 2
	ReportPayloadSize = 24
	TargetRecordSize  = 8
	TargetSlots       = 3
)

// Driver defaults
const (
	DefaultBaudRate     = 256000
	DefaultPowerUpDelay = 3 * time.Second
	DefaultPollInterval = time.Millisecond
	DefaultByteTimeout  = 50 * time.Millisecond
	DefaultAckTimeout   = 50 * time.Millisecond
	DefaultMaxAttempts  = 5
	DefaultMaxWaits     = 20
)

// Opcode is a command word as it appears on the wire, low byte first.
// OpEnableConfig is transmitted as FF 00.
type Opcode uint16

// Command opcodes
const (
	OpEnableConfig     Opcode = 0x00FF
	OpDisableConfig    Opcode = 0x00FE
	OpSingleTarget     Opcode = 0x0080
	OpMultiTarget      Opcode = 0x0090
	OpReadTrackingMode Opcode = 0x0091
	OpSetBaudRate      Opcode = 0x00A1
	OpFactoryReset     Opcode = 0x00A2
	OpRestart          Opcode = 0x00A3
	OpSetBluetooth     Opcode = 0x00A4
	OpGetMAC           Opcode = 0x00A5
	OpGetZoneFilter    Opcode = 0x00C1
)

// ackFlag is set in the high byte of an acknowledgement's echoed opcode.
const ackFlag = 0x0100

// Ack returns the opcode the module echoes in its acknowledgement.
func (o Opcode) Ack() Opcode {
	return o | ackFlag
}

// Bytes returns the opcode in wire order.
func (o Opcode) Bytes() [2]byte {
	return [2]byte{byte(o), byte(o >> 8)}
}

// AvailableBaudRate is the enum accepted by OpSetBaudRate.
type AvailableBaudRate uint8

// Baud rate values
const (
	Baud9600   AvailableBaudRate = 0x01
	Baud19200  AvailableBaudRate = 0x02
	Baud38400  AvailableBaudRate = 0x03
	Baud57600  AvailableBaudRate = 0x04
	Baud115200 AvailableBaudRate = 0x05
	Baud230400 AvailableBaudRate = 0x06
	Baud256000 AvailableBaudRate = 0x07
	Baud460800 AvailableBaudRate = 0x08
)

// TrackingMode is the value reported by OpReadTrackingMode.
type TrackingMode uint16

// Tracking mode values
const (
	TrackingSingle TrackingMode = 0x0001
	TrackingMulti  TrackingMode = 0x0002
)

// ZoneFilteringType selects how configured regions filter detections.
type ZoneFilteringType uint16

// Zone filtering values
const (
	ZoneFilterDisabled   ZoneFilteringType = 0x0000
	ZoneFilterDetectOnly ZoneFilteringType = 0x0001
	ZoneFilterExclude    ZoneFilteringType = 0x0002
)

// Coordinate values with every bit set mean the module could not resolve
// the field.
const invalidCoordinate = 0xFFFF

// yOffset is the zero point of the Y axis in the documented report encoding.
const yOffset = 32768
