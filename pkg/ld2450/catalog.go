// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"encoding/binary"
	"fmt"
	"sort"
	"time"
)

// Validator checks an acknowledgement payload. A non-nil error makes
// SendCommand re-send the command.
type Validator func(ack []byte) error

// CommandDescriptor describes one configuration command and how its
// acknowledgement is accepted. Descriptors are shared; do not modify them.
type CommandDescriptor struct {
	Name    string
	Opcode  Opcode
	Payload []byte

	// Validate defaults to StatusOK.
	Validate Validator

	// AllowMalformed accepts an acknowledgement whose payload was read in
	// full but whose postamble did not match.
	AllowMalformed bool
	// TimeoutIsSuccess turns an expired wait into a synthesized success.
	TimeoutIsSuccess bool
	// RadarResumeIsSuccess treats a tracking report as proof that the
	// module left configuration mode.
	RadarResumeIsSuccess bool

	// Timeout is the wait for each frame; zero selects DefaultAckTimeout.
	Timeout time.Duration
}

func (d *CommandDescriptor) timeout() time.Duration {
	if d.Timeout <= 0 {
		return DefaultAckTimeout
	}
	return d.Timeout
}

func (d *CommandDescriptor) validate(ack []byte) error {
	if d.Validate == nil {
		return StatusOK(ack)
	}
	return d.Validate(ack)
}

// StatusOK accepts an acknowledgement whose status word is zero.
func StatusOK(ack []byte) error {
	op, _ := AckOpcode(ack)
	status, ok := AckStatus(ack)
	if !ok {
		return fmt.Errorf("%w: %d byte acknowledgement", ErrShortResponse, len(ack))
	}
	if status != 0 {
		return &CommandError{Opcode: op, Status: status}
	}
	return nil
}

// StatusWithData accepts a successful acknowledgement carrying at least n
// bytes after the status word.
func StatusWithData(n int) Validator {
	return func(ack []byte) error {
		if err := StatusOK(ack); err != nil {
			return err
		}
		if got := len(AckData(ack)); got < n {
			return fmt.Errorf("%w: %d data bytes (want %d)", ErrShortResponse, got, n)
		}
		return nil
	}
}

// synthesizedAck is the success payload produced when a timeout or a resumed
// tracking report stands in for the real acknowledgement.
func synthesizedAck(op Opcode) []byte {
	ack := make([]byte, 0, OpcodeSize+StatusSize)
	ack = binary.LittleEndian.AppendUint16(ack, uint16(op.Ack()))
	return append(ack, 0x00, 0x00)
}

// configCommand fills in the acceptance policy every configuration command
// of the module shares.
func configCommand(name string, op Opcode, payload []byte, validate Validator) *CommandDescriptor {
	return &CommandDescriptor{
		Name:             name,
		Opcode:           op,
		Payload:          payload,
		Validate:         validate,
		AllowMalformed:   true,
		TimeoutIsSuccess: true,
		Timeout:          DefaultAckTimeout,
	}
}

// resumeCommand is a configCommand that also completes when tracking reports
// start flowing again.
func resumeCommand(name string, op Opcode) *CommandDescriptor {
	d := configCommand(name, op, nil, StatusOK)
	d.RadarResumeIsSuccess = true
	return d
}

// Command catalog
var (
	CmdEnableConfig     = configCommand("enable_config", OpEnableConfig, []byte{0x01, 0x00}, StatusOK)
	CmdDisableConfig    = resumeCommand("disable_config", OpDisableConfig)
	CmdSingleTarget     = configCommand("single_target", OpSingleTarget, nil, StatusOK)
	CmdMultiTarget      = configCommand("multi_target", OpMultiTarget, nil, StatusOK)
	CmdReadTrackingMode = configCommand("read_tracking_mode", OpReadTrackingMode, nil, StatusWithData(2))
	CmdFactoryReset     = configCommand("factory_reset", OpFactoryReset, nil, StatusOK)
	CmdRestart          = configCommand("restart", OpRestart, nil, StatusOK)
	CmdBluetoothOn      = configCommand("bluetooth_on", OpSetBluetooth, []byte{0x01, 0x00}, StatusOK)
	CmdBluetoothOff     = configCommand("bluetooth_off", OpSetBluetooth, []byte{0x00, 0x00}, StatusOK)
	CmdGetMAC           = configCommand("get_mac", OpGetMAC, []byte{0x01, 0x00}, StatusWithData(minMACBytes))
	CmdGetZoneFilter    = configCommand("get_zone_filter", OpGetZoneFilter, nil, StatusWithData(zoneDataSize))
)

var catalog = map[string]*CommandDescriptor{}

func init() {
	for _, d := range []*CommandDescriptor{
		CmdEnableConfig, CmdDisableConfig, CmdSingleTarget, CmdMultiTarget,
		CmdReadTrackingMode, CmdFactoryReset, CmdRestart, CmdBluetoothOn,
		CmdBluetoothOff, CmdGetMAC, CmdGetZoneFilter,
	} {
		catalog[d.Name] = d
	}
}

// SetBaudRateCommand builds the descriptor selecting rate.
func SetBaudRateCommand(rate AvailableBaudRate) *CommandDescriptor {
	return configCommand("set_baud_rate", OpSetBaudRate, []byte{byte(rate), 0x00}, StatusOK)
}

// LookupCommand returns the catalog entry called name.
func LookupCommand(name string) (*CommandDescriptor, bool) {
	d, ok := catalog[name]
	return d, ok
}

// Commands returns the catalog sorted by name.
func Commands() []*CommandDescriptor {
	out := make([]*CommandDescriptor, 0, len(catalog))
	for _, d := range catalog {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BaudRate returns the line speed in bits per second, or 0 for an unknown
// value.
func (b AvailableBaudRate) BaudRate() int {
	switch b {
	case Baud9600:
		return 9600
	case Baud19200:
		return 19200
	case Baud38400:
		return 38400
	case Baud57600:
		return 57600
	case Baud115200:
		return 115200
	case Baud230400:
		return 230400
	case Baud256000:
		return 256000
	case Baud460800:
		return 460800
	}
	return 0
}

// ParseBaudRate maps a line speed to the module's enum.
func ParseBaudRate(bps int) (AvailableBaudRate, error) {
	for b := Baud9600; b <= Baud460800; b++ {
		if b.BaudRate() == bps {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unsupported baud rate %d", bps)
}

// String returns the tracking mode name.
func (m TrackingMode) String() string {
	switch m {
	case TrackingSingle:
		return "single"
	case TrackingMulti:
		return "multi"
	}
	return fmt.Sprintf("unknown(0x%04X)", uint16(m))
}

// MACAddress is the module's Bluetooth address.
type MACAddress [6]byte

// minMACBytes is the shortest get_mac answer accepted. Some firmware sends
// five address bytes, the datasheet shows six; missing bytes read as zero.
const minMACBytes = 5

// String formats the address as colon separated hex.
func (m MACAddress) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// ParseMACAddress extracts the address from a get_mac acknowledgement.
func ParseMACAddress(ack []byte) (MACAddress, error) {
	var mac MACAddress
	data := AckData(ack)
	if len(data) < minMACBytes {
		return mac, fmt.Errorf("%w: %d MAC bytes", ErrShortResponse, len(data))
	}
	copy(mac[:], data)
	return mac, nil
}

// ParseTrackingMode extracts the mode from a read_tracking_mode
// acknowledgement.
func ParseTrackingMode(ack []byte) (TrackingMode, error) {
	data := AckData(ack)
	if len(data) < 2 {
		return 0, fmt.Errorf("%w: %d mode bytes", ErrShortResponse, len(data))
	}
	return TrackingMode(binary.LittleEndian.Uint16(data)), nil
}
