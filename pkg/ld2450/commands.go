// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"context"
	"fmt"
)

// The operations below require configuration mode; wrap them in
// WithConfigMode or bracket them with EnterConfigMode and ExitConfigMode.

// SetTrackingMode selects single or multi target tracking.
func (c *Client) SetTrackingMode(ctx context.Context, mode TrackingMode) error {
	var d *CommandDescriptor
	switch mode {
	case TrackingSingle:
		d = CmdSingleTarget
	case TrackingMulti:
		d = CmdMultiTarget
	default:
		return fmt.Errorf("unknown tracking mode %s", mode)
	}
	_, err := c.SendCommand(ctx, d)
	return err
}

// ReadTrackingMode queries the current tracking mode.
func (c *Client) ReadTrackingMode(ctx context.Context) (TrackingMode, error) {
	ack, err := c.SendCommand(ctx, CmdReadTrackingMode)
	if err != nil {
		return 0, err
	}
	return ParseTrackingMode(ack)
}

// SetBaudRate changes the line speed. It takes effect after Restart.
func (c *Client) SetBaudRate(ctx context.Context, rate AvailableBaudRate) error {
	if rate.BaudRate() == 0 {
		return fmt.Errorf("unknown baud rate value 0x%02X", uint8(rate))
	}
	_, err := c.SendCommand(ctx, SetBaudRateCommand(rate))
	return err
}

// FactoryReset restores the module defaults. It takes effect after Restart.
func (c *Client) FactoryReset(ctx context.Context) error {
	_, err := c.SendCommand(ctx, CmdFactoryReset)
	return err
}

// Restart reboots the module.
func (c *Client) Restart(ctx context.Context) error {
	_, err := c.SendCommand(ctx, CmdRestart)
	return err
}

// SetBluetooth switches the Bluetooth radio. It takes effect after Restart.
func (c *Client) SetBluetooth(ctx context.Context, enabled bool) error {
	d := CmdBluetoothOff
	if enabled {
		d = CmdBluetoothOn
	}
	_, err := c.SendCommand(ctx, d)
	return err
}

// MACAddress queries the Bluetooth MAC address.
func (c *Client) MACAddress(ctx context.Context) (MACAddress, error) {
	ack, err := c.SendCommand(ctx, CmdGetMAC)
	if err != nil {
		return MACAddress{}, err
	}
	return ParseMACAddress(ack)
}

// ZoneConfiguration returns the region filter. Unless Options.LiveZones is
// set it returns the disabled default without talking to the module.
func (c *Client) ZoneConfiguration(ctx context.Context) (ZoneConfiguration, error) {
	if !c.opts.LiveZones {
		return ZoneConfiguration{Type: ZoneFilterDisabled}, nil
	}
	ack, err := c.SendCommand(ctx, CmdGetZoneFilter)
	if err != nil {
		return ZoneConfiguration{}, err
	}
	return ParseZoneConfiguration(ack)
}
