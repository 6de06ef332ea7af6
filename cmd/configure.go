// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var configRestart bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Query and change module settings",
	Long: `Query and change LD2450 module settings.

Every subcommand that talks to the module enters configuration mode, runs its
commands and leaves configuration mode again, even when a command fails.
Tracking reports pause while the module is in configuration mode.

Settings marked "after restart" are stored by the module but only applied on
the next boot; pass --restart to reboot right away.`,
}

var configInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print tracking mode, MAC address and zone filtering as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModule(cmd, func(ctx context.Context, c *ld2450.Client) error {
			info, err := readModuleInfo(ctx, c)
			if err != nil {
				return err
			}
			return printYAML(info)
		})
	},
}

var configModeCmd = &cobra.Command{
	Use:       "mode [single|multi]",
	Short:     "Show or set the tracking mode",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"single", "multi"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var mode ld2450.TrackingMode
		if len(args) == 1 {
			var err error
			if mode, err = parseTrackingMode(args[0]); err != nil {
				return err
			}
		}
		return withModule(cmd, func(ctx context.Context, c *ld2450.Client) error {
			if mode != 0 {
				if err := c.SetTrackingMode(ctx, mode); err != nil {
					return err
				}
			}
			current, err := c.ReadTrackingMode(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Tracking mode: %s\n", current)
			return nil
		})
	},
}

var configBaudCmd = &cobra.Command{
	Use:   "baud <bps>",
	Short: "Set the module baud rate (after restart)",
	Long: `Set the module baud rate. Supported rates: 9600, 19200, 38400, 57600,
115200, 230400, 256000 and 460800. Reconnect with --baud after the restart.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bps, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid baud rate %q", args[0])
		}
		rate, err := ld2450.ParseBaudRate(bps)
		if err != nil {
			return err
		}
		return withModule(cmd, func(ctx context.Context, c *ld2450.Client) error {
			if err := c.SetBaudRate(ctx, rate); err != nil {
				return err
			}
			fmt.Printf("Baud rate set to %d\n", rate.BaudRate())
			return maybeRestart(ctx, c)
		})
	},
}

var configBluetoothCmd = &cobra.Command{
	Use:       "bluetooth <on|off>",
	Short:     "Switch the Bluetooth radio (after restart)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var enabled bool
		switch strings.ToLower(args[0]) {
		case "on":
			enabled = true
		case "off":
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}
		return withModule(cmd, func(ctx context.Context, c *ld2450.Client) error {
			if err := c.SetBluetooth(ctx, enabled); err != nil {
				return err
			}
			fmt.Printf("Bluetooth %s\n", strings.ToLower(args[0]))
			return maybeRestart(ctx, c)
		})
	},
}

var configFactoryResetCmd = &cobra.Command{
	Use:   "factory-reset",
	Short: "Restore factory defaults (after restart)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModule(cmd, func(ctx context.Context, c *ld2450.Client) error {
			if err := c.FactoryReset(ctx); err != nil {
				return err
			}
			fmt.Println("Factory defaults restored")
			return maybeRestart(ctx, c)
		})
	},
}

var configRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Reboot the module",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModule(cmd, func(ctx context.Context, c *ld2450.Client) error {
			if err := c.Restart(ctx); err != nil {
				return err
			}
			fmt.Println("Module restarting")
			return nil
		})
	},
}

var configMACCmd = &cobra.Command{
	Use:   "mac",
	Short: "Print the Bluetooth MAC address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModule(cmd, func(ctx context.Context, c *ld2450.Client) error {
			mac, err := c.MACAddress(ctx)
			if err != nil {
				return err
			}
			fmt.Println(mac)
			return nil
		})
	},
}

var configZonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "Print the zone filtering configuration as YAML",
	Long: `Print the zone filtering configuration as YAML.

Without --zones-live the default (filtering disabled) is printed without
querying the module.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withModule(cmd, func(ctx context.Context, c *ld2450.Client) error {
			zones, err := c.ZoneConfiguration(ctx)
			if err != nil {
				return err
			}
			return printYAML(zones)
		})
	},
}

var configSendCmd = &cobra.Command{
	Use:   "send <command>",
	Short: "Send a catalog command by name and print the acknowledgement",
	Long: `Send a catalog command by name and print the acknowledgement.

Run "config send --list" to see the catalog.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if list, _ := cmd.Flags().GetBool("list"); list {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if list, _ := cmd.Flags().GetBool("list"); list {
			for _, d := range ld2450.Commands() {
				fmt.Printf("%-20s %s  % X\n", d.Name, ld2450.FormatOpcode(d.Opcode), d.Payload)
			}
			return nil
		}
		d, ok := ld2450.LookupCommand(args[0])
		if !ok {
			return fmt.Errorf("unknown command %q", args[0])
		}
		return withModule(cmd, func(ctx context.Context, c *ld2450.Client) error {
			ack, err := c.SendCommand(ctx, d)
			if err != nil {
				return err
			}
			fmt.Printf("%s: % X\n", d.Name, ack)
			return nil
		})
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printYAML(cfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.PersistentFlags().BoolVar(&configRestart, "restart", false, "Restart the module after changing a setting")
	configSendCmd.Flags().Bool("list", false, "List the command catalog")

	configCmd.AddCommand(
		configInfoCmd,
		configModeCmd,
		configBaudCmd,
		configBluetoothCmd,
		configFactoryResetCmd,
		configRestartCmd,
		configMACCmd,
		configZonesCmd,
		configSendCmd,
		configShowCmd,
	)
}

// withModule opens a session and runs fn in configuration mode.
func withModule(cmd *cobra.Command, fn func(ctx context.Context, c *ld2450.Client) error) error {
	ctx := cmd.Context()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.powerUp(ctx); err != nil {
		return err
	}
	s.drain()

	err = s.client.WithConfigMode(ctx, func(ctx context.Context) error {
		return fn(ctx, s.client)
	})
	snap := s.stats.Snapshot()
	log.Debug("config session finished",
		zap.Uint64("commands", snap.CommandsSent),
		zap.Uint64("retries", snap.Retries),
		zap.Uint64("discarded", snap.DiscardedFrames))
	return err
}

func maybeRestart(ctx context.Context, c *ld2450.Client) error {
	if !configRestart {
		fmt.Fprintln(os.Stderr, "Change takes effect after restart (use --restart)")
		return nil
	}
	if err := c.Restart(ctx); err != nil {
		return err
	}
	fmt.Println("Module restarting")
	return nil
}

func parseTrackingMode(s string) (ld2450.TrackingMode, error) {
	switch strings.ToLower(s) {
	case "single":
		return ld2450.TrackingSingle, nil
	case "multi":
		return ld2450.TrackingMulti, nil
	}
	return 0, fmt.Errorf("unknown tracking mode %q (use single or multi)", s)
}

// moduleInfo is the document printed by config info.
type moduleInfo struct {
	TrackingMode string                   `yaml:"trackingMode"`
	MACAddress   string                   `yaml:"macAddress"`
	Zones        ld2450.ZoneConfiguration `yaml:"zones"`
}

func readModuleInfo(ctx context.Context, c *ld2450.Client) (*moduleInfo, error) {
	mode, err := c.ReadTrackingMode(ctx)
	if err != nil {
		return nil, fmt.Errorf("read tracking mode: %w", err)
	}
	mac, err := c.MACAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("read MAC address: %w", err)
	}
	zones, err := c.ZoneConfiguration(ctx)
	if err != nil {
		return nil, fmt.Errorf("read zones: %w", err)
	}
	return &moduleInfo{
		TrackingMode: mode.String(),
		MACAddress:   mac.String(),
		Zones:        zones,
	}, nil
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
