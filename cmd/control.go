// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for configuring the module",
	Long: `Configure the LD2450 through an interactive terminal UI.

Pick an action from the list and press enter. Each action enters configuration
mode, runs its commands and leaves configuration mode again, so tracking
reports resume between actions. The set baud rate action asks for the new
rate first.

Supports both serial and WebSocket connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

func runControl(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.powerUp(ctx); err != nil {
		return err
	}

	p := tea.NewProgram(initialControlModel(ctx, s), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// controlAction is one entry of the action list.
type controlAction struct {
	title       string
	description string
	needsInput  bool
	run         func(ctx context.Context, c *ld2450.Client, input string) (string, error)
}

// Implement list.Item interface
func (a controlAction) Title() string       { return a.title }
func (a controlAction) Description() string { return a.description }
func (a controlAction) FilterValue() string { return a.title }

func controlActions() []controlAction {
	return []controlAction{
		{
			title:       "Module info",
			description: "Tracking mode, MAC address and zones",
			run: func(ctx context.Context, c *ld2450.Client, _ string) (string, error) {
				info, err := readModuleInfo(ctx, c)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("mode=%s mac=%s zones=%s", info.TrackingMode, info.MACAddress, info.Zones.Type), nil
			},
		},
		{
			title:       "Single target",
			description: "Track the strongest target only",
			run: func(ctx context.Context, c *ld2450.Client, _ string) (string, error) {
				return "Tracking mode set to single", c.SetTrackingMode(ctx, ld2450.TrackingSingle)
			},
		},
		{
			title:       "Multi target",
			description: "Track up to three targets",
			run: func(ctx context.Context, c *ld2450.Client, _ string) (string, error) {
				return "Tracking mode set to multi", c.SetTrackingMode(ctx, ld2450.TrackingMulti)
			},
		},
		{
			title:       "Bluetooth on",
			description: "Enable the radio (after restart)",
			run: func(ctx context.Context, c *ld2450.Client, _ string) (string, error) {
				return "Bluetooth enabled, restart to apply", c.SetBluetooth(ctx, true)
			},
		},
		{
			title:       "Bluetooth off",
			description: "Disable the radio (after restart)",
			run: func(ctx context.Context, c *ld2450.Client, _ string) (string, error) {
				return "Bluetooth disabled, restart to apply", c.SetBluetooth(ctx, false)
			},
		},
		{
			title:       "Set baud rate",
			description: "Change the line speed (after restart)",
			needsInput:  true,
			run: func(ctx context.Context, c *ld2450.Client, input string) (string, error) {
				bps, err := strconv.Atoi(strings.TrimSpace(input))
				if err != nil {
					return "", fmt.Errorf("invalid baud rate %q", input)
				}
				rate, err := ld2450.ParseBaudRate(bps)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Baud rate set to %d, restart and reconnect to apply", bps), c.SetBaudRate(ctx, rate)
			},
		},
		{
			title:       "Restart",
			description: "Reboot the module",
			run: func(ctx context.Context, c *ld2450.Client, _ string) (string, error) {
				return "Module restarting", c.Restart(ctx)
			},
		},
		{
			title:       "Factory reset",
			description: "Restore defaults (after restart)",
			run: func(ctx context.Context, c *ld2450.Client, _ string) (string, error) {
				return "Factory defaults restored, restart to apply", c.FactoryReset(ctx)
			},
		},
	}
}

// runAction executes a in configuration mode.
func runAction(ctx context.Context, s *session, a controlAction, input string) tea.Cmd {
	return func() tea.Msg {
		s.drain()
		c := s.client
		var result string
		err := c.WithConfigMode(ctx, func(ctx context.Context) error {
			var err error
			result, err = a.run(ctx, c, input)
			return err
		})
		return actionDoneMsg{action: a.title, result: result, err: err}
	}
}
