// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Palette shared by the monitor and control views (ANSI 256 colors).
var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("12")).Background(lipgloss.Color("235")).Padding(0, 1)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	focusStyle = panelStyle.BorderForeground(lipgloss.Color("12"))
)

// eventLogEntry represents a log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// field renders "label value" with value in style.
func field(label string, style lipgloss.Style, format string, args ...any) string {
	return labelStyle.Render(label) + " " + style.Render(fmt.Sprintf(format, args...))
}

// appendLog adds an entry and keeps at most limit entries.
func appendLog(entries []eventLogEntry, limit int, message string, isError bool) []eventLogEntry {
	entries = append(entries, eventLogEntry{timestamp: time.Now(), message: message, isError: isError})
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries
}

// renderLog renders the newest lines entries.
func renderLog(entries []eventLogEntry, lines int, timeFormat string) string {
	if len(entries) == 0 {
		return mutedStyle.Render("  (no events yet)")
	}
	var sb strings.Builder
	for _, entry := range entries[max(len(entries)-lines, 0):] {
		style, marker := warnStyle, "ℹ "
		if entry.isError {
			style, marker = errStyle, "✗ "
		}
		fmt.Fprintf(&sb, "%s %s\n", mutedStyle.Render(entry.timestamp.Format(timeFormat)), style.Render(marker+entry.message))
	}
	return sb.String()
}
