// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI model
type model struct {
	connInfo       string
	statsInterval  int
	showAll        bool
	stats          *ld2450.Statistics
	eventLog       []eventLogEntry
	maxLogEntries  int
	synchronized   bool
	skipped        int
	width          int
	height         int
	quitting       bool
	connectionLost bool
	lastGroup      *ld2450.TrackedObjectGroup
	targets        table.Model
}

// Messages
type tickMsg time.Time
type frameMsg monitorEvent
type syncMsg struct {
	skipped int
}
type connectionLostMsg struct {
	err error
}

// formatElapsed formats a duration as a human-friendly string
func formatElapsed(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return "0 seconds"
	}

	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	parts := []string{}
	for _, p := range []struct {
		n    int64
		unit string
	}{{days, "day"}, {hours, "hour"}, {minutes, "minute"}, {seconds, "second"}} {
		switch {
		case p.n == 1:
			parts = append(parts, "1 "+p.unit)
		case p.n > 1:
			parts = append(parts, fmt.Sprintf("%d %ss", p.n, p.unit))
		}
	}

	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func newTargetTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Slot", Width: 4},
			{Title: "X (mm)", Width: 8},
			{Title: "Y (mm)", Width: 8},
			{Title: "Speed (cm/s)", Width: 12},
			{Title: "Res (mm)", Width: 8},
			{Title: "State", Width: 8},
		}),
		table.WithHeight(ld2450.TargetSlots+1),
	)
	styles := table.DefaultStyles()
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)
	t.SetRows(targetRows(nil))
	return t
}

func targetRows(g *ld2450.TrackedObjectGroup) []table.Row {
	rows := make([]table.Row, 0, ld2450.TargetSlots)
	for i := 0; i < ld2450.TargetSlots; i++ {
		slot := strconv.Itoa(i + 1)
		if g == nil || !g.Targets[i].Present {
			rows = append(rows, table.Row{slot, "-", "-", "-", "-", "empty"})
			continue
		}
		t := g.Targets[i]
		state := "ok"
		if !t.Valid {
			state = "invalid"
		}
		rows = append(rows, table.Row{
			slot,
			strconv.Itoa(t.X),
			strconv.Itoa(t.Y),
			strconv.Itoa(t.Speed),
			strconv.Itoa(t.DistanceResolution),
			state,
		})
	}
	return rows
}

func initialModel(connInfo string, statsInterval int, showAll bool, stats *ld2450.Statistics) model {
	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         stats,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
		targets:       newTargetTable(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case syncMsg:
		m.synchronized = true
		m.skipped = msg.skipped
		if msg.skipped > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d malformed frames", msg.skipped), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case connectionLostMsg:
		m.connectionLost = true
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Connection lost: %v", msg.err), true)
		} else {
			m.addLogEntry("Connection closed", true)
		}

	case frameMsg:
		m.handleFrame(monitorEvent(msg))
	}

	return m, nil
}

func (m *model) handleFrame(ev monitorEvent) {
	f := ev.frame

	switch {
	case f.Kind == ld2450.KindMalformed:
		m.addLogEntry(fmt.Sprintf("MALFORMED %s: %v", f.Attempted, f.Err), true)
		return

	case f.IsAck():
		op, _ := f.Opcode()
		m.addLogEntry(fmt.Sprintf("%s %s", f.Kind, ld2450.FormatCommandName(op)), false)
		return
	}

	if ev.group != nil {
		m.lastGroup = ev.group
		m.targets.SetRows(targetRows(ev.group))
	}
	for _, err := range ev.anomalies {
		m.addLogEntry(fmt.Sprintf("%s: %s", err.Type, err.Message), true)
	}
	if len(ev.anomalies) == 0 && m.showAll && ev.group != nil && !ev.group.IsEmpty() {
		m.addLogEntry(fmt.Sprintf("%s: %d target(s)", f.Kind, ev.group.Count()), false)
	}
}

func (m *model) addLogEntry(message string, isError bool) {
	m.eventLog = appendLog(m.eventLog, m.maxLogEntries, message, isError)
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	mode := "errors only"
	if m.showAll {
		mode = "all frames"
	}
	sections := []string{
		titleStyle.Render("LD2450 - FRAME MONITOR") + "\n" +
			mutedStyle.Render(fmt.Sprintf("%s | %s | r=reset stats q=quit", m.connInfo, mode)),
		m.syncLine(),
		panelStyle.Render(m.statsPanel()),
		m.targetsHeading() + "\n" + panelStyle.Render(m.targets.View()),
		labelStyle.Render("Recent Events:") + "\n" +
			panelStyle.Width(m.width-4).Render(renderLog(m.eventLog, max(m.height-22, 5), "01/02/06 15:04:05.000")),
	}
	return strings.Join(sections, "\n\n")
}

func (m model) syncLine() string {
	switch {
	case m.connectionLost:
		return errStyle.Render("✗ Connection lost")
	case !m.synchronized:
		return warnStyle.Render("⏳ Waiting for synchronization...")
	case m.skipped > 0:
		return valueStyle.Render("✓ Synchronized") + mutedStyle.Render(fmt.Sprintf(" (skipped %d malformed frames)", m.skipped))
	default:
		return valueStyle.Render("✓ Synchronized")
	}
}

// statsPanel lays out the counters, one row per concern. Rows for error
// classes that never occurred are left out.
func (m model) statsPanel() string {
	snap := m.stats.Snapshot()
	errorCount := snap.MalformedFrames + snap.AnomalousValues
	percent := func(n uint64) float64 {
		if snap.TotalFrames == 0 {
			return 0
		}
		return float64(n) * 100 / float64(snap.TotalFrames)
	}

	rows := []string{strings.Join([]string{
		field("Total:", valueStyle, "%d", snap.TotalFrames),
		field("Reports:", valueStyle, "%d (%.1f%%)", snap.ReportFrames, percent(snap.ReportFrames)),
		field("Targets:", valueStyle, "%d", snap.TargetsSeen),
		field("Errors:", errStyle, "%d (%.1f%%)", errorCount, percent(errorCount)),
	}, "   ")}

	if snap.MalformedFrames > 0 {
		rows = append(rows, field("Malformed:", errStyle, "%d", snap.MalformedFrames)+mutedStyle.Render(fmt.Sprintf(
			" preamble %d, length %d, postamble %d, truncated %d",
			snap.BadPreambles, snap.BadLengths, snap.BadPostambles, snap.Truncated)))
	}
	if snap.Pivots > 0 || snap.AnomalousValues > 0 {
		rows = append(rows, field("Pivots:", warnStyle, "%d", snap.Pivots)+"   "+
			field("Anomalous:", warnStyle, "%d", snap.AnomalousValues))
	}

	rateStyle := valueStyle
	if snap.ErrorRate > 0 {
		rateStyle = errStyle
	}
	rows = append(rows, strings.Join([]string{
		field("Frame Rate:", valueStyle, "%.1f frames/s", snap.FrameRate),
		field("Error Rate:", rateStyle, "%.1f err/s", snap.ErrorRate),
		field("Running:", valueStyle, "%s", formatElapsed(time.Since(snap.StartTime))),
	}, "   "))
	return strings.Join(rows, "\n")
}

func (m model) targetsHeading() string {
	heading := labelStyle.Render("Latest Targets:")
	if m.lastGroup != nil {
		heading += mutedStyle.Render(" " + m.lastGroup.Timestamp.Format("15:04:05.000"))
	}
	return heading
}
