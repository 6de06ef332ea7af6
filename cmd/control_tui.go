// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

// Focus states
const (
	focusActionList = iota
	focusBaudInput
)

const actionListWidth = 40

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	ctx      context.Context
	session  *session
	stats    *ld2450.Statistics
	connInfo string

	actions   list.Model
	baudInput textinput.Model
	focus     int
	pending   *controlAction
	busy      bool

	eventLog      []eventLogEntry
	maxLogEntries int

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type actionDoneMsg struct {
	action string
	result string
	err    error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(ctx context.Context, s *session) controlModel {
	ti := textinput.New()
	ti.Placeholder = "256000"
	ti.CharLimit = 6
	ti.Width = 10

	items := []list.Item{}
	for _, a := range controlActions() {
		items = append(items, a)
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	actions := list.New(items, delegate, actionListWidth, 18)
	actions.Title = "Actions"
	actions.SetShowStatusBar(false)
	actions.SetShowHelp(false)
	actions.SetFilteringEnabled(false)

	return controlModel{
		ctx:           ctx,
		session:       s,
		stats:         s.stats,
		connInfo:      s.info,
		actions:       actions,
		baudInput:     ti,
		focus:         focusActionList,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.actions.SetHeight(max(msg.Height-14, 6))

	case controlTickMsg:
		m.stats.CalculateRates()
		return m, controlTickCmd()

	case actionDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.action, msg.err), true)
		} else {
			m.addLogEntry(msg.result, false)
		}
	}

	return m, nil
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.focus == focusBaudInput {
		switch msg.String() {
		case "esc":
			m.closeInput()
			return m, nil
		case "enter":
			a := *m.pending
			input := m.baudInput.Value()
			m.closeInput()
			return m.start(a, input)
		}
		var cmd tea.Cmd
		m.baudInput, cmd = m.baudInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		a, ok := m.actions.SelectedItem().(controlAction)
		if !ok {
			return m, nil
		}
		if m.busy {
			m.addLogEntry("Busy: wait for the running action to finish", true)
			return m, nil
		}
		if a.needsInput {
			m.pending = &a
			m.focus = focusBaudInput
			m.baudInput.SetValue("")
			return m, m.baudInput.Focus()
		}
		return m.start(a, "")
	}

	var cmd tea.Cmd
	m.actions, cmd = m.actions.Update(msg)
	return m, cmd
}

func (m controlModel) start(a controlAction, input string) (tea.Model, tea.Cmd) {
	m.busy = true
	m.addLogEntry(fmt.Sprintf("Running %s...", strings.ToLower(a.title)), false)
	return m, runAction(m.ctx, m.session, a, input)
}

func (m *controlModel) closeInput() {
	m.pending = nil
	m.focus = focusActionList
	m.baudInput.Blur()
}

func (m *controlModel) addLogEntry(message string, isError bool) {
	m.eventLog = appendLog(m.eventLog, m.maxLogEntries, message, isError)
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	listBox := panelStyle
	if m.focus == focusActionList {
		listBox = focusStyle
	}
	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		listBox.Width(actionListWidth).Render(m.actions.View()),
		" ",
		panelStyle.Width(max(m.width-actionListWidth-8, 20)).Render(m.statusPanel()),
	)

	return titleStyle.Render("LD2450 CONTROL") + " " +
		mutedStyle.Render(fmt.Sprintf("| %s | q=quit enter=run", m.connInfo)) + "\n\n" +
		panels + "\n\n" +
		labelStyle.Render("Recent Events:") + "\n" +
		panelStyle.Width(max(m.width-4, 20)).Render(renderLog(m.eventLog, 5, "15:04:05.000"))
}

// statusPanel shows the baud prompt or the action state, then the command
// counters.
func (m controlModel) statusPanel() string {
	var state string
	switch {
	case m.focus == focusBaudInput:
		state = labelStyle.Render("New baud rate:") + "\n" + m.baudInput.View() + "\n" +
			mutedStyle.Render("enter=apply esc=cancel")
	case m.busy:
		state = warnStyle.Render("⏳ Waiting for the module...")
	default:
		state = valueStyle.Render("✓ Ready")
	}

	snap := m.stats.Snapshot()
	return strings.Join([]string{
		state,
		"",
		field("Commands:", valueStyle, "%d", snap.CommandsSent),
		field("Retries:", valueStyle, "%d", snap.Retries),
		field("Discarded:", valueStyle, "%d", snap.DiscardedFrames),
		field("Frame Rate:", valueStyle, "%.1f frames/s", snap.FrameRate),
	}, "\n")
}
