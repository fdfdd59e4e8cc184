package tui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kagebridge/gravitybridge/internal/monitor"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, m.waitForMsg()

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit

	case StatusMsg:
		row := m.upsertRow(msg.Workspace)
		if msg.Phase != "" {
			row.phase = msg.Phase
		}
		if msg.LastEvent != "" {
			row.lastEvent = msg.LastEvent
		}
		row.updatedAt = msg.UpdatedAt
		return m, m.waitForMsg()

	case ReconnectMsg:
		row := m.upsertRow(msg.Workspace)
		row.phase = monitor.PhaseDisconnected
		if msg.Reconnected {
			row.reconnectAt = "reconnected"
			row.phase = monitor.PhaseWaiting
		} else if msg.Err != nil {
			row.reconnectAt = "reconnect attempt " + strconv.Itoa(msg.Attempt) + " failed"
		} else {
			row.reconnectAt = "reconnecting (attempt " + strconv.Itoa(msg.Attempt) + ")"
		}
		return m, m.waitForMsg()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}
