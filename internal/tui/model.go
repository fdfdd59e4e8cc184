// Package tui is a compact bubbletea dashboard over a running CdpPool: one
// row per connected workspace showing its live ResponseMonitor phase, last
// UI event, and reconnect status. It does not drive any assistant chat
// itself — that happens over CDP via internal/session — it only observes.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kagebridge/gravitybridge/internal/monitor"
	"github.com/kagebridge/gravitybridge/internal/tui/style"
)

// StatusMsg reports one workspace's latest known state. Callers push these
// onto the channel passed to NewModel as a SessionBridge/CdpPool callback
// fires; the dashboard never reaches back into the pool itself.
type StatusMsg struct {
	Workspace string
	Phase     monitor.PhaseState
	LastEvent string
	UpdatedAt time.Time
}

// ReconnectMsg reports a CDP client's reconnect state for a workspace.
type ReconnectMsg struct {
	Workspace   string
	Reconnected bool
	Attempt     int
	Err         error
}

// QuitMsg tells the dashboard to exit its message loop.
type QuitMsg struct{}

type workspaceRow struct {
	phase       monitor.PhaseState
	lastEvent   string
	updatedAt   time.Time
	reconnectAt string
}

// Model is the dashboard's bubbletea state.
type Model struct {
	MsgChan chan tea.Msg
	Spinner spinner.Model

	rows  map[string]*workspaceRow
	order []string

	width, height int
	quitting      bool
}

// NewModel builds a dashboard that reads status updates from msgChan until
// it receives a QuitMsg or the user presses q/ctrl+c.
func NewModel(msgChan chan tea.Msg) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = style.SpinnerStyle

	return Model{
		MsgChan: msgChan,
		Spinner: sp,
		rows:    make(map[string]*workspaceRow),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, m.waitForMsg())
}

func (m Model) waitForMsg() tea.Cmd {
	return func() tea.Msg {
		return <-m.MsgChan
	}
}

func (m *Model) upsertRow(workspace string) *workspaceRow {
	row, ok := m.rows[workspace]
	if !ok {
		row = &workspaceRow{phase: monitor.PhaseWaiting}
		m.rows[workspace] = row
		m.order = append(m.order, workspace)
	}
	return row
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	d := time.Since(t).Round(time.Second)
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%ds ago", int(d.Seconds()))
}
